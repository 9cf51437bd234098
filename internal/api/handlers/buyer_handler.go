package handlers

import (
	"buyer-intent-engine/internal/models"
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

type EventLogger interface {
	LogEvent(buyerID uint, eventType string, propertyID, zoneID *uint, metadata *models.EventMetadata) (*models.BuyerEvent, *models.IntentScore, error)
}

type ScoreReader interface {
	GetIntentScoreRecord(buyerID uint) (*models.IntentScore, error)
	ListScoreHistory(buyerID uint, limit int) ([]*models.IntentScoreLog, error)
}

type PreferenceExtractor interface {
	ExtractPreferences(buyerID uint) (*models.BuyerPreferences, error)
}

// BuyerHandler serves buyer activity ingestion and the derived buyer views.
type BuyerHandler struct {
	events      EventLogger
	scores      ScoreReader
	preferences PreferenceExtractor
}

func NewBuyerHandler(events EventLogger, scores ScoreReader, preferences PreferenceExtractor) *BuyerHandler {
	return &BuyerHandler{
		events:      events,
		scores:      scores,
		preferences: preferences,
	}
}

type LogEventRequest struct {
	EventType  string                `json:"event_type"`
	PropertyID *uint                 `json:"property_id,omitempty"`
	ZoneID     *uint                 `json:"zone_id,omitempty"`
	Metadata   *models.EventMetadata `json:"metadata,omitempty"`
}

type LogEventResponse struct {
	Event       *models.BuyerEvent `json:"event"`
	IntentScore float64            `json:"intent_score"`
}

type IntentScoreResponse struct {
	BuyerID          uint                     `json:"buyer_id"`
	Score            float64                  `json:"score"`
	LastActivityAt   *time.Time               `json:"last_activity_at,omitempty"`
	LastCalculatedAt *time.Time               `json:"last_calculated_at,omitempty"`
	History          []*models.IntentScoreLog `json:"history"`
}

func (h *BuyerHandler) LogEvent(w http.ResponseWriter, r *http.Request) {
	buyerID, err := pathID(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var req LogEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	event, score, err := h.events.LogEvent(buyerID, req.EventType, req.PropertyID, req.ZoneID, req.Metadata)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, LogEventResponse{
		Event:       event,
		IntentScore: score.Score,
	})
}

func (h *BuyerHandler) GetIntentScore(w http.ResponseWriter, r *http.Request) {
	buyerID, err := pathID(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("history"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "Invalid history limit")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	record, err := h.scores.GetIntentScoreRecord(buyerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	resp := IntentScoreResponse{
		BuyerID: buyerID,
		History: []*models.IntentScoreLog{},
	}
	if record != nil {
		resp.Score = record.Score
		resp.LastActivityAt = &record.LastActivityAt
		resp.LastCalculatedAt = &record.LastCalculatedAt
	}

	if record != nil && limit > 0 {
		history, err := h.scores.ListScoreHistory(buyerID, limit)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		if history != nil {
			resp.History = history
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *BuyerHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	buyerID, err := pathID(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	prefs, err := h.preferences.ExtractPreferences(buyerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, prefs)
}
