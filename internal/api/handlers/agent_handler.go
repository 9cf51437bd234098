package handlers

import (
	"buyer-intent-engine/internal/apperr"
	"buyer-intent-engine/internal/models"
	"buyer-intent-engine/internal/repository"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

type FeedProvider interface {
	GetPriorityFeed(agentID uint) ([]*models.PriorityFeedItem, error)
}

// AgentHandler serves the agent-facing priority feed, the trigger audit
// trail and the engagement hook used by the CRM to report agent contact
// with a buyer.
type AgentHandler struct {
	feed        FeedProvider
	triggers    repository.TriggerHistoryRepository
	engagements repository.EngagementRepository
}

func NewAgentHandler(feed FeedProvider, triggers repository.TriggerHistoryRepository, engagements repository.EngagementRepository) *AgentHandler {
	return &AgentHandler{
		feed:        feed,
		triggers:    triggers,
		engagements: engagements,
	}
}

type FeedResponse struct {
	AgentID uint                       `json:"agent_id"`
	Items   []*models.PriorityFeedItem `json:"items"`
	Total   int                        `json:"total"`
}

type EngagementRequest struct {
	BuyerID        uint                   `json:"buyer_id"`
	LeadID         *uint                  `json:"lead_id,omitempty"`
	EngagementType string                 `json:"engagement_type"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

func (h *AgentHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	agentID, err := pathID(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	items, err := h.feed.GetPriorityFeed(agentID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if items == nil {
		items = []*models.PriorityFeedItem{}
	}

	respondJSON(w, http.StatusOK, FeedResponse{
		AgentID: agentID,
		Items:   items,
		Total:   len(items),
	})
}

// ListTriggers returns the triggers fired for one buyer to this agent,
// newest first, optionally narrowed with ?type=.
func (h *AgentHandler) ListTriggers(w http.ResponseWriter, r *http.Request) {
	agentID, err := pathID(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	buyerID, err := parseID(mux.Vars(r)["buyer_id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	triggerType := models.TriggerType(r.URL.Query().Get("type"))
	if triggerType != "" && !triggerType.IsValid() {
		respondServiceError(w, apperr.InvalidInput("unknown trigger type %q", triggerType))
		return
	}

	histories, err := h.triggers.ListByBuyerAndAgent(buyerID, agentID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	out := make([]*models.TriggerHistory, 0, len(histories))
	for _, history := range histories {
		if triggerType == "" || history.TriggerType == triggerType {
			out = append(out, history)
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"triggers": out,
		"total":    len(out),
	})
}

func (h *AgentHandler) RecordEngagement(w http.ResponseWriter, r *http.Request) {
	agentID, err := pathID(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var req EngagementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.BuyerID == 0 {
		respondServiceError(w, apperr.InvalidInput("buyer_id is required"))
		return
	}
	if !models.IsValidEngagementType(req.EngagementType) {
		respondServiceError(w, apperr.InvalidInput("unknown engagement type %q", req.EngagementType))
		return
	}

	engagement := &models.AgentBuyerEngagement{
		AgentID:        agentID,
		BuyerID:        req.BuyerID,
		LeadID:         req.LeadID,
		EngagementType: req.EngagementType,
		Metadata:       req.Metadata,
	}

	if err := h.engagements.Create(engagement); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, engagement)
}
