package handlers

import (
	"buyer-intent-engine/internal/models"
	"net/http"
	"strings"
)

type MarketReader interface {
	GetMarketSignals(zoneID uint) (*models.MarketSignals, error)
	GetMarketSignalsForZones(zoneIDs []uint) (map[uint]*models.MarketSignals, error)
}

type MarketHandler struct {
	market MarketReader
}

func NewMarketHandler(market MarketReader) *MarketHandler {
	return &MarketHandler{market: market}
}

func (h *MarketHandler) GetZoneSignals(w http.ResponseWriter, r *http.Request) {
	zoneID, err := pathID(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	signals, err := h.market.GetMarketSignals(zoneID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, signals)
}

// ListSignals answers ?zone_ids=1,2,3; unknown zones are left out of the result.
func (h *MarketHandler) ListSignals(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("zone_ids")
	if raw == "" {
		respondError(w, http.StatusBadRequest, "zone_ids is required")
		return
	}

	var zoneIDs []uint
	for _, part := range strings.Split(raw, ",") {
		id, err := parseID(part)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		zoneIDs = append(zoneIDs, id)
	}

	signals, err := h.market.GetMarketSignalsForZones(zoneIDs)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	zones := make([]*models.MarketSignals, 0, len(signals))
	for _, id := range zoneIDs {
		if s, ok := signals[id]; ok {
			zones = append(zones, s)
			delete(signals, id)
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"zones": zones,
		"total": len(zones),
	})
}
