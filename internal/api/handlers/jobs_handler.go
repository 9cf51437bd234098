package handlers

import (
	"net/http"
	"time"
)

type BatchScorer interface {
	ApplyTimeDecayToInactiveBuyers() (int, error)
	CreateSnapshotsForAllBuyers() (int, error)
}

type ScarcityRecorder interface {
	RecordScarcityTransitions() (int, error)
}

// JobsHandler lets an external scheduler trigger the engine's batch operations.
type JobsHandler struct {
	scores BatchScorer
	market ScarcityRecorder
}

func NewJobsHandler(scores BatchScorer, market ScarcityRecorder) *JobsHandler {
	return &JobsHandler{
		scores: scores,
		market: market,
	}
}

type JobResponse struct {
	Job      string `json:"job"`
	Rows     int    `json:"rows"`
	Duration string `json:"duration"`
}

func (h *JobsHandler) Decay(w http.ResponseWriter, r *http.Request) {
	h.run(w, "decay", h.scores.ApplyTimeDecayToInactiveBuyers)
}

func (h *JobsHandler) Snapshots(w http.ResponseWriter, r *http.Request) {
	h.run(w, "snapshots", h.scores.CreateSnapshotsForAllBuyers)
}

func (h *JobsHandler) Scarcity(w http.ResponseWriter, r *http.Request) {
	h.run(w, "scarcity", h.market.RecordScarcityTransitions)
}

func (h *JobsHandler) run(w http.ResponseWriter, name string, job func() (int, error)) {
	start := time.Now()

	rows, err := job()
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, JobResponse{
		Job:      name,
		Rows:     rows,
		Duration: time.Since(start).String(),
	})
}
