package ingestion

import (
	"buyer-intent-engine/internal/apperr"
	"buyer-intent-engine/internal/logger"
	"buyer-intent-engine/internal/models"
	"buyer-intent-engine/internal/repository"
	"buyer-intent-engine/internal/repository/memory"
	"buyer-intent-engine/internal/scoring"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	svc   *Service
	store *memory.Store
	repos *repository.Repositories
	now   time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := memory.NewStore()
	repos := store.Repositories()
	h := &harness{store: store, repos: repos, now: time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return h.now }

	scorer := scoring.NewService(repos.Scores, repos.Snapshots, nil, logger.NewNop())
	scorer.SetClock(clock)

	h.svc = NewService(repos.Buyers, repos.Events, repos.Views, scorer, logger.NewNop())
	h.svc.SetClock(clock)
	return h
}

func uintPtr(v uint) *uint { return &v }

func TestLogEvent_RejectsUnknownType(t *testing.T) {
	h := newHarness(t)

	for _, eventType := range []string{"", "saved_search", "clicked"} {
		_, _, err := h.svc.LogEvent(1, eventType, nil, nil, nil)
		assert.True(t, apperr.IsInvalidInput(err), "type %q", eventType)
	}

	_, _, err := h.svc.LogEvent(0, models.EventTypePropertySearch, nil, nil, nil)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	assert.Empty(t, h.store.Events())
}

func TestLogEvent_CreatesBuyerAndScores(t *testing.T) {
	h := newHarness(t)

	meta := &models.EventMetadata{Source: "search_page"}
	event, score, err := h.svc.LogEvent(5, models.EventTypeContacted, nil, uintPtr(3), meta)
	require.NoError(t, err)

	assert.Equal(t, models.EventTypeContacted, event.EventType)
	assert.Equal(t, "search_page", event.Metadata.Data().Source)
	assert.InDelta(t, 25, score.Score, 1e-9)

	buyer, err := h.repos.Buyers.GetByID(5)
	require.NoError(t, err)
	require.NotNil(t, buyer)
	assert.Equal(t, h.now, buyer.FirstSeenAt)
	assert.Equal(t, h.now, buyer.LastActivityAt)

	logs := h.store.ScoreLogs(5)
	require.Len(t, logs, 1)
	assert.Equal(t, "event:contacted", logs[0].Reason)
	require.NotNil(t, logs[0].EventID)
	assert.Equal(t, event.ID, *logs[0].EventID)
}

func TestLogEvent_RevisitClassification(t *testing.T) {
	tests := []struct {
		name       string
		gap        time.Duration
		wantType   string
		wantWeight float64
	}{
		{"same day", 2 * time.Hour, models.EventTypeRevisit, 6},
		{"six days later", 6 * 24 * time.Hour, models.EventTypeRevisit, 6},
		{"eight days later", 8 * 24 * time.Hour, models.EventTypeListingView, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			property := uintPtr(77)

			first, _, err := h.svc.LogEvent(1, models.EventTypeListingView, property, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, models.EventTypeListingView, first.EventType)

			h.now = h.now.Add(tt.gap)

			second, _, err := h.svc.LogEvent(1, models.EventTypeListingView, property, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, second.EventType)

			logs := h.store.ScoreLogs(1)
			last := logs[len(logs)-1]
			assert.Equal(t, "event:"+tt.wantType, last.Reason)
			assert.InDelta(t, tt.wantWeight, last.ScoreAfter-last.ScoreBefore, 1e-9)

			view, err := h.repos.Views.Get(1, 77)
			require.NoError(t, err)
			assert.Equal(t, 2, view.ViewCount)
			assert.Equal(t, h.now, view.LastViewedAt)
			assert.Equal(t, h.now.Add(-tt.gap), view.FirstViewedAt)
		})
	}
}

func TestLogEvent_RevisitScenarioScore(t *testing.T) {
	h := newHarness(t)
	property := uintPtr(12)

	_, _, err := h.svc.LogEvent(2, models.EventTypeListingView, property, nil, nil)
	require.NoError(t, err)

	h.now = h.now.Add(24 * time.Hour)

	event, score, err := h.svc.LogEvent(2, models.EventTypeListingView, property, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.EventTypeRevisit, event.EventType)
	assert.InDelta(t, 9.8, score.Score, 1e-9)
}

func TestLogEvent_ViewWithoutPropertyIsNotTracked(t *testing.T) {
	h := newHarness(t)

	event, _, err := h.svc.LogEvent(4, models.EventTypeListingView, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.EventTypeListingView, event.EventType)

	ids, err := h.repos.Views.ListViewedPropertyIDs(4)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestLogEvent_SearchDoesNotRecordView(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.svc.LogEvent(4, models.EventTypePropertySearch, uintPtr(8), nil, nil)
	require.NoError(t, err)

	view, err := h.repos.Views.Get(4, 8)
	require.NoError(t, err)
	assert.Nil(t, view)
}
