package scoring

import (
	"buyer-intent-engine/internal/logger"
	"buyer-intent-engine/internal/models"
	"buyer-intent-engine/internal/repository/memory"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T) (*Service, *memory.Store, *fakeClock) {
	t.Helper()

	store := memory.NewStore()
	repos := store.Repositories()
	clock := newFakeClock()

	svc := NewService(repos.Scores, repos.Snapshots, nil, logger.NewNop())
	svc.SetClock(clock.Now)
	return svc, store, clock
}

func TestUpdateIntentScore_StaysWithinBounds(t *testing.T) {
	tests := []struct {
		name    string
		weights []float64
		want    float64
	}{
		{"single event", []float64{4}, 4},
		{"caps at 100", []float64{25, 25, 25, 25, 25}, 100},
		{"negative floors at 0", []float64{6, -50}, 0},
		{"recovers after floor", []float64{-10, 3}, 3},
		{"mixed", []float64{60, 60, -30}, 70},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(t)

			var score *models.IntentScore
			var err error
			for _, w := range tt.weights {
				score, err = svc.UpdateIntentScore(1, w, "test", nil)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, score.Score, models.MinIntentScore)
				assert.LessOrEqual(t, score.Score, models.MaxIntentScore)
			}
			assert.InDelta(t, tt.want, score.Score, 1e-9)
		})
	}
}

func TestUpdateIntentScore_DecaysBeforeAddingWeight(t *testing.T) {
	svc, store, clock := newTestService(t)

	_, err := svc.UpdateIntentScore(7, 4, "event:listing_view", nil)
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)

	eventID := uint(42)
	score, err := svc.UpdateIntentScore(7, 6, "event:revisit", &eventID)
	require.NoError(t, err)
	assert.InDelta(t, 9.8, score.Score, 1e-9)
	assert.Equal(t, clock.Now(), score.LastActivityAt)
	assert.Equal(t, clock.Now(), score.LastCalculatedAt)

	logs := store.ScoreLogs(7)
	require.Len(t, logs, 3)

	assert.Equal(t, "event:listing_view", logs[0].Reason)
	assert.InDelta(t, 0, logs[0].ScoreBefore, 1e-9)
	assert.InDelta(t, 4, logs[0].ScoreAfter, 1e-9)

	assert.Contains(t, logs[1].Reason, "decay:5% per day for 1.00 days")
	assert.InDelta(t, 4, logs[1].ScoreBefore, 1e-9)
	assert.InDelta(t, 3.8, logs[1].ScoreAfter, 1e-9)

	assert.Equal(t, "event:revisit", logs[2].Reason)
	assert.InDelta(t, 3.8, logs[2].ScoreBefore, 1e-9)
	assert.InDelta(t, 9.8, logs[2].ScoreAfter, 1e-9)
	require.NotNil(t, logs[2].EventID)
	assert.Equal(t, eventID, *logs[2].EventID)
}

func TestUpdateIntentScore_SkipsTinyDecayLog(t *testing.T) {
	svc, store, clock := newTestService(t)

	_, err := svc.UpdateIntentScore(3, 0.1, "seed", nil)
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)

	score, err := svc.UpdateIntentScore(3, 1, "event:property_search", nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.1*0.95+1, score.Score, 1e-9)

	logs := store.ScoreLogs(3)
	require.Len(t, logs, 2)
	assert.Equal(t, "event:property_search", logs[1].Reason)
}

func TestUpdateIntentScore_SerialisesSameBuyer(t *testing.T) {
	svc, store, _ := newTestService(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.UpdateIntentScore(9, 1, "event:property_search", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	score, err := svc.GetIntentScore(9)
	require.NoError(t, err)
	assert.InDelta(t, 50, score, 1e-9)
	assert.Len(t, store.ScoreLogs(9), 50)
}

func TestApplyTimeDecayToInactiveBuyers_FollowsExponential(t *testing.T) {
	svc, _, clock := newTestService(t)

	_, err := svc.UpdateIntentScore(1, 50, "seed", nil)
	require.NoError(t, err)

	clock.Advance(15 * 24 * time.Hour)

	previous := 50.0
	for day := 15; day <= 20; day++ {
		count, err := svc.ApplyTimeDecayToInactiveBuyers()
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		score, err := svc.GetIntentScore(1)
		require.NoError(t, err)
		assert.InDelta(t, 50*math.Pow(0.95, float64(day)), score, 1e-6)
		assert.LessOrEqual(t, score, previous)
		previous = score

		clock.Advance(24 * time.Hour)
	}
}

func TestApplyTimeDecayToInactiveBuyers_LeavesActivityUntouched(t *testing.T) {
	svc, store, clock := newTestService(t)

	_, err := svc.UpdateIntentScore(1, 40, "seed", nil)
	require.NoError(t, err)
	activity := clock.Now()

	clock.Advance(20 * 24 * time.Hour)
	_, err = svc.ApplyTimeDecayToInactiveBuyers()
	require.NoError(t, err)

	record, err := svc.GetIntentScoreRecord(1)
	require.NoError(t, err)
	assert.Equal(t, activity, record.LastActivityAt)
	assert.Equal(t, clock.Now(), record.LastCalculatedAt)

	// The next event only decays from the sweep, not from the old activity.
	clock.Advance(24 * time.Hour)
	score, err := svc.UpdateIntentScore(1, 0, "event:noop", nil)
	require.NoError(t, err)
	assert.InDelta(t, 40*math.Pow(0.95, 21), score.Score, 1e-6)

	logs := store.ScoreLogs(1)
	assert.Contains(t, logs[len(logs)-2].Reason, "for 1.00 days")
}

func TestApplyTimeDecayToInactiveBuyers_SkipsRecentAndZero(t *testing.T) {
	svc, store, clock := newTestService(t)

	store.SetScore(&models.IntentScore{
		BuyerID:          1,
		Score:            0,
		LastActivityAt:   clock.Now().Add(-30 * 24 * time.Hour),
		LastCalculatedAt: clock.Now().Add(-30 * 24 * time.Hour),
	})
	store.SetScore(&models.IntentScore{
		BuyerID:          2,
		Score:            30,
		LastActivityAt:   clock.Now().Add(-3 * 24 * time.Hour),
		LastCalculatedAt: clock.Now().Add(-3 * 24 * time.Hour),
	})

	count, err := svc.ApplyTimeDecayToInactiveBuyers()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	score, err := svc.GetIntentScore(2)
	require.NoError(t, err)
	assert.InDelta(t, 30, score, 1e-9)
}

func TestCreateSnapshotsForAllBuyers(t *testing.T) {
	svc, store, clock := newTestService(t)

	_, err := svc.UpdateIntentScore(1, 10, "seed", nil)
	require.NoError(t, err)
	_, err = svc.UpdateIntentScore(2, 20, "seed", nil)
	require.NoError(t, err)

	clock.Advance(48 * time.Hour)
	taken := clock.Now()

	count, err := svc.CreateSnapshotsForAllBuyers()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	snapshots := store.Snapshots()
	require.Len(t, snapshots, 2)
	for _, snap := range snapshots {
		assert.Equal(t, taken, snap.SnapshotAt)
	}

	// Snapshots store the raw score without realising decay.
	value, err := svc.ScoreAt(1, taken)
	require.NoError(t, err)
	assert.InDelta(t, 10, value, 1e-9)

	value, err = svc.ScoreAt(1, taken.Add(-time.Minute))
	require.NoError(t, err)
	assert.Zero(t, value)
}
