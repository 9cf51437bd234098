package trigger

import (
	"buyer-intent-engine/internal/apperr"
	"buyer-intent-engine/internal/logger"
	"buyer-intent-engine/internal/market"
	"buyer-intent-engine/internal/models"
	"buyer-intent-engine/internal/preferences"
	"buyer-intent-engine/internal/repository"
	"buyer-intent-engine/internal/repository/memory"
	"buyer-intent-engine/internal/scoring"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

const day = 24 * time.Hour

type env struct {
	evaluator *Evaluator
	store     *memory.Store
	repos     *repository.Repositories
	now       time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()

	store := memory.NewStore()
	repos := store.Repositories()
	e := &env{store: store, repos: repos, now: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return e.now }
	log := logger.NewNop()

	scorer := scoring.NewService(repos.Scores, repos.Snapshots, nil, log)
	scorer.SetClock(clock)
	extractor := preferences.NewExtractor(repos.Events, repos.Properties, log)
	extractor.SetClock(clock)
	signals := market.NewService(repos.Zones, repos.Properties, repos.Scarcity, log)
	signals.SetClock(clock)

	e.evaluator = NewEvaluator(repos, scorer, extractor, signals, log)
	e.evaluator.SetClock(clock)
	return e
}

func (e *env) setScore(buyerID uint, score float64) {
	e.store.SetScore(&models.IntentScore{
		BuyerID:          buyerID,
		Score:            score,
		LastActivityAt:   e.now,
		LastCalculatedAt: e.now,
	})
}

func (e *env) snapshot(buyerID uint, score float64, ago time.Duration) {
	e.store.AddSnapshot(&models.IntentScoreSnapshot{BuyerID: buyerID, Score: score, SnapshotAt: e.now.Add(-ago)})
}

func (e *env) event(t *testing.T, buyerID uint, meta models.EventMetadata, zoneID *uint) {
	t.Helper()
	require.NoError(t, e.repos.Events.Create(&models.BuyerEvent{
		AppendOnlyModel: models.AppendOnlyModel{CreatedAt: e.now.Add(-time.Hour)},
		BuyerID:         buyerID,
		EventType:       models.EventTypePropertySearch,
		ZoneID:          zoneID,
		Metadata:        datatypes.NewJSONType(meta),
	}))
}

func (e *env) listing(zoneID uint, propertyType string, price float64, bedrooms int, publishedAgo time.Duration) *models.Property {
	published := e.now.Add(-publishedAgo)
	return e.store.SaveProperty(&models.Property{
		BaseModel:    models.BaseModel{UpdatedAt: published},
		ZoneID:       &zoneID,
		PropertyType: propertyType,
		Price:        price,
		Bedrooms:     bedrooms,
		Status:       models.PropertyStatusPublished,
		PublishedAt:  &published,
	})
}

func TestEvaluateIntentSpike(t *testing.T) {
	tests := []struct {
		name      string
		current   float64
		snapshot  *float64
		snapAgo   time.Duration
		wantFire  bool
		wantDelta float64
	}{
		{"below minimum score", 14, nil, 0, false, 0},
		{"no snapshot counts as zero", 20, nil, 0, true, 20},
		{"delta of fifteen", 45, f(30), 25 * time.Hour, true, 15},
		{"delta too small", 44, f(30), 25 * time.Hour, false, 0},
		{"high score smaller delta", 65, f(55), 25 * time.Hour, true, 10},
		{"high score delta too small", 65, f(56), 25 * time.Hour, false, 0},
		{"snapshot too recent is ignored", 40, f(39), 2 * time.Hour, true, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.setScore(1, tt.current)
			if tt.snapshot != nil {
				e.snapshot(1, *tt.snapshot, tt.snapAgo)
			}

			trigger, err := e.evaluator.EvaluateIntentSpike(1)
			require.NoError(t, err)

			if !tt.wantFire {
				assert.Nil(t, trigger)
				return
			}
			require.NotNil(t, trigger)
			assert.Equal(t, models.TriggerIntentSpike, trigger.Type)
			assert.Equal(t, e.now, trigger.TriggeredAt)
			assert.Equal(t, tt.current, trigger.IntentScore)
			assert.InDelta(t, tt.wantDelta, *trigger.Metadata.ScoreDelta, 1e-9)
			assert.Contains(t, trigger.Reason, "24h")
		})
	}
}

func TestEvaluateIntentSpike_UsesLatestOldSnapshot(t *testing.T) {
	e := newEnv(t)
	e.setScore(1, 50)
	e.snapshot(1, 10, 72*time.Hour)
	e.snapshot(1, 45, 30*time.Hour)
	e.snapshot(1, 0, time.Hour)

	trigger, err := e.evaluator.EvaluateIntentSpike(1)
	require.NoError(t, err)
	assert.Nil(t, trigger)
}

func TestEvaluateNewMatchingListings(t *testing.T) {
	e := newEnv(t)
	zone := e.store.AddZone(&models.Zone{Name: "Centre"}).ID
	other := e.store.AddZone(&models.Zone{Name: "Suburb"}).ID
	e.setScore(1, 30)

	e.event(t, 1, models.EventMetadata{
		PropertyType: "apartment",
		Filters: &models.SearchFilters{
			PriceMax: f(400000),
			Bedrooms: &models.BedroomFilter{Min: i(2)},
		},
	}, &zone)

	newest := e.listing(zone, "apartment", 350000, 2, time.Hour)
	older := e.listing(zone, "apartment", 300000, 3, 3*day)
	seen := e.listing(zone, "apartment", 300000, 3, 2*day)
	e.listing(zone, "apartment", 300000, 3, 8*day)
	e.listing(zone, "house", 300000, 3, day)
	e.listing(other, "apartment", 300000, 3, day)
	e.listing(zone, "apartment", 450000, 3, day)
	e.listing(zone, "apartment", 300000, 1, day)

	_, err := e.repos.Views.RecordView(1, seen.ID, e.now)
	require.NoError(t, err)

	triggers, err := e.evaluator.EvaluateNewMatchingListings(1)
	require.NoError(t, err)
	require.Len(t, triggers, 2)

	assert.Equal(t, newest.ID, *triggers[0].Metadata.PropertyID)
	assert.Equal(t, *newest.PublishedAt, triggers[0].TriggeredAt)
	assert.Equal(t, older.ID, *triggers[1].Metadata.PropertyID)
	assert.Equal(t, 30.0, triggers[1].IntentScore)
	assert.Equal(t, zone, *triggers[1].Metadata.ZoneID)
}

func TestEvaluateNewMatchingListings_CapsAtTen(t *testing.T) {
	e := newEnv(t)
	zone := e.store.AddZone(&models.Zone{Name: "Centre"}).ID
	e.event(t, 1, models.EventMetadata{}, &zone)

	for n := 0; n < 15; n++ {
		e.listing(zone, "flat", 100000, 1, time.Duration(n+1)*time.Hour)
	}

	triggers, err := e.evaluator.EvaluateNewMatchingListings(1)
	require.NoError(t, err)
	assert.Len(t, triggers, MaxMatchedListings)
}

func TestEvaluateNewMatchingListings_NoPreferences(t *testing.T) {
	e := newEnv(t)
	zone := e.store.AddZone(&models.Zone{Name: "Centre"}).ID
	e.listing(zone, "flat", 100000, 1, time.Hour)

	// price alone is not enough to match on
	e.event(t, 1, models.EventMetadata{Filters: &models.SearchFilters{PriceMax: f(500000)}}, nil)

	triggers, err := e.evaluator.EvaluateNewMatchingListings(1)
	require.NoError(t, err)
	assert.Empty(t, triggers)
}

func TestEvaluateMarketScarcity(t *testing.T) {
	tests := []struct {
		name     string
		active   int
		history  []scarcityRow
		wantFire bool
	}{
		{"fresh transition", 5, []scarcityRow{{false, 10 * day}, {true, 2 * day}}, true},
		{"first record is scarce", 5, []scarcityRow{{true, day}}, true},
		{"transition older than a week", 5, []scarcityRow{{false, 20 * day}, {true, 8 * day}}, false},
		{"scarce twice in a row", 5, []scarcityRow{{false, 20 * day}, {true, 5 * day}, {true, day}}, false},
		{"latest row not scarce", 5, []scarcityRow{{true, 5 * day}, {false, day}}, false},
		{"no history", 5, nil, false},
		{"zone not scarce now", 20, []scarcityRow{{false, 10 * day}, {true, 2 * day}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			zone := e.store.AddZone(&models.Zone{Name: "Marina"}).ID
			e.setScore(1, 12)
			e.event(t, 1, models.EventMetadata{}, &zone)

			for n := 0; n < tt.active; n++ {
				e.listing(zone, "flat", 1, 1, 60*day)
			}
			for _, row := range tt.history {
				require.NoError(t, e.repos.Scarcity.Create(&models.ZoneScarcityHistory{
					ZoneID:     zone,
					IsScarcity: row.scarce,
					RecordedAt: e.now.Add(-row.ago),
				}))
			}

			triggers, err := e.evaluator.EvaluateMarketScarcity(1)
			require.NoError(t, err)

			if !tt.wantFire {
				assert.Empty(t, triggers)
				return
			}
			require.Len(t, triggers, 1)
			last := tt.history[len(tt.history)-1]
			assert.Equal(t, e.now.Add(-last.ago), triggers[0].TriggeredAt)
			assert.Equal(t, zone, *triggers[0].Metadata.ZoneID)
			assert.Equal(t, 12.0, triggers[0].IntentScore)
		})
	}
}

func TestEvaluateMarketScarcity_SkipsUnknownZone(t *testing.T) {
	e := newEnv(t)
	zone := e.store.AddZone(&models.Zone{Name: "Marina"}).ID
	missing := uint(999)
	e.event(t, 1, models.EventMetadata{ZoneID: &missing}, &zone)
	require.NoError(t, e.repos.Scarcity.Create(&models.ZoneScarcityHistory{ZoneID: zone, IsScarcity: true, RecordedAt: e.now}))

	triggers, err := e.evaluator.EvaluateMarketScarcity(1)
	require.NoError(t, err)
	require.Len(t, triggers, 1)
	assert.Equal(t, zone, *triggers[0].Metadata.ZoneID)
}

func TestCooldownAndRecording(t *testing.T) {
	e := newEnv(t)
	trigger := &models.Trigger{BuyerID: 1, Type: models.TriggerNewMatchingListing, TriggeredAt: e.now.Add(-time.Hour)}

	inCooldown, err := e.evaluator.IsInCooldown(1, 2, models.TriggerNewMatchingListing)
	require.NoError(t, err)
	assert.False(t, inCooldown)

	history, err := e.evaluator.RecordTrigger(1, 2, trigger)
	require.NoError(t, err)
	assert.Equal(t, e.now.Add(12*time.Hour), history.CooldownUntil)
	assert.Equal(t, trigger.TriggeredAt, history.TriggeredAt)

	inCooldown, err = e.evaluator.IsInCooldown(1, 2, models.TriggerNewMatchingListing)
	require.NoError(t, err)
	assert.True(t, inCooldown)

	// other agents and types are independent
	inCooldown, err = e.evaluator.IsInCooldown(1, 3, models.TriggerNewMatchingListing)
	require.NoError(t, err)
	assert.False(t, inCooldown)
	inCooldown, err = e.evaluator.IsInCooldown(1, 2, models.TriggerIntentSpike)
	require.NoError(t, err)
	assert.False(t, inCooldown)

	// recording again while in cooldown still appends and extends
	e.now = e.now.Add(6 * time.Hour)
	_, err = e.evaluator.RecordTrigger(1, 2, trigger)
	require.NoError(t, err)
	until, err := e.evaluator.ActiveCooldownUntil(1, 2, models.TriggerNewMatchingListing)
	require.NoError(t, err)
	assert.Equal(t, e.now.Add(12*time.Hour), *until)
	assert.Len(t, e.store.TriggerHistories(), 2)

	e.now = e.now.Add(12 * time.Hour)
	inCooldown, err = e.evaluator.IsInCooldown(1, 2, models.TriggerNewMatchingListing)
	require.NoError(t, err)
	assert.False(t, inCooldown)
}

func TestHasRecentEngagement(t *testing.T) {
	e := newEnv(t)

	require.NoError(t, e.repos.Engagements.Create(&models.AgentBuyerEngagement{
		AppendOnlyModel: models.AppendOnlyModel{CreatedAt: e.now.Add(-25 * time.Hour)},
		AgentID:         2,
		BuyerID:         1,
		EngagementType:  models.EngagementNote,
	}))

	engaged, err := e.evaluator.HasRecentEngagement(1, 2)
	require.NoError(t, err)
	assert.False(t, engaged)

	require.NoError(t, e.repos.Engagements.Create(&models.AgentBuyerEngagement{
		AppendOnlyModel: models.AppendOnlyModel{CreatedAt: e.now.Add(-23 * time.Hour)},
		AgentID:         2,
		BuyerID:         1,
		EngagementType:  models.EngagementCallClick,
	}))

	engaged, err = e.evaluator.HasRecentEngagement(1, 2)
	require.NoError(t, err)
	assert.True(t, engaged)

	engaged, err = e.evaluator.HasRecentEngagement(1, 3)
	require.NoError(t, err)
	assert.False(t, engaged)
}

func TestEvaluate_UnknownType(t *testing.T) {
	e := newEnv(t)

	_, err := e.evaluator.Evaluate(1, models.TriggerType("price_drop"))
	assert.True(t, apperr.IsInvalidInput(err))
}

type failingScores struct{}

func (failingScores) GetIntentScore(uint) (float64, error) {
	return 0, errors.New("db down")
}

func (failingScores) ScoreAt(uint, time.Time) (float64, error) {
	return 0, errors.New("db down")
}

func TestEvaluateIntentSpike_PropagatesErrors(t *testing.T) {
	e := newEnv(t)
	e.evaluator.scores = failingScores{}

	_, err := e.evaluator.EvaluateIntentSpike(1)
	assert.Error(t, err)
}

type scarcityRow struct {
	scarce bool
	ago    time.Duration
}

func f(v float64) *float64 { return &v }

func i(v int) *int { return &v }
