package feed

import (
	"buyer-intent-engine/internal/apperr"
	"buyer-intent-engine/internal/logger"
	"buyer-intent-engine/internal/market"
	"buyer-intent-engine/internal/models"
	"buyer-intent-engine/internal/preferences"
	"buyer-intent-engine/internal/repository"
	"buyer-intent-engine/internal/repository/memory"
	"buyer-intent-engine/internal/scoring"
	"buyer-intent-engine/internal/trigger"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type world struct {
	feed      *Service
	evaluator *trigger.Evaluator
	store     *memory.Store
	repos     *repository.Repositories
	agent     *models.User

	mu  sync.Mutex
	now time.Time
}

func newWorld(t *testing.T, concurrency int) *world {
	t.Helper()

	store := memory.NewStore()
	repos := store.Repositories()
	w := &world{store: store, repos: repos, now: time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)}
	clock := w.clock
	log := logger.NewNop()

	scorer := scoring.NewService(repos.Scores, repos.Snapshots, nil, log)
	scorer.SetClock(clock)
	extractor := preferences.NewExtractor(repos.Events, repos.Properties, log)
	extractor.SetClock(clock)
	signals := market.NewService(repos.Zones, repos.Properties, repos.Scarcity, log)
	signals.SetClock(clock)

	w.evaluator = trigger.NewEvaluator(repos, scorer, extractor, signals, log)
	w.evaluator.SetClock(clock)

	w.feed = NewService(repos.Users, repos.Leads, w.evaluator, nil, concurrency, log)
	w.feed.SetClock(clock)

	w.agent = store.AddUser(&models.User{Name: "Dana", Role: models.UserRoleAgent})
	return w
}

func (w *world) clock() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.now
}

func (w *world) advance(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.now = w.now.Add(d)
}

func (w *world) assign(buyerID uint) {
	w.store.AddLead(&models.Lead{AgentID: w.agent.ID, BuyerID: &buyerID})
}

// spiking gives the buyer a score that fires an intent spike (no snapshot yet).
func (w *world) spiking(buyerID uint, score float64) {
	now := w.clock()
	w.store.SetScore(&models.IntentScore{BuyerID: buyerID, Score: score, LastActivityAt: now, LastCalculatedAt: now})
}

func (w *world) engage(buyerID uint, ago time.Duration) {
	_ = w.repos.Engagements.Create(&models.AgentBuyerEngagement{
		AppendOnlyModel: models.AppendOnlyModel{CreatedAt: w.clock().Add(-ago)},
		AgentID:         w.agent.ID,
		BuyerID:         buyerID,
		EngagementType:  models.EngagementWhatsAppClick,
	})
}

func countType(items []*models.PriorityFeedItem, t models.TriggerType) int {
	n := 0
	for _, item := range items {
		if item.TriggerType == t {
			n++
		}
	}
	return n
}

func TestGetPriorityFeed_UnknownAgent(t *testing.T) {
	w := newWorld(t, 4)

	_, err := w.feed.GetPriorityFeed(999)
	assert.True(t, apperr.IsNotFound(err))
}

func TestGetPriorityFeed_NoBuyers(t *testing.T) {
	w := newWorld(t, 4)
	w.store.AddLead(&models.Lead{AgentID: w.agent.ID})

	items, err := w.feed.GetPriorityFeed(w.agent.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGetPriorityFeed_SpikeFiresOncePerCooldown(t *testing.T) {
	w := newWorld(t, 4)
	w.assign(1)
	w.spiking(1, 40)

	items, err := w.feed.GetPriorityFeed(w.agent.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, uint(1), item.BuyerID)
	assert.Equal(t, models.TriggerIntentSpike, item.TriggerType)
	assert.Equal(t, models.ActionContactBuyer, item.SuggestedAction)
	assert.Equal(t, w.clock().Add(24*time.Hour), item.CooldownUntil)
	assert.Equal(t, 40.0, item.IntentScore)

	w.advance(23 * time.Hour)
	items, err = w.feed.GetPriorityFeed(w.agent.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Len(t, w.store.TriggerHistories(), 1)

	w.advance(2 * time.Hour)
	items, err = w.feed.GetPriorityFeed(w.agent.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, countType(items, models.TriggerIntentSpike))
	assert.Len(t, w.store.TriggerHistories(), 2)
}

func TestGetPriorityFeed_EngagementSuppressesBuyer(t *testing.T) {
	w := newWorld(t, 4)
	w.assign(1)
	w.assign(2)
	w.spiking(1, 70)
	w.spiking(2, 70)
	w.engage(1, 2*time.Hour)
	w.engage(2, 30*time.Hour)

	items, err := w.feed.GetPriorityFeed(w.agent.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, uint(2), items[0].BuyerID)

	for _, h := range w.store.TriggerHistories() {
		assert.NotEqual(t, uint(1), h.BuyerID, "suppressed buyer must not be recorded")
	}
}

func TestGetPriorityFeed_MatchingListingsShareCooldown(t *testing.T) {
	w := newWorld(t, 2)
	zone := w.store.AddZone(&models.Zone{Name: "Riverside"}).ID
	w.assign(1)

	require.NoError(t, w.repos.Events.Create(&models.BuyerEvent{
		AppendOnlyModel: models.AppendOnlyModel{CreatedAt: w.clock().Add(-time.Hour)},
		BuyerID:         1,
		EventType:       models.EventTypeListingView,
		ZoneID:          &zone,
		Metadata:        datatypes.NewJSONType(models.EventMetadata{PropertyType: "flat"}),
	}))

	// keep the zone above the scarcity threshold
	for n := 0; n < 20; n++ {
		published := w.clock().Add(-60 * 24 * time.Hour)
		w.store.SaveProperty(&models.Property{ZoneID: &zone, PropertyType: "house", Status: models.PropertyStatusPublished, PublishedAt: &published})
	}
	var listings []*models.Property
	for n := 0; n < 3; n++ {
		published := w.clock().Add(-time.Duration(n+1) * time.Hour)
		listings = append(listings, w.store.SaveProperty(&models.Property{
			ZoneID:       &zone,
			PropertyType: "flat",
			Status:       models.PropertyStatusPublished,
			PublishedAt:  &published,
		}))
	}

	items, err := w.feed.GetPriorityFeed(w.agent.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)

	want := w.clock().Add(12 * time.Hour)
	for idx, item := range items {
		assert.Equal(t, models.TriggerNewMatchingListing, item.TriggerType)
		assert.Equal(t, models.ActionSendListing, item.SuggestedAction)
		assert.Equal(t, want, item.CooldownUntil)
		assert.Equal(t, []uint{listings[idx].ID}, item.MatchedListingIDs)
	}
	assert.Len(t, w.store.TriggerHistories(), 3)
}

func TestGetPriorityFeed_ConcurrentCallsFireOnce(t *testing.T) {
	w := newWorld(t, 4)
	for id := uint(1); id <= 5; id++ {
		w.assign(id)
		w.spiking(id, 30)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0
	for n := 0; n < 8; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := w.feed.GetPriorityFeed(w.agent.ID)
			assert.NoError(t, err)
			mu.Lock()
			total += len(items)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, total)
	assert.Len(t, w.store.TriggerHistories(), 5)
}

func TestGetPriorityFeed_RanksAcrossBuyers(t *testing.T) {
	w := newWorld(t, 3)
	w.assign(1)
	w.assign(2)
	w.assign(3)
	w.spiking(1, 20)
	w.spiking(2, 90)
	w.spiking(3, 55)

	items, err := w.feed.GetPriorityFeed(w.agent.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []uint{2, 3, 1}, []uint{items[0].BuyerID, items[1].BuyerID, items[2].BuyerID})
}

type flakyEvaluator struct {
	*trigger.Evaluator
	failBuyer uint
}

func (f *flakyEvaluator) Evaluate(buyerID uint, t models.TriggerType) ([]*models.Trigger, error) {
	if buyerID == f.failBuyer {
		return nil, errors.New("zone lookup failed")
	}
	return f.Evaluator.Evaluate(buyerID, t)
}

func TestGetPriorityFeed_IsolatesBuyerFailures(t *testing.T) {
	w := newWorld(t, 2)
	w.assign(1)
	w.assign(2)
	w.spiking(1, 40)
	w.spiking(2, 40)

	svc := NewService(w.repos.Users, w.repos.Leads, &flakyEvaluator{Evaluator: w.evaluator, failBuyer: 1}, nil, 2, logger.NewNop())
	svc.SetClock(w.clock)

	items, err := svc.GetPriorityFeed(w.agent.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, uint(2), items[0].BuyerID)
}
