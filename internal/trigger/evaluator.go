package trigger

import (
	"buyer-intent-engine/internal/apperr"
	"buyer-intent-engine/internal/logger"
	"buyer-intent-engine/internal/metrics"
	"buyer-intent-engine/internal/models"
	"buyer-intent-engine/internal/repository"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

const (
	SpikeMinScore      = 15.0
	SpikeDelta         = 15.0
	SpikeHighScore     = 60.0
	SpikeHighDelta     = 10.0
	SpikeLookback      = 24 * time.Hour
	ListingLookback    = 7 * 24 * time.Hour
	MaxMatchedListings = 10
	ScarcityFreshness  = 7 * 24 * time.Hour
	EngagementWindow   = 24 * time.Hour
)

type ScoreReader interface {
	GetIntentScore(buyerID uint) (float64, error)
	ScoreAt(buyerID uint, at time.Time) (float64, error)
}

type PreferenceExtractor interface {
	ExtractPreferences(buyerID uint) (*models.BuyerPreferences, error)
}

type MarketReader interface {
	GetMarketSignals(zoneID uint) (*models.MarketSignals, error)
}

type Evaluator struct {
	scores      ScoreReader
	preferences PreferenceExtractor
	market      MarketReader

	viewRepo       repository.PropertyViewRepository
	propertyRepo   repository.PropertyRepository
	scarcityRepo   repository.ScarcityRepository
	historyRepo    repository.TriggerHistoryRepository
	engagementRepo repository.EngagementRepository

	log *logger.Logger
	now func() time.Time
}

func NewEvaluator(
	repos *repository.Repositories,
	scores ScoreReader,
	preferences PreferenceExtractor,
	market MarketReader,
	log *logger.Logger,
) *Evaluator {
	return &Evaluator{
		scores:         scores,
		preferences:    preferences,
		market:         market,
		viewRepo:       repos.Views,
		propertyRepo:   repos.Properties,
		scarcityRepo:   repos.Scarcity,
		historyRepo:    repos.Triggers,
		engagementRepo: repos.Engagements,
		log:            log,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (e *Evaluator) SetClock(now func() time.Time) {
	e.now = now
}

// Evaluate runs the evaluator for one trigger type.
func (e *Evaluator) Evaluate(buyerID uint, triggerType models.TriggerType) ([]*models.Trigger, error) {
	switch triggerType {
	case models.TriggerIntentSpike:
		t, err := e.EvaluateIntentSpike(buyerID)
		if err != nil || t == nil {
			return nil, err
		}
		return []*models.Trigger{t}, nil
	case models.TriggerNewMatchingListing:
		return e.EvaluateNewMatchingListings(buyerID)
	case models.TriggerMarketScarcity:
		return e.EvaluateMarketScarcity(buyerID)
	default:
		return nil, apperr.InvalidInput("unknown trigger type %q", triggerType)
	}
}

// EvaluateIntentSpike compares the current score with the latest snapshot
// taken at least SpikeLookback ago.
func (e *Evaluator) EvaluateIntentSpike(buyerID uint) (*models.Trigger, error) {
	current, err := e.scores.GetIntentScore(buyerID)
	if err != nil {
		return nil, err
	}
	if current < SpikeMinScore {
		return nil, nil
	}

	now := e.now()
	previous, err := e.scores.ScoreAt(buyerID, now.Add(-SpikeLookback))
	if err != nil {
		return nil, err
	}

	delta := current - previous
	if delta < SpikeDelta && !(current >= SpikeHighScore && delta >= SpikeHighDelta) {
		return nil, nil
	}

	return &models.Trigger{
		BuyerID:     buyerID,
		Type:        models.TriggerIntentSpike,
		IntentScore: current,
		TriggeredAt: now,
		Reason:      fmt.Sprintf("Intent score up %.1f in 24h (%.1f -> %.1f)", delta, previous, current),
		Metadata: models.TriggerMetadata{
			ScoreDelta:  &delta,
			ScoreBefore: &previous,
			ScoreAfter:  &current,
		},
	}, nil
}

// EvaluateNewMatchingListings returns one trigger per recently published,
// unseen listing that fits the buyer's preferences, newest first.
func (e *Evaluator) EvaluateNewMatchingListings(buyerID uint) ([]*models.Trigger, error) {
	prefs, err := e.preferences.ExtractPreferences(buyerID)
	if err != nil {
		return nil, err
	}
	if prefs.IsEmpty() {
		return nil, nil
	}

	viewed, err := e.viewRepo.ListViewedPropertyIDs(buyerID)
	if err != nil {
		return nil, err
	}

	filter := repository.PropertyFilter{
		PublishedSince: e.now().Add(-ListingLookback),
		ExcludeIDs:     viewed,
		PropertyType:   prefs.PropertyType,
		ZoneIDs:        prefs.Zones,
		Limit:          MaxMatchedListings,
	}
	if prefs.PriceRange != nil {
		filter.PriceMin = prefs.PriceRange.Min
		filter.PriceMax = prefs.PriceRange.Max
	}
	if prefs.Bedrooms != nil {
		filter.BedroomsMin = prefs.Bedrooms.Min
		filter.BedroomsMax = prefs.Bedrooms.Max
	}

	properties, err := e.propertyRepo.FindPublished(filter)
	if err != nil {
		return nil, err
	}
	if len(properties) == 0 {
		return nil, nil
	}

	score, err := e.scores.GetIntentScore(buyerID)
	if err != nil {
		return nil, err
	}

	triggers := make([]*models.Trigger, 0, len(properties))
	for _, p := range properties {
		propertyID := p.ID
		triggers = append(triggers, &models.Trigger{
			BuyerID:     buyerID,
			Type:        models.TriggerNewMatchingListing,
			IntentScore: score,
			TriggeredAt: *p.PublishedAt,
			Reason:      fmt.Sprintf("New %s listing #%d matches buyer preferences", listingKind(p), p.ID),
			Metadata: models.TriggerMetadata{
				PropertyID: &propertyID,
				ZoneID:     p.ZoneID,
			},
		})
	}

	return triggers, nil
}

func listingKind(p *models.Property) string {
	if p.PropertyType == "" {
		return "property"
	}
	return p.PropertyType
}

// EvaluateMarketScarcity fires for each preferred zone that turned scarce
// within ScarcityFreshness. Zones whose signals fail are skipped.
func (e *Evaluator) EvaluateMarketScarcity(buyerID uint) ([]*models.Trigger, error) {
	prefs, err := e.preferences.ExtractPreferences(buyerID)
	if err != nil {
		return nil, err
	}
	if len(prefs.Zones) == 0 {
		return nil, nil
	}

	now := e.now()
	var score *float64
	var triggers []*models.Trigger

	for _, zoneID := range prefs.Zones {
		signals, err := e.market.GetMarketSignals(zoneID)
		if err != nil {
			e.log.Warn("Market signals for zone %d unavailable (buyer %d): %v", zoneID, buyerID, err)
			continue
		}
		if !signals.IsScarcity {
			continue
		}

		rows, err := e.scarcityRepo.ListRecent(zoneID, 2)
		if err != nil {
			e.log.Warn("Scarcity history for zone %d unavailable: %v", zoneID, err)
			continue
		}
		if !freshScarcityTransition(rows, now) {
			continue
		}

		if score == nil {
			current, err := e.scores.GetIntentScore(buyerID)
			if err != nil {
				return nil, err
			}
			score = &current
		}

		zone := zoneID
		triggers = append(triggers, &models.Trigger{
			BuyerID:     buyerID,
			Type:        models.TriggerMarketScarcity,
			IntentScore: *score,
			TriggeredAt: rows[0].RecordedAt,
			Reason:      fmt.Sprintf("Zone %d inventory dropped to %d active listings", zoneID, signals.ActiveListingsCount),
			Metadata:    models.TriggerMetadata{ZoneID: &zone},
		})
	}

	return triggers, nil
}

// freshScarcityTransition expects rows newest first. A missing previous row counts as non-scarce.
func freshScarcityTransition(rows []*models.ZoneScarcityHistory, now time.Time) bool {
	if len(rows) == 0 || !rows[0].IsScarcity {
		return false
	}
	if len(rows) > 1 && rows[1].IsScarcity {
		return false
	}
	return !rows[0].RecordedAt.Before(now.Add(-ScarcityFreshness))
}

func (e *Evaluator) IsInCooldown(buyerID, agentID uint, triggerType models.TriggerType) (bool, error) {
	until, err := e.ActiveCooldownUntil(buyerID, agentID, triggerType)
	if err != nil {
		return false, err
	}
	return until != nil, nil
}

// ActiveCooldownUntil returns the furthest unexpired cooldown for the tuple, or nil.
func (e *Evaluator) ActiveCooldownUntil(buyerID, agentID uint, triggerType models.TriggerType) (*time.Time, error) {
	history, err := e.historyRepo.LatestActive(buyerID, agentID, triggerType, e.now())
	if err != nil {
		return nil, fmt.Errorf("get cooldown for buyer %d agent %d: %w", buyerID, agentID, err)
	}
	if history == nil {
		return nil, nil
	}
	until := history.CooldownUntil
	return &until, nil
}

func (e *Evaluator) HasRecentEngagement(buyerID, agentID uint) (bool, error) {
	engaged, err := e.engagementRepo.ExistsSince(buyerID, agentID, e.now().Add(-EngagementWindow))
	if err != nil {
		return false, fmt.Errorf("check engagement for buyer %d agent %d: %w", buyerID, agentID, err)
	}
	return engaged, nil
}

// RecordTrigger appends a history row whose cooldown starts now. It does not
// check for an existing cooldown.
func (e *Evaluator) RecordTrigger(buyerID, agentID uint, trigger *models.Trigger) (*models.TriggerHistory, error) {
	now := e.now()

	history := &models.TriggerHistory{
		AppendOnlyModel: models.AppendOnlyModel{CreatedAt: now},
		BuyerID:         buyerID,
		AgentID:         agentID,
		TriggerType:     trigger.Type,
		TriggeredAt:     trigger.TriggeredAt,
		CooldownUntil:   now.Add(trigger.Type.Cooldown()),
		Metadata:        datatypes.NewJSONType(trigger.Metadata),
	}

	if err := e.historyRepo.Create(history); err != nil {
		return nil, fmt.Errorf("record %s trigger: %w", trigger.Type, err)
	}

	metrics.TriggersFired.WithLabelValues(trigger.Type.String()).Inc()
	return history, nil
}
