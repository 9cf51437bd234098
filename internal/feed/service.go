package feed

import (
	"buyer-intent-engine/internal/apperr"
	"buyer-intent-engine/internal/lock"
	"buyer-intent-engine/internal/logger"
	"buyer-intent-engine/internal/metrics"
	"buyer-intent-engine/internal/models"
	"buyer-intent-engine/internal/repository"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

type TriggerEvaluator interface {
	Evaluate(buyerID uint, triggerType models.TriggerType) ([]*models.Trigger, error)
	IsInCooldown(buyerID, agentID uint, triggerType models.TriggerType) (bool, error)
	ActiveCooldownUntil(buyerID, agentID uint, triggerType models.TriggerType) (*time.Time, error)
	HasRecentEngagement(buyerID, agentID uint) (bool, error)
	RecordTrigger(buyerID, agentID uint, trigger *models.Trigger) (*models.TriggerHistory, error)
}

type Service struct {
	userRepo    repository.UserRepository
	leadRepo    repository.LeadRepository
	evaluator   TriggerEvaluator
	locker      lock.Locker
	concurrency int
	log         *logger.Logger
	now         func() time.Time
}

func NewService(
	userRepo repository.UserRepository,
	leadRepo repository.LeadRepository,
	evaluator TriggerEvaluator,
	locker lock.Locker,
	concurrency int,
	log *logger.Logger,
) *Service {
	if concurrency <= 0 {
		concurrency = 1
	}
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}

	return &Service{
		userRepo:    userRepo,
		leadRepo:    leadRepo,
		evaluator:   evaluator,
		locker:      locker,
		concurrency: concurrency,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// GetPriorityFeed evaluates every buyer assigned to the agent, records what
// fired and returns the items ranked for contact.
func (s *Service) GetPriorityFeed(agentID uint) ([]*models.PriorityFeedItem, error) {
	start := time.Now()

	agent, err := s.userRepo.GetByID(agentID)
	if err != nil {
		return nil, fmt.Errorf("get agent %d: %w", agentID, err)
	}
	if agent == nil {
		return nil, apperr.NotFound("agent", agentID)
	}

	buyerIDs, err := s.leadRepo.ListBuyerIDsByAgent(agentID)
	if err != nil {
		return nil, fmt.Errorf("list buyers for agent %d: %w", agentID, err)
	}

	perBuyer := make([][]*models.PriorityFeedItem, len(buyerIDs))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for idx, buyerID := range buyerIDs {
		idx, buyerID := idx, buyerID
		g.Go(func() error {
			perBuyer[idx] = s.evaluateBuyer(agentID, buyerID)
			return nil
		})
	}
	_ = g.Wait()

	var items []*models.PriorityFeedItem
	for _, buyerItems := range perBuyer {
		items = append(items, buyerItems...)
	}

	ranked := Rank(items, s.now())

	metrics.FeedDuration.Observe(time.Since(start).Seconds())
	metrics.FeedItems.Observe(float64(len(ranked)))
	s.log.Debug("Feed for agent %d: %d items from %d buyers", agentID, len(ranked), len(buyerIDs))
	return ranked, nil
}

// evaluateBuyer never fails; problems are logged and the affected type dropped.
func (s *Service) evaluateBuyer(agentID, buyerID uint) []*models.PriorityFeedItem {
	engaged, err := s.evaluator.HasRecentEngagement(buyerID, agentID)
	if err != nil {
		s.log.Warn("Skipping buyer %d for agent %d: %v", buyerID, agentID, err)
		return nil
	}
	if engaged {
		for _, t := range models.TriggerTypes {
			metrics.RecordSuppressed(t.String(), "engagement")
		}
		return nil
	}

	var items []*models.PriorityFeedItem
	for _, triggerType := range models.TriggerTypes {
		inCooldown, err := s.evaluator.IsInCooldown(buyerID, agentID, triggerType)
		if err != nil {
			s.log.Warn("Cooldown check for %s (buyer %d) failed: %v", triggerType, buyerID, err)
			continue
		}
		if inCooldown {
			metrics.RecordSuppressed(triggerType.String(), "cooldown")
			continue
		}

		triggers, err := s.evaluator.Evaluate(buyerID, triggerType)
		if err != nil {
			metrics.TriggerEvaluationErrors.WithLabelValues(triggerType.String()).Inc()
			s.log.Warn("Evaluating %s for buyer %d failed: %v", triggerType, buyerID, err)
			continue
		}
		if len(triggers) == 0 {
			continue
		}

		fired, err := s.fire(agentID, buyerID, triggerType, triggers)
		if err != nil {
			s.log.Warn("Recording %s for buyer %d failed: %v", triggerType, buyerID, err)
		}
		items = append(items, fired...)
	}

	return items
}

// fire records the triggers of one type under the tuple lock. A concurrent
// feed that already recorded this type wins and nothing is returned here.
func (s *Service) fire(agentID, buyerID uint, triggerType models.TriggerType, triggers []*models.Trigger) ([]*models.PriorityFeedItem, error) {
	unlock, err := s.locker.Acquire(fmt.Sprintf("trigger:%d:%d:%s", buyerID, agentID, triggerType))
	if err != nil {
		return nil, err
	}
	defer unlock()

	inCooldown, err := s.evaluator.IsInCooldown(buyerID, agentID, triggerType)
	if err != nil {
		return nil, err
	}
	if inCooldown {
		metrics.RecordSuppressed(triggerType.String(), "concurrent")
		return nil, nil
	}

	items := make([]*models.PriorityFeedItem, 0, len(triggers))
	for _, trigger := range triggers {
		previous, err := s.evaluator.ActiveCooldownUntil(buyerID, agentID, triggerType)
		if err != nil {
			return items, err
		}

		cooldownUntil := s.now().Add(triggerType.Cooldown())
		if previous != nil {
			cooldownUntil = *previous
		}

		if _, err := s.evaluator.RecordTrigger(buyerID, agentID, trigger); err != nil {
			return items, err
		}

		items = append(items, toFeedItem(trigger, cooldownUntil))
	}

	return items, nil
}

func toFeedItem(trigger *models.Trigger, cooldownUntil time.Time) *models.PriorityFeedItem {
	item := &models.PriorityFeedItem{
		BuyerID:         trigger.BuyerID,
		IntentScore:     trigger.IntentScore,
		TriggerType:     trigger.Type,
		TriggeredAt:     trigger.TriggeredAt,
		Reason:          trigger.Reason,
		ZoneID:          trigger.Metadata.ZoneID,
		SuggestedAction: models.SuggestedAction(trigger.Type),
		CooldownUntil:   cooldownUntil,
	}
	if trigger.Metadata.PropertyID != nil {
		item.MatchedListingIDs = []uint{*trigger.Metadata.PropertyID}
	}
	return item
}
