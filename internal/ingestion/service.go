package ingestion

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

type ScoreUpdater interface {
	UpdateIntentScore(buyerID uint, weight float64, reason string, eventID *uint) (*models.IntentScore, error)
}

type Service struct {
	buyerRepo repository.BuyerRepository
	eventRepo repository.BuyerEventRepository
	viewRepo  repository.PropertyViewRepository
	scorer    ScoreUpdater
	log       *logger.Logger
	now       func() time.Time
}

func NewService(
	buyerRepo repository.BuyerRepository,
	eventRepo repository.BuyerEventRepository,
	viewRepo repository.PropertyViewRepository,
	scorer ScoreUpdater,
	log *logger.Logger,
) *Service {
	return &Service{
		buyerRepo: buyerRepo,
		eventRepo: eventRepo,
		viewRepo:  viewRepo,
		scorer:    scorer,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// LogEvent stores one buyer action and forwards its weight to scoring. A
// listing view of a property seen within RevisitWindow is stored as a revisit.
func (s *Service) LogEvent(buyerID uint, eventType string, propertyID, zoneID *uint, metadata *models.EventMetadata) (*models.BuyerEvent, *models.IntentScore, error) {
	if buyerID == 0 {
		return nil, nil, apperr.InvalidInput("buyer id is required")
	}

	if !models.IsTrackedEventType(eventType) {
		return nil, nil, apperr.InvalidInput("unknown event type %q", eventType)
	}

	now := s.now()

	if _, err := s.buyerRepo.Touch(buyerID, now); err != nil {
		return nil, nil, fmt.Errorf("touch buyer %d: %w", buyerID, err)
	}

	if eventType == models.EventTypeListingView && propertyID != nil {
		view, err := s.viewRepo.Get(buyerID, *propertyID)
		if err != nil {
			return nil, nil, fmt.Errorf("get property view: %w", err)
		}
		if view.ViewedWithin(now, models.RevisitWindow) {
			eventType = models.EventTypeRevisit
		}
	}

	if propertyID != nil && (eventType == models.EventTypeListingView || eventType == models.EventTypeRevisit) {
		if _, err := s.viewRepo.RecordView(buyerID, *propertyID, now); err != nil {
			return nil, nil, fmt.Errorf("record property view: %w", err)
		}
	}

	var meta models.EventMetadata
	if metadata != nil {
		meta = *metadata
	}

	event := &models.BuyerEvent{
		AppendOnlyModel: models.AppendOnlyModel{CreatedAt: now},
		BuyerID:         buyerID,
		EventType:       eventType,
		PropertyID:      propertyID,
		ZoneID:          zoneID,
		Metadata:        datatypes.NewJSONType(meta),
	}

	if err := s.eventRepo.Create(event); err != nil {
		return nil, nil, fmt.Errorf("create buyer event: %w", err)
	}
	metrics.EventsIngested.WithLabelValues(eventType).Inc()

	weight, _ := models.EventWeight(eventType)
	score, err := s.scorer.UpdateIntentScore(buyerID, weight, "event:"+eventType, &event.ID)
	if err != nil {
		return event, nil, err
	}

	s.log.Debug("Logged %s for buyer %d (score %.2f)", eventType, buyerID, score.Score)
	return event, score, nil
}
