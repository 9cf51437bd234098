package market

import (
	"buyer-intent-engine/internal/apperr"
	"buyer-intent-engine/internal/logger"
	"buyer-intent-engine/internal/metrics"
	"buyer-intent-engine/internal/models"
	"buyer-intent-engine/internal/repository"
	"fmt"
	"time"
)

const day = 24 * time.Hour

type Service struct {
	zoneRepo     repository.ZoneRepository
	propertyRepo repository.PropertyRepository
	scarcityRepo repository.ScarcityRepository
	log          *logger.Logger
	now          func() time.Time
}

func NewService(
	zoneRepo repository.ZoneRepository,
	propertyRepo repository.PropertyRepository,
	scarcityRepo repository.ScarcityRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		zoneRepo:     zoneRepo,
		propertyRepo: propertyRepo,
		scarcityRepo: scarcityRepo,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// GetMarketSignals computes rolling listing activity for a zone. Sold and
// closed counts use the listing's updated_at as the transition time; the
// baseline is the number of listings that were live 30 days ago.
func (s *Service) GetMarketSignals(zoneID uint) (*models.MarketSignals, error) {
	zone, err := s.zoneRepo.GetByID(zoneID)
	if err != nil {
		return nil, fmt.Errorf("get zone %d: %w", zoneID, err)
	}
	if zone == nil {
		return nil, apperr.NotFound("zone", zoneID)
	}

	now := s.now()
	short := now.Add(-models.MarketShortWindowDays * day)
	long := now.Add(-models.MarketLongWindowDays * day)

	signals := &models.MarketSignals{ZoneID: zoneID, CalculatedAt: now}

	counts := []struct {
		dst *int64
		fn  func() (int64, error)
	}{
		{&signals.NewListings7d, func() (int64, error) { return s.propertyRepo.CountPublished(zoneID, &short) }},
		{&signals.NewListings30d, func() (int64, error) { return s.propertyRepo.CountPublished(zoneID, &long) }},
		{&signals.Sold7d, func() (int64, error) {
			return s.propertyRepo.CountByStatusUpdatedSince(zoneID, models.PropertyStatusSold, short)
		}},
		{&signals.Sold30d, func() (int64, error) {
			return s.propertyRepo.CountByStatusUpdatedSince(zoneID, models.PropertyStatusSold, long)
		}},
		{&signals.Closed7d, func() (int64, error) {
			return s.propertyRepo.CountByStatusUpdatedSince(zoneID, models.PropertyStatusRented, short)
		}},
		{&signals.Closed30d, func() (int64, error) {
			return s.propertyRepo.CountByStatusUpdatedSince(zoneID, models.PropertyStatusRented, long)
		}},
		{&signals.ActiveListingsCount, func() (int64, error) { return s.propertyRepo.CountPublished(zoneID, nil) }},
		{&signals.BaselineCount, func() (int64, error) { return s.propertyRepo.CountLiveAt(zoneID, long) }},
	}

	for _, c := range counts {
		n, err := c.fn()
		if err != nil {
			return nil, fmt.Errorf("count listings in zone %d: %w", zoneID, err)
		}
		*c.dst = n
	}

	if signals.BaselineCount > 0 {
		signals.PercentageChange = float64(signals.ActiveListingsCount-signals.BaselineCount) / float64(signals.BaselineCount) * 100
	}

	signals.IsScarcity = signals.ActiveListingsCount < models.ScarcityThreshold
	signals.IsIncrease = signals.PercentageChange > models.IncreaseThresholdPct

	return signals, nil
}

// GetMarketSignalsForZones skips unknown zones instead of failing.
func (s *Service) GetMarketSignalsForZones(zoneIDs []uint) (map[uint]*models.MarketSignals, error) {
	result := make(map[uint]*models.MarketSignals, len(zoneIDs))

	for _, zoneID := range zoneIDs {
		if _, done := result[zoneID]; done {
			continue
		}

		signals, err := s.GetMarketSignals(zoneID)
		if err != nil {
			if apperr.IsNotFound(err) {
				s.log.Warn("Skipping unknown zone %d", zoneID)
				continue
			}
			return nil, err
		}
		result[zoneID] = signals
	}

	return result, nil
}

// RecordScarcityTransitions appends a history row for every zone whose
// scarcity flag differs from its last recorded state.
func (s *Service) RecordScarcityTransitions() (int, error) {
	zoneIDs, err := s.zoneRepo.ListIDs()
	if err != nil {
		return 0, fmt.Errorf("list zones: %w", err)
	}

	written := 0
	for _, zoneID := range zoneIDs {
		changed, err := s.recordZone(zoneID)
		if err != nil {
			s.log.Error("Failed to record scarcity for zone %d: %v", zoneID, err)
			continue
		}
		if changed {
			written++
		}
	}

	metrics.RecordBatchJob("scarcity", written)
	s.log.Info("Recorded %d scarcity transitions across %d zones", written, len(zoneIDs))
	return written, nil
}

func (s *Service) recordZone(zoneID uint) (bool, error) {
	signals, err := s.GetMarketSignals(zoneID)
	if err != nil {
		return false, err
	}

	latest, err := s.scarcityRepo.ListRecent(zoneID, 1)
	if err != nil {
		return false, err
	}

	if len(latest) > 0 && latest[0].IsScarcity == signals.IsScarcity {
		return false, nil
	}

	err = s.scarcityRepo.Create(&models.ZoneScarcityHistory{
		ZoneID:         zoneID,
		IsScarcity:     signals.IsScarcity,
		ActiveListings: signals.ActiveListingsCount,
		RecordedAt:     signals.CalculatedAt,
	})
	if err != nil {
		return false, err
	}

	return true, nil
}
