package preferences

import (
	"buyer-intent-engine/internal/logger"
	"buyer-intent-engine/internal/models"
	"buyer-intent-engine/internal/repository"
	"fmt"
	"time"
)

// RecentEventWindow is how many of the newest events feed extraction.
const RecentEventWindow = 20

var voteWeights = map[string]float64{
	models.EventTypeSavedSearch:    3,
	models.EventTypeListingView:    2,
	models.EventTypeRevisit:        2,
	models.EventTypePropertySearch: 1,
	models.EventTypeFiltersApplied: 1,
}

func voteWeight(eventType string) float64 {
	if w, ok := voteWeights[eventType]; ok {
		return w
	}
	return 1
}

type Extractor struct {
	eventRepo    repository.BuyerEventRepository
	propertyRepo repository.PropertyRepository
	log          *logger.Logger
	now          func() time.Time
}

func NewExtractor(eventRepo repository.BuyerEventRepository, propertyRepo repository.PropertyRepository, log *logger.Logger) *Extractor {
	return &Extractor{
		eventRepo:    eventRepo,
		propertyRepo: propertyRepo,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (e *Extractor) SetClock(now func() time.Time) {
	e.now = now
}

// ExtractPreferences derives price, bedroom, type and zone interest from the
// buyer's newest events. Nothing is cached.
func (e *Extractor) ExtractPreferences(buyerID uint) (*models.BuyerPreferences, error) {
	events, err := e.eventRepo.ListRecent(buyerID, RecentEventWindow)
	if err != nil {
		return nil, fmt.Errorf("list recent events for buyer %d: %w", buyerID, err)
	}

	acc := newAccumulator()
	lookups := make(map[uint]string)

	for _, event := range events {
		meta := event.Metadata.Data()

		if meta.Filters != nil {
			acc.addPrice(meta.Filters.PriceMin, meta.Filters.PriceMax)
			if meta.Filters.Bedrooms != nil {
				acc.addBedrooms(meta.Filters.Bedrooms.Min, meta.Filters.Bedrooms.Max)
			}
		}

		propertyType := meta.DeclaredPropertyType()
		if propertyType == "" && event.PropertyID != nil {
			propertyType = e.lookupType(*event.PropertyID, lookups)
		}
		if propertyType != "" {
			acc.vote(propertyType, voteWeight(event.EventType))
		}

		if event.ZoneID != nil {
			acc.addZone(*event.ZoneID)
		}
		if meta.ZoneID != nil {
			acc.addZone(*meta.ZoneID)
		}
		for _, zoneID := range meta.Zones {
			acc.addZone(zoneID)
		}
	}

	return acc.result(buyerID, e.now()), nil
}

// lookupType resolves a property's type; failures contribute nothing.
func (e *Extractor) lookupType(propertyID uint, cache map[uint]string) string {
	if t, ok := cache[propertyID]; ok {
		return t
	}

	property, err := e.propertyRepo.GetByID(propertyID)
	if err != nil {
		e.log.Debug("Property %d lookup failed during extraction: %v", propertyID, err)
	}

	t := ""
	if property != nil {
		t = property.PropertyType
	}
	cache[propertyID] = t
	return t
}
