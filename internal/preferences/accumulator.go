package preferences

import (
	"buyer-intent-engine/internal/models"
	"time"
)

type accumulator struct {
	priceMin *float64
	priceMax *float64
	bedMin   *int
	bedMax   *int

	votes     map[string]float64
	voteOrder []string

	zones    []uint
	zoneSeen map[uint]bool
}

func newAccumulator() *accumulator {
	return &accumulator{
		votes:    make(map[string]float64),
		zoneSeen: make(map[uint]bool),
	}
}

func (a *accumulator) addPrice(lo, hi *float64) {
	if lo != nil && (a.priceMin == nil || *lo < *a.priceMin) {
		v := *lo
		a.priceMin = &v
	}
	if hi != nil && (a.priceMax == nil || *hi > *a.priceMax) {
		v := *hi
		a.priceMax = &v
	}
}

func (a *accumulator) addBedrooms(lo, hi *int) {
	if lo != nil && (a.bedMin == nil || *lo < *a.bedMin) {
		v := *lo
		a.bedMin = &v
	}
	if hi != nil && (a.bedMax == nil || *hi > *a.bedMax) {
		v := *hi
		a.bedMax = &v
	}
}

func (a *accumulator) vote(propertyType string, weight float64) {
	if _, ok := a.votes[propertyType]; !ok {
		a.voteOrder = append(a.voteOrder, propertyType)
	}
	a.votes[propertyType] += weight
}

// winner picks the highest total; on a tie the type seen first (newest event) wins.
func (a *accumulator) winner() string {
	best := ""
	bestWeight := 0.0
	for _, t := range a.voteOrder {
		if a.votes[t] > bestWeight {
			best = t
			bestWeight = a.votes[t]
		}
	}
	return best
}

func (a *accumulator) addZone(zoneID uint) {
	if a.zoneSeen[zoneID] {
		return
	}
	a.zoneSeen[zoneID] = true
	a.zones = append(a.zones, zoneID)
}

func (a *accumulator) result(buyerID uint, at time.Time) *models.BuyerPreferences {
	prefs := &models.BuyerPreferences{
		BuyerID:      buyerID,
		PropertyType: a.winner(),
		Zones:        a.zones,
		ExtractedAt:  at,
	}
	if prefs.Zones == nil {
		prefs.Zones = []uint{}
	}

	if a.priceMin != nil || a.priceMax != nil {
		prefs.PriceRange = &models.PriceRange{Min: a.priceMin, Max: a.priceMax}
	}

	if a.bedMin != nil || a.bedMax != nil {
		prefs.Bedrooms = &models.BedroomRange{Min: a.bedMin, Max: a.bedMax}
	}

	return prefs
}
