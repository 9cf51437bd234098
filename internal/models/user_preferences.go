package models

import "time"

type PriceRange struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

type BedroomRange struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

// BuyerPreferences is derived from recent events on every call and never stored.
type BuyerPreferences struct {
	BuyerID      uint          `json:"buyer_id"`
	PriceRange   *PriceRange   `json:"price_range"`
	Bedrooms     *BedroomRange `json:"bedrooms"`
	PropertyType string        `json:"property_type,omitempty"`
	Zones        []uint        `json:"zones"`
	ExtractedAt  time.Time     `json:"extracted_at"`
}

func (p *BuyerPreferences) IsEmpty() bool {
	return len(p.Zones) == 0 && p.PropertyType == ""
}
