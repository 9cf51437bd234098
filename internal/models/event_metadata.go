package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// EventMetadata is the structured payload attached to a buyer event. Every
// field is optional; unknown keys are dropped on decode.
type EventMetadata struct {
	Filters      *SearchFilters `json:"filters,omitempty"`
	ZoneID       *uint          `json:"zone_id,omitempty"`
	Zones        []uint         `json:"zones,omitempty"`
	PropertyType string         `json:"property_type,omitempty"`
	Source       string         `json:"source,omitempty"`
}

type SearchFilters struct {
	PriceMin     *float64       `json:"price_min,omitempty"`
	PriceMax     *float64       `json:"price_max,omitempty"`
	Bedrooms     *BedroomFilter `json:"bedrooms,omitempty"`
	PropertyType string         `json:"property_type,omitempty"`
}

// BedroomFilter accepts either a bare number or an object with min/max.
type BedroomFilter struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

func (b *BedroomFilter) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '{' {
		var obj struct {
			Min *float64 `json:"min"`
			Max *float64 `json:"max"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("bedrooms: %w", err)
		}
		lo, err := bedroomCount(obj.Min)
		if err != nil {
			return err
		}
		hi, err := bedroomCount(obj.Max)
		if err != nil {
			return err
		}
		b.Min = lo
		b.Max = hi
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("bedrooms: expected number or {min,max}: %w", err)
	}
	v, err := bedroomCount(&n)
	if err != nil {
		return err
	}
	b.Min = v
	b.Max = v
	return nil
}

// bedroomCount accepts whole non-negative numbers only; 2.0 is fine, 2.5 is not.
func bedroomCount(f *float64) (*int, error) {
	if f == nil {
		return nil, nil
	}
	if *f < 0 || *f != math.Trunc(*f) || *f > math.MaxInt32 {
		return nil, fmt.Errorf("bedrooms: %v is not a whole number of bedrooms", *f)
	}
	v := int(*f)
	return &v, nil
}

// DeclaredPropertyType returns the property type named by the event itself, if any.
func (m EventMetadata) DeclaredPropertyType() string {
	if m.PropertyType != "" {
		return m.PropertyType
	}
	if m.Filters != nil {
		return m.Filters.PropertyType
	}
	return ""
}
