package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	EventTypePropertySearch = "property_search"
	EventTypeFiltersApplied = "filters_applied"
	EventTypeListingView    = "listing_view"
	EventTypeRevisit        = "revisit"
	EventTypeContacted      = "contacted"

	// EventTypeSavedSearch is written by the saved-search collaborator, not by LogEvent.
	EventTypeSavedSearch = "saved_search"
)

// RevisitWindow is how recent a previous view must be for a listing view to count as a revisit.
const RevisitWindow = 7 * 24 * time.Hour

var eventWeights = map[string]float64{
	EventTypePropertySearch: 2,
	EventTypeFiltersApplied: 3,
	EventTypeListingView:    4,
	EventTypeRevisit:        6,
	EventTypeContacted:      25,
}

// EventWeight returns the intent score weight of an event type accepted by ingestion.
func EventWeight(eventType string) (float64, bool) {
	w, ok := eventWeights[eventType]
	return w, ok
}

func IsTrackedEventType(eventType string) bool {
	_, ok := eventWeights[eventType]
	return ok
}

type BuyerEvent struct {
	AppendOnlyModel

	BuyerID    uint                              `gorm:"index;not null" json:"buyer_id"`
	EventType  string                            `gorm:"index;not null" json:"event_type"`
	PropertyID *uint                             `gorm:"index" json:"property_id,omitempty"`
	ZoneID     *uint                             `gorm:"index" json:"zone_id,omitempty"`
	Metadata   datatypes.JSONType[EventMetadata] `gorm:"type:jsonb" json:"metadata"`
}

func (*BuyerEvent) TableName() string {
	return "buyer_events"
}
