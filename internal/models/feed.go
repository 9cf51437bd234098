package models

import "time"

const (
	ActionContactBuyer    = "contact_buyer"
	ActionSendListing     = "send_listing"
	ActionScheduleShowing = "schedule_showing"
)

var suggestedActions = map[TriggerType]string{
	TriggerIntentSpike:        ActionContactBuyer,
	TriggerNewMatchingListing: ActionSendListing,
	TriggerMarketScarcity:     ActionScheduleShowing,
}

func SuggestedAction(t TriggerType) string {
	return suggestedActions[t]
}

type PriorityFeedItem struct {
	BuyerID           uint        `json:"buyer_id"`
	IntentScore       float64     `json:"intent_score"`
	TriggerType       TriggerType `json:"trigger_type"`
	TriggeredAt       time.Time   `json:"triggered_at"`
	Reason            string      `json:"reason"`
	MatchedListingIDs []uint      `json:"matched_listing_ids,omitempty"`
	ZoneID            *uint       `json:"zone_id,omitempty"`
	SuggestedAction   string      `json:"suggested_action"`
	CooldownUntil     time.Time   `json:"cooldown_until"`
}
