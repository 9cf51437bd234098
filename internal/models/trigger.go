package models

import (
	"time"

	"gorm.io/datatypes"
)

type TriggerType string

const (
	TriggerIntentSpike        TriggerType = "intent_spike"
	TriggerNewMatchingListing TriggerType = "new_matching_listing"
	TriggerMarketScarcity     TriggerType = "market_scarcity"
)

// TriggerTypes is the evaluation order used by the feed.
var TriggerTypes = []TriggerType{
	TriggerIntentSpike,
	TriggerNewMatchingListing,
	TriggerMarketScarcity,
}

var cooldownHours = map[TriggerType]int{
	TriggerIntentSpike:        24,
	TriggerNewMatchingListing: 12,
	TriggerMarketScarcity:     48,
}

func (t TriggerType) IsValid() bool {
	_, ok := cooldownHours[t]
	return ok
}

func (t TriggerType) Cooldown() time.Duration {
	return time.Duration(cooldownHours[t]) * time.Hour
}

func (t TriggerType) String() string {
	return string(t)
}

type TriggerMetadata struct {
	PropertyID  *uint    `json:"property_id,omitempty"`
	ZoneID      *uint    `json:"zone_id,omitempty"`
	ScoreDelta  *float64 `json:"score_delta,omitempty"`
	ScoreBefore *float64 `json:"score_before,omitempty"`
	ScoreAfter  *float64 `json:"score_after,omitempty"`
}

// Trigger is produced fresh by every evaluation and never persisted as-is.
type Trigger struct {
	BuyerID     uint            `json:"buyer_id"`
	Type        TriggerType     `json:"trigger_type"`
	IntentScore float64         `json:"intent_score"`
	TriggeredAt time.Time       `json:"triggered_at"`
	Reason      string          `json:"reason"`
	Metadata    TriggerMetadata `json:"metadata"`
}

type TriggerHistory struct {
	AppendOnlyModel

	BuyerID       uint                                `gorm:"index:idx_trigger_tuple,priority:1;not null" json:"buyer_id"`
	AgentID       uint                                `gorm:"index:idx_trigger_tuple,priority:2;not null" json:"agent_id"`
	TriggerType   TriggerType                         `gorm:"index:idx_trigger_tuple,priority:3;type:varchar(32);not null" json:"trigger_type"`
	TriggeredAt   time.Time                           `gorm:"not null" json:"triggered_at"`
	CooldownUntil time.Time                           `gorm:"index;not null" json:"cooldown_until"`
	Metadata      datatypes.JSONType[TriggerMetadata] `gorm:"type:jsonb" json:"metadata"`
}

func (*TriggerHistory) TableName() string {
	return "trigger_histories"
}
