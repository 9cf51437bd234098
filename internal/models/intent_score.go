package models

import (
	"math"
	"time"
)

const (
	MinIntentScore = 0.0
	MaxIntentScore = 100.0

	// DailyDecayFactor is applied once per elapsed day (5% per day).
	DailyDecayFactor = 0.95

	// DecayLogThreshold is the smallest decay magnitude that gets an audit row.
	DecayLogThreshold = 0.01
)

type IntentScore struct {
	ID               uint      `gorm:"primary_key" json:"id"`
	BuyerID          uint      `gorm:"uniqueIndex;not null" json:"buyer_id"`
	Score            float64   `gorm:"not null;default:0" json:"score"`
	LastCalculatedAt time.Time `gorm:"not null" json:"last_calculated_at"`
	LastActivityAt   time.Time `gorm:"index;not null" json:"last_activity_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (*IntentScore) TableName() string {
	return "intent_scores"
}

// DecayAnchor is the instant from which pending decay is measured.
func (s *IntentScore) DecayAnchor() time.Time {
	if s.LastCalculatedAt.After(s.LastActivityAt) {
		return s.LastCalculatedAt
	}
	return s.LastActivityAt
}

func ClampScore(score float64) float64 {
	return math.Max(MinIntentScore, math.Min(MaxIntentScore, score))
}

// Decay applies DailyDecayFactor for a fractional number of days.
func Decay(score, days float64) float64 {
	if days <= 0 {
		return score
	}
	return score * math.Pow(DailyDecayFactor, days)
}

type IntentScoreLog struct {
	AppendOnlyModel

	BuyerID     uint    `gorm:"index;not null" json:"buyer_id"`
	ScoreBefore float64 `gorm:"not null" json:"score_before"`
	ScoreAfter  float64 `gorm:"not null" json:"score_after"`
	Reason      string  `gorm:"not null" json:"reason"`
	EventID     *uint   `gorm:"index" json:"event_id,omitempty"`
}

func (*IntentScoreLog) TableName() string {
	return "intent_score_logs"
}

type IntentScoreSnapshot struct {
	ID         uint      `gorm:"primary_key" json:"id"`
	BuyerID    uint      `gorm:"index:idx_snapshot_buyer_at,priority:1;not null" json:"buyer_id"`
	Score      float64   `gorm:"not null" json:"score"`
	SnapshotAt time.Time `gorm:"index:idx_snapshot_buyer_at,priority:2;not null" json:"snapshot_at"`
}

func (*IntentScoreSnapshot) TableName() string {
	return "intent_score_snapshots"
}
