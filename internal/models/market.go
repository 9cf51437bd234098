package models

import "time"

const (
	ScarcityThreshold     = 15
	IncreaseThresholdPct  = 25.0
	MarketShortWindowDays = 7
	MarketLongWindowDays  = 30
)

type MarketSignals struct {
	ZoneID              uint      `json:"zone_id"`
	NewListings7d       int64     `json:"new_listings_7d"`
	NewListings30d      int64     `json:"new_listings_30d"`
	Sold7d              int64     `json:"sold_7d"`
	Sold30d             int64     `json:"sold_30d"`
	Closed7d            int64     `json:"closed_7d"`
	Closed30d           int64     `json:"closed_30d"`
	ActiveListingsCount int64     `json:"active_listings_count"`
	BaselineCount       int64     `json:"baseline_count"`
	PercentageChange    float64   `json:"percentage_change"`
	IsScarcity          bool      `json:"is_scarcity"`
	IsIncrease          bool      `json:"is_increase"`
	CalculatedAt        time.Time `json:"calculated_at"`
}

type ZoneScarcityHistory struct {
	ID             uint      `gorm:"primary_key" json:"id"`
	ZoneID         uint      `gorm:"index:idx_scarcity_zone_recorded,priority:1;not null" json:"zone_id"`
	IsScarcity     bool      `gorm:"not null" json:"is_scarcity"`
	ActiveListings int64     `gorm:"not null" json:"active_listings"`
	RecordedAt     time.Time `gorm:"index:idx_scarcity_zone_recorded,priority:2;not null" json:"recorded_at"`
}

func (*ZoneScarcityHistory) TableName() string {
	return "zone_scarcity_histories"
}
