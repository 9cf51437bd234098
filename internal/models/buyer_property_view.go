package models

import "time"

type BuyerPropertyView struct {
	ID            uint      `gorm:"primary_key" json:"id"`
	BuyerID       uint      `gorm:"uniqueIndex:idx_buyer_property_view;not null" json:"buyer_id"`
	PropertyID    uint      `gorm:"uniqueIndex:idx_buyer_property_view;not null" json:"property_id"`
	FirstViewedAt time.Time `gorm:"not null" json:"first_viewed_at"`
	LastViewedAt  time.Time `gorm:"not null" json:"last_viewed_at"`
	ViewCount     int       `gorm:"not null;default:1" json:"view_count"`
}

func (*BuyerPropertyView) TableName() string {
	return "buyer_property_views"
}

// ViewedWithin reports whether the property was last viewed less than window before now.
func (v *BuyerPropertyView) ViewedWithin(now time.Time, window time.Duration) bool {
	return v != nil && now.Sub(v.LastViewedAt) < window
}
