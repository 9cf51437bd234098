package models

import "time"

const (
	PropertyStatusDraft     = "draft"
	PropertyStatusPublished = "published"
	PropertyStatusSold      = "sold"
	PropertyStatusRented    = "rented"
)

type Property struct {
	BaseModel

	ZoneID       *uint      `gorm:"index" json:"zone_id,omitempty"`
	Title        string     `json:"title"`
	PropertyType string     `gorm:"index" json:"property_type"`
	Price        float64    `json:"price"`
	Bedrooms     int        `json:"bedrooms"`
	Status       string     `gorm:"index;default:'draft'" json:"status"`
	PublishedAt  *time.Time `gorm:"index" json:"published_at,omitempty"`
}

func (*Property) TableName() string {
	return "properties"
}

func (p *Property) IsPublished() bool {
	return p.Status == PropertyStatusPublished
}
