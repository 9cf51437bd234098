package models

import "time"

type Buyer struct {
	BaseModel

	AccountID      *uint     `gorm:"index" json:"account_id,omitempty"`
	SessionID      string    `gorm:"index" json:"session_id"`
	Phone          string    `gorm:"index" json:"phone,omitempty"`
	Email          string    `gorm:"index" json:"email,omitempty"`
	FirstSeenAt    time.Time `gorm:"not null" json:"first_seen_at"`
	LastActivityAt time.Time `gorm:"index;not null" json:"last_activity_at"`
}

func (*Buyer) TableName() string {
	return "buyers"
}
