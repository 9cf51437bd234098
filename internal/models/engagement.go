package models

import "gorm.io/datatypes"

const (
	EngagementLeadCreated    = "lead_created"
	EngagementLeadUpdated    = "lead_updated"
	EngagementContactAttempt = "contact_attempt"
	EngagementNote           = "note"
	EngagementWhatsAppClick  = "whatsapp_click"
	EngagementCallClick      = "call_click"
	EngagementEmailClick     = "email_click"
)

var engagementTypes = map[string]bool{
	EngagementLeadCreated:    true,
	EngagementLeadUpdated:    true,
	EngagementContactAttempt: true,
	EngagementNote:           true,
	EngagementWhatsAppClick:  true,
	EngagementCallClick:      true,
	EngagementEmailClick:     true,
}

func IsValidEngagementType(t string) bool {
	return engagementTypes[t]
}

type AgentBuyerEngagement struct {
	AppendOnlyModel

	AgentID        uint              `gorm:"index:idx_engagement_pair,priority:1;not null" json:"agent_id"`
	BuyerID        uint              `gorm:"index:idx_engagement_pair,priority:2;not null" json:"buyer_id"`
	LeadID         *uint             `gorm:"index" json:"lead_id,omitempty"`
	EngagementType string            `gorm:"type:varchar(32);not null" json:"engagement_type"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
}

func (*AgentBuyerEngagement) TableName() string {
	return "agent_buyer_engagements"
}
