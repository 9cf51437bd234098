package models

// Lead links a buyer to the agent handling them. Leads without a buyer come
// from offline channels and never reach the feed.
type Lead struct {
	BaseModel

	AgentID uint   `gorm:"index;not null" json:"agent_id"`
	BuyerID *uint  `gorm:"index" json:"buyer_id,omitempty"`
	Status  string `json:"status,omitempty"`
}

func (*Lead) TableName() string {
	return "leads"
}
