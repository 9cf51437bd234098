package repository

import (
	"buyer-intent-engine/internal/models"
	"time"

	"gorm.io/gorm"
)

type EngagementRepository interface {
	Create(engagement *models.AgentBuyerEngagement) error
	ExistsSince(buyerID, agentID uint, since time.Time) (bool, error)
}

type engagementRepository struct {
	db *gorm.DB
}

func NewEngagementRepository(db *gorm.DB) EngagementRepository {
	return &engagementRepository{db: db}
}

func (r *engagementRepository) Create(engagement *models.AgentBuyerEngagement) error {
	return r.db.Create(engagement).Error
}

func (r *engagementRepository) ExistsSince(buyerID, agentID uint, since time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&models.AgentBuyerEngagement{}).
		Where("buyer_id = ? AND agent_id = ? AND created_at >= ?", buyerID, agentID, since).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}
