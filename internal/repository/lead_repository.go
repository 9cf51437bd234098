package repository

import (
	"buyer-intent-engine/internal/models"

	"gorm.io/gorm"
)

type LeadRepository interface {
	// ListBuyerIDsByAgent returns distinct non-null buyer ids of the agent's leads.
	ListBuyerIDsByAgent(agentID uint) ([]uint, error)
}

type leadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &leadRepository{db: db}
}

func (r *leadRepository) ListBuyerIDsByAgent(agentID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Lead{}).
		Where("agent_id = ? AND buyer_id IS NOT NULL", agentID).
		Distinct("buyer_id").
		Order("buyer_id").
		Pluck("buyer_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}
