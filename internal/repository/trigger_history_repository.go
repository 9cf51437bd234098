package repository

import (
	"buyer-intent-engine/internal/models"
	"errors"
	"time"

	"gorm.io/gorm"
)

type TriggerHistoryRepository interface {
	Create(history *models.TriggerHistory) error
	// LatestActive returns the row with the furthest cooldown_until that is still after now.
	LatestActive(buyerID, agentID uint, triggerType models.TriggerType, now time.Time) (*models.TriggerHistory, error)
	ListByBuyerAndAgent(buyerID, agentID uint) ([]*models.TriggerHistory, error)
}

type triggerHistoryRepository struct {
	db *gorm.DB
}

func NewTriggerHistoryRepository(db *gorm.DB) TriggerHistoryRepository {
	return &triggerHistoryRepository{db: db}
}

func (r *triggerHistoryRepository) Create(history *models.TriggerHistory) error {
	return r.db.Create(history).Error
}

func (r *triggerHistoryRepository) LatestActive(buyerID, agentID uint, triggerType models.TriggerType, now time.Time) (*models.TriggerHistory, error) {
	var history models.TriggerHistory
	err := r.db.Where("buyer_id = ? AND agent_id = ? AND trigger_type = ?", buyerID, agentID, triggerType).
		Where("cooldown_until > ?", now).
		Order("cooldown_until DESC").
		First(&history).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &history, nil
}

func (r *triggerHistoryRepository) ListByBuyerAndAgent(buyerID, agentID uint) ([]*models.TriggerHistory, error) {
	var histories []*models.TriggerHistory
	err := r.db.Where("buyer_id = ? AND agent_id = ?", buyerID, agentID).
		Order("triggered_at DESC, id DESC").
		Find(&histories).Error
	if err != nil {
		return nil, err
	}

	return histories, nil
}
