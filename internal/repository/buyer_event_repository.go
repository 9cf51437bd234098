package repository

import (
	"buyer-intent-engine/internal/models"

	"gorm.io/gorm"
)

type BuyerEventRepository interface {
	Create(event *models.BuyerEvent) error
	// ListRecent returns the buyer's newest events first.
	ListRecent(buyerID uint, limit int) ([]*models.BuyerEvent, error)
}

type buyerEventRepository struct {
	db *gorm.DB
}

func NewBuyerEventRepository(db *gorm.DB) BuyerEventRepository {
	return &buyerEventRepository{db: db}
}

func (r *buyerEventRepository) Create(event *models.BuyerEvent) error {
	return r.db.Create(event).Error
}

func (r *buyerEventRepository) ListRecent(buyerID uint, limit int) ([]*models.BuyerEvent, error) {
	var events []*models.BuyerEvent
	query := r.db.Where("buyer_id = ?", buyerID).Order("created_at DESC, id DESC")
	err := limited(query, limit).Find(&events).Error
	if err != nil {
		return nil, err
	}

	return events, nil
}
