package repository

import (
	"buyer-intent-engine/internal/models"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BuyerRepository interface {
	GetByID(id uint) (*models.Buyer, error)
	// Touch creates the buyer on first sight and moves last_activity_at forward to at.
	Touch(id uint, at time.Time) (*models.Buyer, error)
}

type buyerRepository struct {
	db *gorm.DB
}

func NewBuyerRepository(db *gorm.DB) BuyerRepository {
	return &buyerRepository{db: db}
}

func (r *buyerRepository) GetByID(id uint) (*models.Buyer, error) {
	var buyer models.Buyer
	err := r.db.First(&buyer, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &buyer, nil
}

func (r *buyerRepository) Touch(id uint, at time.Time) (*models.Buyer, error) {
	buyer := &models.Buyer{
		BaseModel:      models.BaseModel{ID: id, CreatedAt: at, UpdatedAt: at},
		FirstSeenAt:    at,
		LastActivityAt: at,
	}

	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_activity_at": gorm.Expr("GREATEST(buyers.last_activity_at, ?)", at),
			"updated_at":       at,
		}),
	}).Create(buyer).Error
	if err != nil {
		return nil, err
	}

	return r.GetByID(id)
}
