package repository

import (
	"buyer-intent-engine/internal/models"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PropertyViewRepository interface {
	Get(buyerID, propertyID uint) (*models.BuyerPropertyView, error)
	RecordView(buyerID, propertyID uint, at time.Time) (*models.BuyerPropertyView, error)
	ListViewedPropertyIDs(buyerID uint) ([]uint, error)
}

type propertyViewRepository struct {
	db *gorm.DB
}

func NewPropertyViewRepository(db *gorm.DB) PropertyViewRepository {
	return &propertyViewRepository{db: db}
}

func (r *propertyViewRepository) Get(buyerID, propertyID uint) (*models.BuyerPropertyView, error) {
	var view models.BuyerPropertyView
	err := r.db.Where("buyer_id = ? AND property_id = ?", buyerID, propertyID).First(&view).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &view, nil
}

func (r *propertyViewRepository) RecordView(buyerID, propertyID uint, at time.Time) (*models.BuyerPropertyView, error) {
	view := &models.BuyerPropertyView{
		BuyerID:       buyerID,
		PropertyID:    propertyID,
		FirstViewedAt: at,
		LastViewedAt:  at,
		ViewCount:     1,
	}

	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "buyer_id"}, {Name: "property_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"view_count":     gorm.Expr("buyer_property_views.view_count + 1"),
			"last_viewed_at": at,
		}),
	}).Create(view).Error
	if err != nil {
		return nil, err
	}

	return r.Get(buyerID, propertyID)
}

func (r *propertyViewRepository) ListViewedPropertyIDs(buyerID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.BuyerPropertyView{}).
		Where("buyer_id = ?", buyerID).
		Order("property_id").
		Pluck("property_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}
