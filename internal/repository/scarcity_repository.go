package repository

import (
	"buyer-intent-engine/internal/models"

	"gorm.io/gorm"
)

type ScarcityRepository interface {
	Create(history *models.ZoneScarcityHistory) error
	// ListRecent returns the zone's most recent state rows, newest first.
	ListRecent(zoneID uint, limit int) ([]*models.ZoneScarcityHistory, error)
}

type scarcityRepository struct {
	db *gorm.DB
}

func NewScarcityRepository(db *gorm.DB) ScarcityRepository {
	return &scarcityRepository{db: db}
}

func (r *scarcityRepository) Create(history *models.ZoneScarcityHistory) error {
	return r.db.Create(history).Error
}

func (r *scarcityRepository) ListRecent(zoneID uint, limit int) ([]*models.ZoneScarcityHistory, error) {
	var rows []*models.ZoneScarcityHistory
	query := r.db.Where("zone_id = ?", zoneID).Order("recorded_at DESC, id DESC")
	err := limited(query, limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}
