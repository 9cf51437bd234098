package repository

import (
	"buyer-intent-engine/internal/models"
	"errors"

	"gorm.io/gorm"
)

type ZoneRepository interface {
	GetByID(id uint) (*models.Zone, error)
	ListIDs() ([]uint, error)
}

type zoneRepository struct {
	db *gorm.DB
}

func NewZoneRepository(db *gorm.DB) ZoneRepository {
	return &zoneRepository{db: db}
}

func (r *zoneRepository) GetByID(id uint) (*models.Zone, error) {
	var zone models.Zone
	err := r.db.First(&zone, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &zone, nil
}

func (r *zoneRepository) ListIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Zone{}).Order("id").Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}
