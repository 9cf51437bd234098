package repository

import (
	"buyer-intent-engine/internal/models"
	"errors"
	"time"

	"gorm.io/gorm"
)

// PropertyFilter selects published listings. Zero-valued fields are ignored.
type PropertyFilter struct {
	PublishedSince time.Time
	ExcludeIDs     []uint
	PropertyType   string
	ZoneIDs        []uint
	PriceMin       *float64
	PriceMax       *float64
	BedroomsMin    *int
	BedroomsMax    *int
	Limit          int
}

type PropertyRepository interface {
	GetByID(id uint) (*models.Property, error)
	// FindPublished returns matching published listings, newest first.
	FindPublished(filter PropertyFilter) ([]*models.Property, error)
	// CountPublished counts published listings in a zone, optionally only those published since.
	CountPublished(zoneID uint, since *time.Time) (int64, error)
	// CountLiveAt counts listings that were on the market at the given instant:
	// published before it and either still published or taken off the market after it.
	CountLiveAt(zoneID uint, at time.Time) (int64, error)
	CountByStatusUpdatedSince(zoneID uint, status string, since time.Time) (int64, error)
}

type propertyRepository struct {
	db *gorm.DB
}

func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

func (r *propertyRepository) GetByID(id uint) (*models.Property, error) {
	var property models.Property
	err := r.db.First(&property, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &property, nil
}

func (r *propertyRepository) FindPublished(filter PropertyFilter) ([]*models.Property, error) {
	query := r.db.Where("status = ?", models.PropertyStatusPublished)

	if !filter.PublishedSince.IsZero() {
		query = query.Where("published_at >= ?", filter.PublishedSince)
	}

	if len(filter.ExcludeIDs) > 0 {
		query = query.Where("id NOT IN ?", filter.ExcludeIDs)
	}

	if filter.PropertyType != "" {
		query = query.Where("property_type = ?", filter.PropertyType)
	}

	if len(filter.ZoneIDs) > 0 {
		query = query.Where("zone_id IN ?", filter.ZoneIDs)
	}

	if filter.PriceMin != nil {
		query = query.Where("price >= ?", *filter.PriceMin)
	}

	if filter.PriceMax != nil {
		query = query.Where("price <= ?", *filter.PriceMax)
	}

	if filter.BedroomsMin != nil {
		query = query.Where("bedrooms >= ?", *filter.BedroomsMin)
	}

	if filter.BedroomsMax != nil {
		query = query.Where("bedrooms <= ?", *filter.BedroomsMax)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var properties []*models.Property
	err := query.Order("published_at DESC, id DESC").Find(&properties).Error
	if err != nil {
		return nil, err
	}

	return properties, nil
}

func (r *propertyRepository) CountPublished(zoneID uint, since *time.Time) (int64, error) {
	query := r.db.Model(&models.Property{}).
		Where("zone_id = ? AND status = ?", zoneID, models.PropertyStatusPublished)

	if since != nil {
		query = query.Where("published_at >= ?", *since)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *propertyRepository) CountLiveAt(zoneID uint, at time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Property{}).
		Where("zone_id = ? AND published_at < ?", zoneID, at).
		Where("status = ? OR (status IN ? AND updated_at >= ?)",
			models.PropertyStatusPublished,
			[]string{models.PropertyStatusSold, models.PropertyStatusRented},
			at,
		).
		Count(&count).Error
	return count, err
}

func (r *propertyRepository) CountByStatusUpdatedSince(zoneID uint, status string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Property{}).
		Where("zone_id = ? AND status = ? AND updated_at >= ?", zoneID, status, since).
		Count(&count).Error
	return count, err
}
