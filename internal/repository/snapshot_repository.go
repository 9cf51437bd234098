package repository

import (
	"buyer-intent-engine/internal/models"
	"errors"
	"time"

	"gorm.io/gorm"
)

const snapshotBatchSize = 500

type SnapshotRepository interface {
	CreateBatch(snapshots []*models.IntentScoreSnapshot) error
	// LatestAtOrBefore returns the newest snapshot taken no later than at.
	LatestAtOrBefore(buyerID uint, at time.Time) (*models.IntentScoreSnapshot, error)
}

type snapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) CreateBatch(snapshots []*models.IntentScoreSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return r.db.CreateInBatches(snapshots, snapshotBatchSize).Error
}

func (r *snapshotRepository) LatestAtOrBefore(buyerID uint, at time.Time) (*models.IntentScoreSnapshot, error) {
	var snapshot models.IntentScoreSnapshot
	err := r.db.Where("buyer_id = ? AND snapshot_at <= ?", buyerID, at).
		Order("snapshot_at DESC, id DESC").
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &snapshot, nil
}
