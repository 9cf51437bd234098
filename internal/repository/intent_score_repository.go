package repository

import (
	"buyer-intent-engine/internal/models"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// scoreLockNamespace keeps intent score advisory locks apart from other users of pg_advisory_xact_lock.
const scoreLockNamespace int64 = 0x1A7E

// ScoreMutation receives the current row (nil for a new buyer) and returns the
// row to persist together with its audit entries. Returning a nil score
// leaves the stored state untouched.
type ScoreMutation func(current *models.IntentScore) (*models.IntentScore, []*models.IntentScoreLog, error)

type IntentScoreRepository interface {
	GetByBuyerID(buyerID uint) (*models.IntentScore, error)
	// Mutate runs fn while holding the per-buyer lock and writes its result in one transaction.
	Mutate(buyerID uint, fn ScoreMutation) (*models.IntentScore, error)
	ListInactiveSince(cutoff time.Time) ([]*models.IntentScore, error)
	ListAll() ([]*models.IntentScore, error)
	ListLogs(buyerID uint, limit int) ([]*models.IntentScoreLog, error)
}

type intentScoreRepository struct {
	db *gorm.DB
}

func NewIntentScoreRepository(db *gorm.DB) IntentScoreRepository {
	return &intentScoreRepository{db: db}
}

func (r *intentScoreRepository) GetByBuyerID(buyerID uint) (*models.IntentScore, error) {
	var score models.IntentScore
	err := r.db.Where("buyer_id = ?", buyerID).First(&score).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &score, nil
}

func (r *intentScoreRepository) Mutate(buyerID uint, fn ScoreMutation) (*models.IntentScore, error) {
	var result *models.IntentScore

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			key := scoreLockNamespace<<32 | int64(buyerID)
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", key).Error; err != nil {
				return err
			}
		}

		var current *models.IntentScore
		var row models.IntentScore
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("buyer_id = ?", buyerID).
			First(&row).Error
		switch {
		case err == nil:
			current = &row
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		next, logs, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			result = current
			return nil
		}

		for _, entry := range logs {
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
		}

		if err := tx.Save(next).Error; err != nil {
			return err
		}

		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *intentScoreRepository) ListInactiveSince(cutoff time.Time) ([]*models.IntentScore, error) {
	var scores []*models.IntentScore
	err := r.db.Where("last_activity_at < ? AND score > 0", cutoff).
		Order("buyer_id").
		Find(&scores).Error
	if err != nil {
		return nil, err
	}

	return scores, nil
}

func (r *intentScoreRepository) ListAll() ([]*models.IntentScore, error) {
	var scores []*models.IntentScore
	err := r.db.Order("buyer_id").Find(&scores).Error
	if err != nil {
		return nil, err
	}

	return scores, nil
}

func (r *intentScoreRepository) ListLogs(buyerID uint, limit int) ([]*models.IntentScoreLog, error) {
	var logs []*models.IntentScoreLog
	query := r.db.Where("buyer_id = ?", buyerID).Order("created_at DESC, id DESC")
	err := limited(query, limit).Find(&logs).Error
	if err != nil {
		return nil, err
	}

	return logs, nil
}
