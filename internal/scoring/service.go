package scoring

import (
	"buyer-intent-engine/internal/lock"
	"buyer-intent-engine/internal/logger"
	"buyer-intent-engine/internal/metrics"
	"buyer-intent-engine/internal/models"
	"buyer-intent-engine/internal/repository"
	"fmt"
	"time"
)

// InactivityThreshold is how long a buyer must be idle before the batch sweep decays them.
const InactivityThreshold = 14 * 24 * time.Hour

type Service struct {
	scoreRepo    repository.IntentScoreRepository
	snapshotRepo repository.SnapshotRepository
	locks        *lock.KeyedMutex
	log          *logger.Logger
	now          func() time.Time
}

func NewService(
	scoreRepo repository.IntentScoreRepository,
	snapshotRepo repository.SnapshotRepository,
	locks *lock.KeyedMutex,
	log *logger.Logger,
) *Service {
	if locks == nil {
		locks = lock.NewKeyedMutex()
	}

	return &Service{
		scoreRepo:    scoreRepo,
		snapshotRepo: snapshotRepo,
		locks:        locks,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func buyerKey(buyerID uint) string {
	return fmt.Sprintf("score:%d", buyerID)
}

// UpdateIntentScore realises pending decay, adds weight and clamps the result,
// writing the score and its audit entries atomically.
func (s *Service) UpdateIntentScore(buyerID uint, weight float64, reason string, eventID *uint) (*models.IntentScore, error) {
	unlock := s.locks.Lock(buyerKey(buyerID))
	defer unlock()

	now := s.now()

	score, err := s.scoreRepo.Mutate(buyerID, func(current *models.IntentScore) (*models.IntentScore, []*models.IntentScoreLog, error) {
		next := &models.IntentScore{BuyerID: buyerID}
		base := 0.0
		var logs []*models.IntentScoreLog

		if current != nil {
			cp := *current
			next = &cp

			decayed, entry := decayEntry(current, now)
			if entry != nil {
				logs = append(logs, entry)
			}
			base = decayed
		}

		after := models.ClampScore(base + weight)
		logs = append(logs, &models.IntentScoreLog{
			AppendOnlyModel: models.AppendOnlyModel{CreatedAt: now},
			BuyerID:         buyerID,
			ScoreBefore:     base,
			ScoreAfter:      after,
			Reason:          reason,
			EventID:         eventID,
		})

		next.Score = after
		next.LastCalculatedAt = now
		next.LastActivityAt = now
		return next, logs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("update intent score for buyer %d: %w", buyerID, err)
	}

	metrics.ScoreMutations.WithLabelValues("event").Inc()
	return score, nil
}

// decayEntry returns the decayed score and, when the drop is worth recording, its audit row.
func decayEntry(current *models.IntentScore, now time.Time) (float64, *models.IntentScoreLog) {
	days := now.Sub(current.DecayAnchor()).Hours() / 24
	if days <= 0 {
		return current.Score, nil
	}

	decayed := models.Decay(current.Score, days)
	if current.Score-decayed <= models.DecayLogThreshold {
		return decayed, nil
	}

	return decayed, &models.IntentScoreLog{
		AppendOnlyModel: models.AppendOnlyModel{CreatedAt: now},
		BuyerID:         current.BuyerID,
		ScoreBefore:     current.Score,
		ScoreAfter:      decayed,
		Reason:          fmt.Sprintf("decay:5%% per day for %.2f days", days),
	}
}

// GetIntentScore returns the stored score, or 0 for a buyer without one.
func (s *Service) GetIntentScore(buyerID uint) (float64, error) {
	score, err := s.scoreRepo.GetByBuyerID(buyerID)
	if err != nil {
		return 0, fmt.Errorf("get intent score for buyer %d: %w", buyerID, err)
	}
	if score == nil {
		return 0, nil
	}
	return score.Score, nil
}

func (s *Service) GetIntentScoreRecord(buyerID uint) (*models.IntentScore, error) {
	return s.scoreRepo.GetByBuyerID(buyerID)
}

func (s *Service) ListScoreHistory(buyerID uint, limit int) ([]*models.IntentScoreLog, error) {
	return s.scoreRepo.ListLogs(buyerID, limit)
}

// ScoreAt returns the most recent snapshot value taken at or before at, or 0.
func (s *Service) ScoreAt(buyerID uint, at time.Time) (float64, error) {
	snapshot, err := s.snapshotRepo.LatestAtOrBefore(buyerID, at)
	if err != nil {
		return 0, fmt.Errorf("get snapshot for buyer %d: %w", buyerID, err)
	}
	if snapshot == nil {
		return 0, nil
	}
	return snapshot.Score, nil
}

// ApplyTimeDecayToInactiveBuyers realises decay for buyers idle longer than
// InactivityThreshold and returns how many scores changed.
func (s *Service) ApplyTimeDecayToInactiveBuyers() (int, error) {
	cutoff := s.now().Add(-InactivityThreshold)

	candidates, err := s.scoreRepo.ListInactiveSince(cutoff)
	if err != nil {
		return 0, fmt.Errorf("list inactive buyers: %w", err)
	}

	updated := 0
	for _, candidate := range candidates {
		changed, err := s.decayBuyer(candidate.BuyerID, cutoff)
		if err != nil {
			s.log.Error("Failed to decay buyer %d: %v", candidate.BuyerID, err)
			continue
		}
		if changed {
			updated++
		}
	}

	metrics.RecordBatchJob("decay", updated)
	s.log.Info("Decay sweep updated %d of %d inactive buyers", updated, len(candidates))
	return updated, nil
}

func (s *Service) decayBuyer(buyerID uint, cutoff time.Time) (bool, error) {
	unlock := s.locks.Lock(buyerKey(buyerID))
	defer unlock()

	now := s.now()
	changed := false

	_, err := s.scoreRepo.Mutate(buyerID, func(current *models.IntentScore) (*models.IntentScore, []*models.IntentScoreLog, error) {
		// The buyer may have become active since the candidate list was read.
		if current == nil || current.Score <= 0 || !current.LastActivityAt.Before(cutoff) {
			return nil, nil, nil
		}

		decayed, entry := decayEntry(current, now)
		if entry == nil {
			return nil, nil, nil
		}

		next := *current
		next.Score = models.ClampScore(decayed)
		next.LastCalculatedAt = now
		changed = true
		return &next, []*models.IntentScoreLog{entry}, nil
	})
	if err != nil {
		return false, err
	}

	if changed {
		metrics.ScoreMutations.WithLabelValues("decay").Inc()
	}
	return changed, nil
}

// CreateSnapshotsForAllBuyers stores the current score of every buyer as-is.
func (s *Service) CreateSnapshotsForAllBuyers() (int, error) {
	scores, err := s.scoreRepo.ListAll()
	if err != nil {
		return 0, fmt.Errorf("list intent scores: %w", err)
	}

	now := s.now()
	snapshots := make([]*models.IntentScoreSnapshot, 0, len(scores))
	for _, score := range scores {
		snapshots = append(snapshots, &models.IntentScoreSnapshot{
			BuyerID:    score.BuyerID,
			Score:      score.Score,
			SnapshotAt: now,
		})
	}

	if err := s.snapshotRepo.CreateBatch(snapshots); err != nil {
		return 0, fmt.Errorf("create snapshots: %w", err)
	}

	metrics.RecordBatchJob("snapshots", len(snapshots))
	s.log.Info("Created %d intent score snapshots", len(snapshots))
	return len(snapshots), nil
}
