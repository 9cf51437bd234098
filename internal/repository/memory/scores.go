package memory

import (
	"buyer-intent-engine/internal/models"
	"buyer-intent-engine/internal/repository"
	"sort"
	"time"
)

type intentScoreRepository struct{ s *Store }

func (r *intentScoreRepository) GetByBuyerID(buyerID uint) (*models.IntentScore, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sc, ok := r.s.scores[buyerID]
	if !ok {
		return nil, nil
	}
	cp := *sc
	return &cp, nil
}

// Mutate serialises all score mutations behind scoreMu, standing in for the
// advisory lock the postgres implementation takes.
func (r *intentScoreRepository) Mutate(buyerID uint, fn repository.ScoreMutation) (*models.IntentScore, error) {
	r.s.scoreMu.Lock()
	defer r.s.scoreMu.Unlock()

	current, err := r.GetByBuyerID(buyerID)
	if err != nil {
		return nil, err
	}

	next, logs, err := fn(current)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return current, nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, entry := range logs {
		entry.ID = r.s.id()
		stamp(&entry.CreatedAt)
		cp := *entry
		r.s.scoreLogs = append(r.s.scoreLogs, &cp)
	}

	if next.ID == 0 {
		next.ID = r.s.id()
	}
	cp := *next
	r.s.scores[buyerID] = &cp

	out := cp
	return &out, nil
}

func (r *intentScoreRepository) ListInactiveSince(cutoff time.Time) ([]*models.IntentScore, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.IntentScore
	for _, sc := range r.s.scores {
		if sc.LastActivityAt.Before(cutoff) && sc.Score > 0 {
			cp := *sc
			out = append(out, &cp)
		}
	}
	sortScores(out)
	return out, nil
}

func (r *intentScoreRepository) ListAll() ([]*models.IntentScore, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.IntentScore, 0, len(r.s.scores))
	for _, sc := range r.s.scores {
		cp := *sc
		out = append(out, &cp)
	}
	sortScores(out)
	return out, nil
}

func (r *intentScoreRepository) ListLogs(buyerID uint, limit int) ([]*models.IntentScoreLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.IntentScoreLog
	for i := len(r.s.scoreLogs) - 1; i >= 0; i-- {
		if r.s.scoreLogs[i].BuyerID != buyerID {
			continue
		}
		cp := *r.s.scoreLogs[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func sortScores(scores []*models.IntentScore) {
	sort.Slice(scores, func(i, j int) bool { return scores[i].BuyerID < scores[j].BuyerID })
}

type snapshotRepository struct{ s *Store }

func (r *snapshotRepository) CreateBatch(snapshots []*models.IntentScoreSnapshot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, snap := range snapshots {
		snap.ID = r.s.id()
		cp := *snap
		r.s.snapshots = append(r.s.snapshots, &cp)
	}
	return nil
}

func (r *snapshotRepository) LatestAtOrBefore(buyerID uint, at time.Time) (*models.IntentScoreSnapshot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var best *models.IntentScoreSnapshot
	for _, snap := range r.s.snapshots {
		if snap.BuyerID != buyerID || snap.SnapshotAt.After(at) {
			continue
		}
		if best == nil || !snap.SnapshotAt.Before(best.SnapshotAt) {
			best = snap
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}
