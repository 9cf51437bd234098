package memory

import (
	"buyer-intent-engine/internal/models"
	"sort"
	"time"
)

type triggerHistoryRepository struct{ s *Store }

func (r *triggerHistoryRepository) Create(history *models.TriggerHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	history.ID = r.s.id()
	stamp(&history.CreatedAt)
	cp := *history
	r.s.triggers = append(r.s.triggers, &cp)
	return nil
}

func (r *triggerHistoryRepository) LatestActive(buyerID, agentID uint, triggerType models.TriggerType, now time.Time) (*models.TriggerHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var best *models.TriggerHistory
	for _, h := range r.s.triggers {
		if h.BuyerID != buyerID || h.AgentID != agentID || h.TriggerType != triggerType {
			continue
		}
		if !h.CooldownUntil.After(now) {
			continue
		}
		if best == nil || h.CooldownUntil.After(best.CooldownUntil) {
			best = h
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (r *triggerHistoryRepository) ListByBuyerAndAgent(buyerID, agentID uint) ([]*models.TriggerHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.TriggerHistory
	for _, h := range r.s.triggers {
		if h.BuyerID == buyerID && h.AgentID == agentID {
			cp := *h
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].TriggeredAt.Equal(out[j].TriggeredAt) {
			return out[i].TriggeredAt.After(out[j].TriggeredAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

type engagementRepository struct{ s *Store }

func (r *engagementRepository) Create(engagement *models.AgentBuyerEngagement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	engagement.ID = r.s.id()
	stamp(&engagement.CreatedAt)
	cp := *engagement
	r.s.engagements = append(r.s.engagements, &cp)
	return nil
}

func (r *engagementRepository) ExistsSince(buyerID, agentID uint, since time.Time) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, e := range r.s.engagements {
		if e.BuyerID == buyerID && e.AgentID == agentID && !e.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

type scarcityRepository struct{ s *Store }

func (r *scarcityRepository) Create(history *models.ZoneScarcityHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	history.ID = r.s.id()
	cp := *history
	r.s.scarcity = append(r.s.scarcity, &cp)
	return nil
}

func (r *scarcityRepository) ListRecent(zoneID uint, limit int) ([]*models.ZoneScarcityHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.ZoneScarcityHistory
	for _, h := range r.s.scarcity {
		if h.ZoneID == zoneID {
			cp := *h
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.After(out[j].RecordedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
