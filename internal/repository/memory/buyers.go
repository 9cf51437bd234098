package memory

import (
	"buyer-intent-engine/internal/models"
	"sort"
	"time"
)

type buyerRepository struct{ s *Store }

func (r *buyerRepository) GetByID(id uint) (*models.Buyer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.buyers[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *buyerRepository) Touch(id uint, at time.Time) (*models.Buyer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.buyers[id]
	if !ok {
		b = &models.Buyer{
			BaseModel:      models.BaseModel{ID: id, CreatedAt: at, UpdatedAt: at},
			FirstSeenAt:    at,
			LastActivityAt: at,
		}
		r.s.buyers[id] = b
	} else if at.After(b.LastActivityAt) {
		b.LastActivityAt = at
		b.UpdatedAt = at
	}

	cp := *b
	return &cp, nil
}

type buyerEventRepository struct{ s *Store }

func (r *buyerEventRepository) Create(event *models.BuyerEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	event.ID = r.s.id()
	stamp(&event.CreatedAt)
	cp := *event
	r.s.events = append(r.s.events, &cp)
	return nil
}

func (r *buyerEventRepository) ListRecent(buyerID uint, limit int) ([]*models.BuyerEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var events []*models.BuyerEvent
	for _, e := range r.s.events {
		if e.BuyerID == buyerID {
			cp := *e
			events = append(events, &cp)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.After(events[j].CreatedAt)
		}
		return events[i].ID > events[j].ID
	})

	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

type propertyViewRepository struct{ s *Store }

func (r *propertyViewRepository) Get(buyerID, propertyID uint) (*models.BuyerPropertyView, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	v, ok := r.s.views[viewKey{buyerID, propertyID}]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (r *propertyViewRepository) RecordView(buyerID, propertyID uint, at time.Time) (*models.BuyerPropertyView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := viewKey{buyerID, propertyID}
	v, ok := r.s.views[key]
	if !ok {
		v = &models.BuyerPropertyView{
			ID:            r.s.id(),
			BuyerID:       buyerID,
			PropertyID:    propertyID,
			FirstViewedAt: at,
			LastViewedAt:  at,
			ViewCount:     1,
		}
		r.s.views[key] = v
	} else {
		v.ViewCount++
		v.LastViewedAt = at
	}

	cp := *v
	return &cp, nil
}

func (r *propertyViewRepository) ListViewedPropertyIDs(buyerID uint) ([]uint, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var ids []uint
	for key := range r.s.views {
		if key.buyerID == buyerID {
			ids = append(ids, key.propertyID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
