package memory

import (
	"buyer-intent-engine/internal/models"
	"buyer-intent-engine/internal/repository"
	"sort"
	"time"
)

type leadRepository struct{ s *Store }

func (r *leadRepository) ListBuyerIDsByAgent(agentID uint) ([]uint, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	seen := make(map[uint]bool)
	var ids []uint
	for _, l := range r.s.leads {
		if l.AgentID != agentID || l.BuyerID == nil || seen[*l.BuyerID] {
			continue
		}
		seen[*l.BuyerID] = true
		ids = append(ids, *l.BuyerID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type propertyRepository struct{ s *Store }

func (r *propertyRepository) GetByID(id uint) (*models.Property, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.properties[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *propertyRepository) FindPublished(filter repository.PropertyFilter) ([]*models.Property, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	excluded := make(map[uint]bool, len(filter.ExcludeIDs))
	for _, id := range filter.ExcludeIDs {
		excluded[id] = true
	}

	var out []*models.Property
	for _, p := range r.s.properties {
		if !p.IsPublished() || excluded[p.ID] {
			continue
		}
		if !filter.PublishedSince.IsZero() && (p.PublishedAt == nil || p.PublishedAt.Before(filter.PublishedSince)) {
			continue
		}
		if !matchesFilter(p, filter) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		pi, pj := publishedAt(out[i]), publishedAt(out[j])
		if !pi.Equal(pj) {
			return pi.After(pj)
		}
		return out[i].ID > out[j].ID
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matchesFilter(p *models.Property, f repository.PropertyFilter) bool {
	if f.PropertyType != "" && p.PropertyType != f.PropertyType {
		return false
	}
	if len(f.ZoneIDs) > 0 {
		if p.ZoneID == nil {
			return false
		}
		found := false
		for _, z := range f.ZoneIDs {
			if z == *p.ZoneID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.PriceMin != nil && p.Price < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && p.Price > *f.PriceMax {
		return false
	}
	if f.BedroomsMin != nil && p.Bedrooms < *f.BedroomsMin {
		return false
	}
	if f.BedroomsMax != nil && p.Bedrooms > *f.BedroomsMax {
		return false
	}
	return true
}

func publishedAt(p *models.Property) time.Time {
	if p.PublishedAt == nil {
		return time.Time{}
	}
	return *p.PublishedAt
}

func (r *propertyRepository) CountPublished(zoneID uint, since *time.Time) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var count int64
	for _, p := range r.s.properties {
		if !inZone(p, zoneID) || !p.IsPublished() {
			continue
		}
		if since != nil && (p.PublishedAt == nil || p.PublishedAt.Before(*since)) {
			continue
		}
		count++
	}
	return count, nil
}

func (r *propertyRepository) CountLiveAt(zoneID uint, at time.Time) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var count int64
	for _, p := range r.s.properties {
		if !inZone(p, zoneID) || p.PublishedAt == nil || !p.PublishedAt.Before(at) {
			continue
		}
		switch p.Status {
		case models.PropertyStatusPublished:
			count++
		case models.PropertyStatusSold, models.PropertyStatusRented:
			if !p.UpdatedAt.Before(at) {
				count++
			}
		}
	}
	return count, nil
}

func inZone(p *models.Property, zoneID uint) bool {
	return p.ZoneID != nil && *p.ZoneID == zoneID
}

func (r *propertyRepository) CountByStatusUpdatedSince(zoneID uint, status string, since time.Time) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var count int64
	for _, p := range r.s.properties {
		if inZone(p, zoneID) && p.Status == status && !p.UpdatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type zoneRepository struct{ s *Store }

func (r *zoneRepository) GetByID(id uint) (*models.Zone, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	z, ok := r.s.zones[id]
	if !ok {
		return nil, nil
	}
	cp := *z
	return &cp, nil
}

func (r *zoneRepository) ListIDs() ([]uint, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := make([]uint, 0, len(r.s.zones))
	for id := range r.s.zones {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type userRepository struct{ s *Store }

func (r *userRepository) GetByID(id uint) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}
