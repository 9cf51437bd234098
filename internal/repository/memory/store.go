// Package memory holds in-process implementations of the repository
// interfaces. They back the "memory" database driver and the service tests.
package memory

import (
	"buyer-intent-engine/internal/models"
	"buyer-intent-engine/internal/repository"
	"sync"
	"time"
)

type Store struct {
	mu      sync.RWMutex
	scoreMu sync.Mutex
	nextID  uint

	buyers      map[uint]*models.Buyer
	events      []*models.BuyerEvent
	views       map[viewKey]*models.BuyerPropertyView
	scores      map[uint]*models.IntentScore
	scoreLogs   []*models.IntentScoreLog
	snapshots   []*models.IntentScoreSnapshot
	triggers    []*models.TriggerHistory
	engagements []*models.AgentBuyerEngagement
	scarcity    []*models.ZoneScarcityHistory

	users      map[uint]*models.User
	zones      map[uint]*models.Zone
	properties map[uint]*models.Property
	leads      []*models.Lead
}

type viewKey struct {
	buyerID    uint
	propertyID uint
}

func NewStore() *Store {
	return &Store{
		buyers:     make(map[uint]*models.Buyer),
		views:      make(map[viewKey]*models.BuyerPropertyView),
		scores:     make(map[uint]*models.IntentScore),
		users:      make(map[uint]*models.User),
		zones:      make(map[uint]*models.Zone),
		properties: make(map[uint]*models.Property),
	}
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Buyers:      &buyerRepository{s},
		Events:      &buyerEventRepository{s},
		Views:       &propertyViewRepository{s},
		Scores:      &intentScoreRepository{s},
		Snapshots:   &snapshotRepository{s},
		Triggers:    &triggerHistoryRepository{s},
		Engagements: &engagementRepository{s},
		Scarcity:    &scarcityRepository{s},
		Leads:       &leadRepository{s},
		Properties:  &propertyRepository{s},
		Zones:       &zoneRepository{s},
		Users:       &userRepository{s},
	}
}

// id must be called with mu held.
func (s *Store) id() uint {
	s.nextID++
	return s.nextID
}

func stamp(createdAt *time.Time) {
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
}

func (s *Store) AddUser(user *models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == 0 {
		user.ID = s.id()
	}
	cp := *user
	s.users[user.ID] = &cp
	return user
}

func (s *Store) AddZone(zone *models.Zone) *models.Zone {
	s.mu.Lock()
	defer s.mu.Unlock()

	if zone.ID == 0 {
		zone.ID = s.id()
	}
	cp := *zone
	s.zones[zone.ID] = &cp
	return zone
}

// SaveProperty inserts or replaces a listing.
func (s *Store) SaveProperty(property *models.Property) *models.Property {
	s.mu.Lock()
	defer s.mu.Unlock()

	if property.ID == 0 {
		property.ID = s.id()
	}
	stamp(&property.UpdatedAt)
	cp := *property
	s.properties[property.ID] = &cp
	return property
}

func (s *Store) AddLead(lead *models.Lead) *models.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lead.ID == 0 {
		lead.ID = s.id()
	}
	cp := *lead
	s.leads = append(s.leads, &cp)
	return lead
}

// AddSnapshot appends a snapshot directly, bypassing the batch job.
func (s *Store) AddSnapshot(snapshot *models.IntentScoreSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snapshot.ID == 0 {
		snapshot.ID = s.id()
	}
	cp := *snapshot
	s.snapshots = append(s.snapshots, &cp)
}

// SetScore overwrites a buyer's score row.
func (s *Store) SetScore(score *models.IntentScore) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if score.ID == 0 {
		score.ID = s.id()
	}
	cp := *score
	s.scores[score.BuyerID] = &cp
}

func (s *Store) Events() []*models.BuyerEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.BuyerEvent, 0, len(s.events))
	for _, e := range s.events {
		cp := *e
		out = append(out, &cp)
	}
	return out
}

func (s *Store) ScoreLogs(buyerID uint) []*models.IntentScoreLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.IntentScoreLog
	for _, l := range s.scoreLogs {
		if l.BuyerID == buyerID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out
}

func (s *Store) Snapshots() []*models.IntentScoreSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.IntentScoreSnapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		cp := *snap
		out = append(out, &cp)
	}
	return out
}

func (s *Store) TriggerHistories() []*models.TriggerHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.TriggerHistory, 0, len(s.triggers))
	for _, t := range s.triggers {
		cp := *t
		out = append(out, &cp)
	}
	return out
}

func (s *Store) ScarcityHistory() []*models.ZoneScarcityHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.ZoneScarcityHistory, 0, len(s.scarcity))
	for _, h := range s.scarcity {
		cp := *h
		out = append(out, &cp)
	}
	return out
}
