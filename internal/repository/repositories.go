package repository

import "gorm.io/gorm"

// Repositories bundles every store the engine reads or writes.
type Repositories struct {
	Buyers      BuyerRepository
	Events      BuyerEventRepository
	Views       PropertyViewRepository
	Scores      IntentScoreRepository
	Snapshots   SnapshotRepository
	Triggers    TriggerHistoryRepository
	Engagements EngagementRepository
	Scarcity    ScarcityRepository
	Leads       LeadRepository
	Properties  PropertyRepository
	Zones       ZoneRepository
	Users       UserRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Buyers:      NewBuyerRepository(db),
		Events:      NewBuyerEventRepository(db),
		Views:       NewPropertyViewRepository(db),
		Scores:      NewIntentScoreRepository(db),
		Snapshots:   NewSnapshotRepository(db),
		Triggers:    NewTriggerHistoryRepository(db),
		Engagements: NewEngagementRepository(db),
		Scarcity:    NewScarcityRepository(db),
		Leads:       NewLeadRepository(db),
		Properties:  NewPropertyRepository(db),
		Zones:       NewZoneRepository(db),
		Users:       NewUserRepository(db),
	}
}

// limited applies a positive limit; zero or less returns every row.
func limited(query *gorm.DB, limit int) *gorm.DB {
	if limit > 0 {
		return query.Limit(limit)
	}
	return query
}
