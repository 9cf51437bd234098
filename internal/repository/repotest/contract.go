// Package repotest holds behaviour shared by every repository implementation.
// The memory store and the postgres repositories run the same suite.
package repotest

import (
	"buyer-intent-engine/internal/models"
	"buyer-intent-engine/internal/repository"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// Seeder writes collaborator-owned projections the engine only reads.
type Seeder interface {
	AddUser(user *models.User) *models.User
	AddZone(zone *models.Zone) *models.Zone
	SaveProperty(property *models.Property) *models.Property
	AddLead(lead *models.Lead) *models.Lead
}

// Factory returns empty repositories and a seeder for them.
type Factory func(t *testing.T) (*repository.Repositories, Seeder)

var base = time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) time.Time {
	return base.Add(d)
}

func uintPtr(v uint) *uint {
	return &v
}

func timePtr(v time.Time) *time.Time {
	return &v
}

// Run executes the repository contract against fresh repositories per case.
func Run(t *testing.T, factory Factory) {
	cases := []struct {
		name string
		fn   func(t *testing.T, repos *repository.Repositories, seed Seeder)
	}{
		{"BuyerTouch", buyerTouch},
		{"EventsNewestFirst", eventsNewestFirst},
		{"PropertyViews", propertyViews},
		{"ScoreMutate", scoreMutate},
		{"ScoreMutateSerialized", scoreMutateSerialized},
		{"ScoreQueries", scoreQueries},
		{"Snapshots", snapshots},
		{"TriggerCooldowns", triggerCooldowns},
		{"Engagements", engagements},
		{"Scarcity", scarcity},
		{"Leads", leads},
		{"PropertyQueries", propertyQueries},
		{"ZonesAndUsers", zonesAndUsers},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repos, seed := factory(t)
			tc.fn(t, repos, seed)
		})
	}
}

func buyerTouch(t *testing.T, repos *repository.Repositories, _ Seeder) {
	missing, err := repos.Buyers.GetByID(77)
	require.NoError(t, err)
	assert.Nil(t, missing)

	buyer, err := repos.Buyers.Touch(77, at(0))
	require.NoError(t, err)
	assert.True(t, buyer.FirstSeenAt.Equal(at(0)))

	_, err = repos.Buyers.Touch(77, at(2*time.Hour))
	require.NoError(t, err)

	buyer, err = repos.Buyers.Touch(77, at(time.Hour))
	require.NoError(t, err)
	assert.True(t, buyer.FirstSeenAt.Equal(at(0)))
	assert.True(t, buyer.LastActivityAt.Equal(at(2*time.Hour)), "last activity never moves backwards")
}

func eventsNewestFirst(t *testing.T, repos *repository.Repositories, _ Seeder) {
	for i, eventType := range []string{models.EventTypePropertySearch, models.EventTypeListingView, models.EventTypeContacted} {
		event := &models.BuyerEvent{
			AppendOnlyModel: models.AppendOnlyModel{CreatedAt: at(time.Duration(i) * time.Minute)},
			BuyerID:         5,
			EventType:       eventType,
			Metadata:        datatypes.NewJSONType(models.EventMetadata{Source: "web"}),
		}
		require.NoError(t, repos.Events.Create(event))
		assert.NotZero(t, event.ID)
	}
	require.NoError(t, repos.Events.Create(&models.BuyerEvent{
		AppendOnlyModel: models.AppendOnlyModel{CreatedAt: at(time.Hour)},
		BuyerID:         6,
		EventType:       models.EventTypeRevisit,
	}))

	events, err := repos.Events.ListRecent(5, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventTypeContacted, events[0].EventType)
	assert.Equal(t, models.EventTypeListingView, events[1].EventType)
	assert.Equal(t, "web", events[0].Metadata.Data().Source)

	all, err := repos.Events.ListRecent(5, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func propertyViews(t *testing.T, repos *repository.Repositories, _ Seeder) {
	view, err := repos.Views.Get(1, 10)
	require.NoError(t, err)
	assert.Nil(t, view)

	_, err = repos.Views.RecordView(1, 10, at(0))
	require.NoError(t, err)
	view, err = repos.Views.RecordView(1, 10, at(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, view.ViewCount)
	assert.True(t, view.FirstViewedAt.Equal(at(0)))
	assert.True(t, view.LastViewedAt.Equal(at(time.Hour)))

	_, err = repos.Views.RecordView(1, 4, at(0))
	require.NoError(t, err)
	_, err = repos.Views.RecordView(2, 99, at(0))
	require.NoError(t, err)

	ids, err := repos.Views.ListViewedPropertyIDs(1)
	require.NoError(t, err)
	assert.Equal(t, []uint{4, 10}, ids)
}

func scoreMutate(t *testing.T, repos *repository.Repositories, _ Seeder) {
	var seen *models.IntentScore
	score, err := repos.Scores.Mutate(3, func(current *models.IntentScore) (*models.IntentScore, []*models.IntentScoreLog, error) {
		seen = current
		return &models.IntentScore{BuyerID: 3, Score: 25, LastActivityAt: at(0), LastCalculatedAt: at(0)},
			[]*models.IntentScoreLog{{
				AppendOnlyModel: models.AppendOnlyModel{CreatedAt: at(0)},
				BuyerID:         3,
				ScoreBefore:     0,
				ScoreAfter:      25,
				Reason:          "event:contacted",
			}}, nil
	})
	require.NoError(t, err)
	assert.Nil(t, seen)
	assert.NotZero(t, score.ID)

	unchanged, err := repos.Scores.Mutate(3, func(current *models.IntentScore) (*models.IntentScore, []*models.IntentScoreLog, error) {
		seen = current
		return nil, nil, nil
	})
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.InDelta(t, 25.0, seen.Score, 0.0001)
	assert.InDelta(t, 25.0, unchanged.Score, 0.0001)

	logs, err := repos.Scores.ListLogs(3, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "event:contacted", logs[0].Reason)
}

func scoreMutateSerialized(t *testing.T, repos *repository.Repositories, _ Seeder) {
	const writers = 20

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repos.Scores.Mutate(8, func(current *models.IntentScore) (*models.IntentScore, []*models.IntentScoreLog, error) {
				next := &models.IntentScore{BuyerID: 8, LastActivityAt: at(0), LastCalculatedAt: at(0)}
				if current != nil {
					next = current
				}
				before := next.Score
				next.Score++
				return next, []*models.IntentScoreLog{{BuyerID: 8, ScoreBefore: before, ScoreAfter: next.Score, Reason: "inc"}}, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	score, err := repos.Scores.GetByBuyerID(8)
	require.NoError(t, err)
	assert.InDelta(t, float64(writers), score.Score, 0.0001)

	logs, err := repos.Scores.ListLogs(8, 0)
	require.NoError(t, err)
	assert.Len(t, logs, writers)
}

func scoreQueries(t *testing.T, repos *repository.Repositories, _ Seeder) {
	rows := []*models.IntentScore{
		{BuyerID: 1, Score: 40, LastActivityAt: at(-20 * 24 * time.Hour)},
		{BuyerID: 2, Score: 0, LastActivityAt: at(-20 * 24 * time.Hour)},
		{BuyerID: 3, Score: 60, LastActivityAt: at(-time.Hour)},
	}
	for _, row := range rows {
		row.LastCalculatedAt = row.LastActivityAt
		_, err := repos.Scores.Mutate(row.BuyerID, func(*models.IntentScore) (*models.IntentScore, []*models.IntentScoreLog, error) {
			return row, nil, nil
		})
		require.NoError(t, err)
	}

	inactive, err := repos.Scores.ListInactiveSince(at(-14 * 24 * time.Hour))
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, uint(1), inactive[0].BuyerID)

	all, err := repos.Scores.ListAll()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, uint(1), all[0].BuyerID)
	assert.Equal(t, uint(3), all[2].BuyerID)

	missing, err := repos.Scores.GetByBuyerID(404)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func snapshots(t *testing.T, repos *repository.Repositories, _ Seeder) {
	require.NoError(t, repos.Snapshots.CreateBatch(nil))
	require.NoError(t, repos.Snapshots.CreateBatch([]*models.IntentScoreSnapshot{
		{BuyerID: 1, Score: 10, SnapshotAt: at(-48 * time.Hour)},
		{BuyerID: 1, Score: 20, SnapshotAt: at(-24 * time.Hour)},
		{BuyerID: 1, Score: 30, SnapshotAt: at(-time.Hour)},
		{BuyerID: 2, Score: 99, SnapshotAt: at(-25 * time.Hour)},
	}))

	snap, err := repos.Snapshots.LatestAtOrBefore(1, at(-24*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.InDelta(t, 20.0, snap.Score, 0.0001)

	snap, err = repos.Snapshots.LatestAtOrBefore(1, at(-72*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func triggerCooldowns(t *testing.T, repos *repository.Repositories, _ Seeder) {
	histories := []*models.TriggerHistory{
		{BuyerID: 1, AgentID: 2, TriggerType: models.TriggerIntentSpike, TriggeredAt: at(-30 * time.Hour), CooldownUntil: at(-6 * time.Hour)},
		{BuyerID: 1, AgentID: 2, TriggerType: models.TriggerIntentSpike, TriggeredAt: at(-time.Hour), CooldownUntil: at(23 * time.Hour)},
		{BuyerID: 1, AgentID: 3, TriggerType: models.TriggerIntentSpike, TriggeredAt: at(-time.Hour), CooldownUntil: at(48 * time.Hour)},
		{
			BuyerID:       1,
			AgentID:       2,
			TriggerType:   models.TriggerNewMatchingListing,
			TriggeredAt:   at(-2 * time.Hour),
			CooldownUntil: at(46 * time.Hour),
			Metadata:      datatypes.NewJSONType(models.TriggerMetadata{PropertyID: uintPtr(12)}),
		},
	}
	for _, h := range histories {
		require.NoError(t, repos.Triggers.Create(h))
	}

	active, err := repos.Triggers.LatestActive(1, 2, models.TriggerIntentSpike, at(0))
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.True(t, active.CooldownUntil.Equal(at(23*time.Hour)))

	none, err := repos.Triggers.LatestActive(1, 2, models.TriggerIntentSpike, at(24*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, none)

	listed, err := repos.Triggers.ListByBuyerAndAgent(1, 2)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, models.TriggerIntentSpike, listed[0].TriggerType)
	assert.Equal(t, models.TriggerNewMatchingListing, listed[1].TriggerType)
	assert.Equal(t, uint(12), *listed[1].Metadata.Data().PropertyID)
}

func engagements(t *testing.T, repos *repository.Repositories, _ Seeder) {
	require.NoError(t, repos.Engagements.Create(&models.AgentBuyerEngagement{
		AppendOnlyModel: models.AppendOnlyModel{CreatedAt: at(-2 * time.Hour)},
		AgentID:         2,
		BuyerID:         1,
		EngagementType:  models.EngagementNote,
	}))

	ok, err := repos.Engagements.ExistsSince(1, 2, at(-24*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repos.Engagements.ExistsSince(1, 2, at(-time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repos.Engagements.ExistsSince(1, 3, at(-24*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)
}

func scarcity(t *testing.T, repos *repository.Repositories, _ Seeder) {
	for i, flag := range []bool{true, false, true} {
		require.NoError(t, repos.Scarcity.Create(&models.ZoneScarcityHistory{
			ZoneID:         4,
			IsScarcity:     flag,
			ActiveListings: int64(10 + i),
			RecordedAt:     at(time.Duration(i) * time.Hour),
		}))
	}

	rows, err := repos.Scarcity.ListRecent(4, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].IsScarcity)
	assert.Equal(t, int64(12), rows[0].ActiveListings)
	assert.False(t, rows[1].IsScarcity)

	empty, err := repos.Scarcity.ListRecent(5, 1)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func leads(t *testing.T, repos *repository.Repositories, seed Seeder) {
	agent := seed.AddUser(&models.User{Name: "Ana", Role: models.UserRoleAgent})
	other := seed.AddUser(&models.User{Name: "Ben", Role: models.UserRoleAgent})

	seed.AddLead(&models.Lead{AgentID: agent.ID, BuyerID: uintPtr(9)})
	seed.AddLead(&models.Lead{AgentID: agent.ID, BuyerID: uintPtr(4)})
	seed.AddLead(&models.Lead{AgentID: agent.ID, BuyerID: uintPtr(9)})
	seed.AddLead(&models.Lead{AgentID: agent.ID})
	seed.AddLead(&models.Lead{AgentID: other.ID, BuyerID: uintPtr(1)})

	ids, err := repos.Leads.ListBuyerIDsByAgent(agent.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{4, 9}, ids)
}

func propertyQueries(t *testing.T, repos *repository.Repositories, seed Seeder) {
	zone := seed.AddZone(&models.Zone{Name: "Marina"})
	otherZone := seed.AddZone(&models.Zone{Name: "Hills"})

	newest := seed.SaveProperty(&models.Property{
		ZoneID: &zone.ID, PropertyType: "apartment", Price: 500000, Bedrooms: 2,
		Status: models.PropertyStatusPublished, PublishedAt: timePtr(at(-time.Hour)),
	})
	older := seed.SaveProperty(&models.Property{
		ZoneID: &zone.ID, PropertyType: "apartment", Price: 900000, Bedrooms: 3,
		Status: models.PropertyStatusPublished, PublishedAt: timePtr(at(-3 * 24 * time.Hour)),
	})
	seed.SaveProperty(&models.Property{
		ZoneID: &zone.ID, PropertyType: "villa", Price: 2000000, Bedrooms: 5,
		Status: models.PropertyStatusPublished, PublishedAt: timePtr(at(-40 * 24 * time.Hour)),
	})
	seed.SaveProperty(&models.Property{
		BaseModel:    models.BaseModel{UpdatedAt: at(-2 * 24 * time.Hour)},
		ZoneID:       &zone.ID,
		PropertyType: "apartment",
		Price:        450000,
		Bedrooms:     1,
		Status:       models.PropertyStatusSold,
		PublishedAt:  timePtr(at(-60 * 24 * time.Hour)),
	})
	seed.SaveProperty(&models.Property{
		ZoneID: &otherZone.ID, PropertyType: "apartment", Price: 550000, Bedrooms: 2,
		Status: models.PropertyStatusPublished, PublishedAt: timePtr(at(-2 * time.Hour)),
	})

	got, err := repos.Properties.GetByID(newest.ID)
	require.NoError(t, err)
	assert.Equal(t, "apartment", got.PropertyType)

	missing, err := repos.Properties.GetByID(newest.ID + 1000)
	require.NoError(t, err)
	assert.Nil(t, missing)

	priceMax := 1000000.0
	bedroomsMin := 2
	found, err := repos.Properties.FindPublished(repository.PropertyFilter{
		PublishedSince: at(-7 * 24 * time.Hour),
		PropertyType:   "apartment",
		ZoneIDs:        []uint{zone.ID},
		PriceMax:       &priceMax,
		BedroomsMin:    &bedroomsMin,
	})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, newest.ID, found[0].ID)
	assert.Equal(t, older.ID, found[1].ID)

	found, err = repos.Properties.FindPublished(repository.PropertyFilter{
		ZoneIDs:    []uint{zone.ID},
		ExcludeIDs: []uint{newest.ID},
		Limit:      1,
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, older.ID, found[0].ID)

	count, err := repos.Properties.CountPublished(zone.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = repos.Properties.CountPublished(zone.ID, timePtr(at(-7*24*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// 30 days ago only the villa and the since-sold apartment were on the market.
	count, err = repos.Properties.CountLiveAt(zone.ID, at(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	sold, err := repos.Properties.CountByStatusUpdatedSince(zone.ID, models.PropertyStatusSold, at(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), sold)

	sold, err = repos.Properties.CountByStatusUpdatedSince(zone.ID, models.PropertyStatusSold, at(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), sold)
}

func zonesAndUsers(t *testing.T, repos *repository.Repositories, seed Seeder) {
	first := seed.AddZone(&models.Zone{Name: "North"})
	second := seed.AddZone(&models.Zone{Name: "South"})

	ids, err := repos.Zones.ListIDs()
	require.NoError(t, err)
	assert.Equal(t, []uint{first.ID, second.ID}, ids)

	zone, err := repos.Zones.GetByID(second.ID)
	require.NoError(t, err)
	assert.Equal(t, "South", zone.Name)

	user := seed.AddUser(&models.User{Name: "Cleo", Email: "cleo@example.com", Role: models.UserRoleAgent})
	got, err := repos.Users.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "cleo@example.com", got.Email)

	missing, err := repos.Users.GetByID(user.ID + 1000)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
