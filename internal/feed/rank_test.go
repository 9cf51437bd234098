package feed

import (
	"buyer-intent-engine/internal/models"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRankScore(t *testing.T) {
	now := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		item models.PriorityFeedItem
		want float64
	}{
		{"fresh spike", models.PriorityFeedItem{TriggerType: models.TriggerIntentSpike, IntentScore: 50, TriggeredAt: now}, 50 + 30 + 20},
		{"day old listing", models.PriorityFeedItem{TriggerType: models.TriggerNewMatchingListing, IntentScore: 10, TriggeredAt: now.Add(-24 * time.Hour)}, 30 + 6 + 20*math.Exp(-1)},
		{"scarcity with no score", models.PriorityFeedItem{TriggerType: models.TriggerMarketScarcity, TriggeredAt: now.Add(-48 * time.Hour)}, 20 + 20*math.Exp(-2)},
		{"future trigger capped", models.PriorityFeedItem{TriggerType: models.TriggerMarketScarcity, TriggeredAt: now.Add(time.Hour)}, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := tt.item
			assert.InDelta(t, tt.want, RankScore(&item, now), 1e-9)
		})
	}
}

func TestRank_SpikeBeatsScarcityAtEqualScore(t *testing.T) {
	now := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	at := now.Add(-3 * time.Hour)

	scarcity := &models.PriorityFeedItem{BuyerID: 1, TriggerType: models.TriggerMarketScarcity, IntentScore: 40, TriggeredAt: at}
	spike := &models.PriorityFeedItem{BuyerID: 2, TriggerType: models.TriggerIntentSpike, IntentScore: 40, TriggeredAt: at}

	ranked := Rank([]*models.PriorityFeedItem{scarcity, spike}, now)
	assert.Equal(t, spike, ranked[0])
	assert.Greater(t, RankScore(spike, now), RankScore(scarcity, now))
}

func TestRank_StableOnTies(t *testing.T) {
	now := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)

	a := &models.PriorityFeedItem{BuyerID: 1, TriggerType: models.TriggerNewMatchingListing, TriggeredAt: now}
	b := &models.PriorityFeedItem{BuyerID: 2, TriggerType: models.TriggerNewMatchingListing, TriggeredAt: now}
	c := &models.PriorityFeedItem{BuyerID: 3, TriggerType: models.TriggerNewMatchingListing, TriggeredAt: now}

	ranked := Rank([]*models.PriorityFeedItem{a, b, c}, now)
	assert.Equal(t, []*models.PriorityFeedItem{a, b, c}, ranked)
	assert.Empty(t, Rank(nil, now))
}
