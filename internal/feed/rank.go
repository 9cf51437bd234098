package feed

import (
	"buyer-intent-engine/internal/models"
	"math"
	"sort"
	"time"
)

const (
	intentScoreFactor = 0.6
	maxRecencyBoost   = 20.0
	recencyScaleHours = 24.0
)

var triggerWeights = map[models.TriggerType]float64{
	models.TriggerIntentSpike:        50,
	models.TriggerNewMatchingListing: 30,
	models.TriggerMarketScarcity:     20,
}

// RankScore is triggerWeight + 0.6*intentScore + a recency boost of up to 20
// that decays with e^(-hours/24).
func RankScore(item *models.PriorityFeedItem, now time.Time) float64 {
	hours := math.Max(0, now.Sub(item.TriggeredAt).Hours())
	recency := math.Exp(-hours/recencyScaleHours) * maxRecencyBoost
	return triggerWeights[item.TriggerType] + item.IntentScore*intentScoreFactor + recency
}

// Rank orders items by descending RankScore, keeping input order on ties.
func Rank(items []*models.PriorityFeedItem, now time.Time) []*models.PriorityFeedItem {
	type scored struct {
		item  *models.PriorityFeedItem
		score float64
	}

	buf := make([]scored, len(items))
	for i, item := range items {
		buf[i] = scored{item: item, score: RankScore(item, now)}
	}

	sort.SliceStable(buf, func(i, j int) bool { return buf[i].score > buf[j].score })

	out := make([]*models.PriorityFeedItem, len(buf))
	for i, s := range buf {
		out[i] = s.item
	}
	return out
}
