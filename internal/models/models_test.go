package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBedroomFilter_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMin *int
		wantMax *int
		wantErr bool
	}{
		{"bare number", `3`, intPtr(3), intPtr(3), false},
		{"float number", `2.0`, intPtr(2), intPtr(2), false},
		{"min and max", `{"min":1,"max":4}`, intPtr(1), intPtr(4), false},
		{"min only", `{"min":2}`, intPtr(2), nil, false},
		{"null", `null`, nil, nil, false},
		{"string", `"three"`, nil, nil, true},
		{"fractional number", `2.5`, nil, nil, true},
		{"fractional min", `{"min":1.5,"max":3}`, nil, nil, true},
		{"fractional max", `{"min":1,"max":3.2}`, nil, nil, true},
		{"negative", `-1`, nil, nil, true},
		{"whole float bounds", `{"min":1.0,"max":3.0}`, intPtr(1), intPtr(3), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f BedroomFilter
			err := json.Unmarshal([]byte(tt.input), &f)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMin, f.Min)
			assert.Equal(t, tt.wantMax, f.Max)
		})
	}
}

func TestEventMetadata_DropsUnknownKeys(t *testing.T) {
	var meta EventMetadata
	err := json.Unmarshal([]byte(`{"filters":{"property_type":"flat","colour":"red"},"utm":"x","zones":[1,2]}`), &meta)
	require.NoError(t, err)

	assert.Equal(t, "flat", meta.DeclaredPropertyType())
	assert.Equal(t, []uint{1, 2}, meta.Zones)

	out, err := json.Marshal(meta)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "utm")
}

func TestEventWeight(t *testing.T) {
	w, ok := EventWeight(EventTypeContacted)
	assert.True(t, ok)
	assert.Equal(t, 25.0, w)

	_, ok = EventWeight(EventTypeSavedSearch)
	assert.False(t, ok)
}

func TestDecayAndClamp(t *testing.T) {
	assert.InDelta(t, 100*math.Pow(0.95, 3), Decay(100, 3), 1e-9)
	assert.Equal(t, 42.0, Decay(42, 0))
	assert.Equal(t, 42.0, Decay(42, -1))

	assert.Equal(t, 0.0, ClampScore(-3))
	assert.Equal(t, 100.0, ClampScore(140))
	assert.Equal(t, 55.5, ClampScore(55.5))
}

func TestIntentScore_DecayAnchor(t *testing.T) {
	activity := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	s := &IntentScore{LastActivityAt: activity, LastCalculatedAt: activity}
	assert.Equal(t, activity, s.DecayAnchor())

	s.LastCalculatedAt = activity.Add(48 * time.Hour)
	assert.Equal(t, activity.Add(48*time.Hour), s.DecayAnchor())
}

func TestTriggerType_Cooldown(t *testing.T) {
	assert.Equal(t, 24*time.Hour, TriggerIntentSpike.Cooldown())
	assert.Equal(t, 12*time.Hour, TriggerNewMatchingListing.Cooldown())
	assert.Equal(t, 48*time.Hour, TriggerMarketScarcity.Cooldown())
	assert.False(t, TriggerType("price_drop").IsValid())

	assert.Equal(t, ActionContactBuyer, SuggestedAction(TriggerIntentSpike))
	assert.Equal(t, ActionSendListing, SuggestedAction(TriggerNewMatchingListing))
	assert.Equal(t, ActionScheduleShowing, SuggestedAction(TriggerMarketScarcity))
}

func intPtr(v int) *int { return &v }
