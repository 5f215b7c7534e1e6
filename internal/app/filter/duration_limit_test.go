package filter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/nostrbeat/internal/domain/track"
)

func TestDurationLimitFilter_Check(t *testing.T) {
	tests := []struct {
		name          string
		minSeconds    float64
		maxMinutes    float64
		trackDuration time.Duration
		shouldReject  bool
		description   string
	}{
		{
			name:          "Within limits",
			minSeconds:    60,
			maxMinutes:    5.0,
			trackDuration: 3 * time.Minute,
			shouldReject:  false,
			description:   "Should accept track within min/max limits",
		},
		{
			name:          "Too short",
			minSeconds:    30,
			maxMinutes:    0,
			trackDuration: 12 * time.Second,
			shouldReject:  true,
			description:   "Should reject snippets shorter than min",
		},
		{
			name:          "Too long",
			minSeconds:    30,
			maxMinutes:    20.0,
			trackDuration: 3 * time.Hour,
			shouldReject:  true,
			description:   "Should reject recordings longer than max",
		},
		{
			name:          "Exact min",
			minSeconds:    30,
			maxMinutes:    0,
			trackDuration: 30 * time.Second,
			shouldReject:  false,
			description:   "Should accept track exactly at min",
		},
		{
			name:          "Exact max",
			minSeconds:    30,
			maxMinutes:    5.0,
			trackDuration: 5 * time.Minute,
			shouldReject:  false,
			description:   "Should accept track exactly at max",
		},
		{
			name:          "Unknown duration",
			minSeconds:    30,
			maxMinutes:    5.0,
			trackDuration: 0,
			shouldReject:  false,
			description:   "Should accept tracks whose duration is not known yet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDurationLimitFilter()
			f.config = &DurationLimitConfig{
				MinSeconds: tt.minSeconds,
				MaxMinutes: tt.maxMinutes,
			}

			result := f.Check(context.Background(), track.Track{Duration: tt.trackDuration}, nil)

			if tt.shouldReject {
				assert.False(t, result.Accepted, tt.description)
				assert.Equal(t, "duration_limit_exceeded", result.Code)
			} else {
				assert.True(t, result.Accepted, tt.description)
			}
		})
	}
}

func TestDurationLimitFilter_ValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]interface{}
		wantErr  bool
		wantMin  float64
	}{
		{
			name: "Valid config",
			settings: map[string]interface{}{
				"min_seconds": 45.5,
				"max_minutes": 5.0,
			},
			wantMin: 45.5,
		},
		{
			name: "Valid integers",
			settings: map[string]interface{}{
				"min_seconds": 10,
				"max_minutes": 5,
			},
			wantMin: 10,
		},
		{
			name: "Strings from env-style config",
			settings: map[string]interface{}{
				"min_seconds": "20",
			},
			wantMin: 20,
		},
		{
			name: "Invalid min > max",
			settings: map[string]interface{}{
				"min_seconds": 600.0,
				"max_minutes": 5.0,
			},
			wantErr: true,
		},
		{
			name: "Invalid negative min",
			settings: map[string]interface{}{
				"min_seconds": -1.0,
			},
			wantErr: true,
		},
		{
			name: "Invalid negative max",
			settings: map[string]interface{}{
				"max_minutes": -1.0,
			},
			wantErr: true,
		},
		{
			name:     "Empty settings (uses defaults)",
			settings: map[string]interface{}{},
			wantMin:  30,
		},
		{
			name:     "Nil settings (uses defaults)",
			settings: nil,
			wantMin:  30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDurationLimitFilter()
			err := f.ValidateConfig(tt.settings)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMin, f.config.MinSeconds)
		})
	}
}
