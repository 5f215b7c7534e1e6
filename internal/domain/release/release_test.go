package release

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/nostrbeat/internal/domain/track"
)

func TestRelease_TrackIDs(t *testing.T) {
	tests := []struct {
		name     string
		tracks   []track.Track
		expected []string
	}{
		{
			name:     "empty release",
			tracks:   []track.Track{},
			expected: []string{},
		},
		{
			name: "single track",
			tracks: []track.Track{
				{ID: "track-1"},
			},
			expected: []string{"track-1"},
		},
		{
			name: "multiple tracks keep order",
			tracks: []track.Track{
				{ID: "track-3"},
				{ID: "track-1"},
				{ID: "track-2"},
			},
			expected: []string{"track-3", "track-1", "track-2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Release{ID: "release-1", Tracks: tt.tracks}
			assert.Equal(t, tt.expected, r.TrackIDs())
		})
	}
}

func TestRelease_PlayableTracks(t *testing.T) {
	r := &Release{
		Tracks: []track.Track{
			{ID: "a", AudioURL: "https://example.com/a.mp3"},
			{ID: "b"},
			{ID: "c", AudioURL: "https://example.com/c.mp3"},
		},
	}

	playable := r.PlayableTracks()
	assert.Len(t, playable, 2)
	assert.Equal(t, "a", playable[0].ID)
	assert.Equal(t, "c", playable[1].ID)
}

func TestRelease_TotalDuration(t *testing.T) {
	tests := []struct {
		name     string
		tracks   []track.Track
		expected int64
	}{
		{
			name:     "empty release",
			tracks:   []track.Track{},
			expected: 0,
		},
		{
			name: "unknown durations count as zero",
			tracks: []track.Track{
				{ID: "track-1", Duration: 3 * time.Minute},
				{ID: "track-2"},
			},
			expected: 180,
		},
		{
			name: "multiple tracks",
			tracks: []track.Track{
				{ID: "track-1", Duration: 2 * time.Minute},
				{ID: "track-2", Duration: 3*time.Minute + 30*time.Second},
				{ID: "track-3", Duration: 4 * time.Minute},
			},
			expected: 570,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Release{Tracks: tt.tracks}
			assert.Equal(t, tt.expected, r.TotalDuration())
		})
	}
}

func TestRelease_AddressAndSource(t *testing.T) {
	r := &Release{Pubkey: "abc", ID: "album", Kind: 34139, Title: "Album"}

	assert.Equal(t, "34139:abc:album", r.Address())

	src := r.Source()
	assert.Equal(t, track.SourceKindRelease, src.Kind())
	assert.Equal(t, "album", src.ReleaseID)
	assert.Equal(t, "Album", src.Title)
}
