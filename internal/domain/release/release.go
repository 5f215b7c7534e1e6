// Package release provides the Release domain entity.
package release

import (
	"time"

	"github.com/osa030/nostrbeat/internal/domain/track"
)

// Release represents an addressable playlist-like event bundling tracks.
type Release struct {
	Pubkey      string        // Artist public key (hex)
	ID          string        // d tag
	Kind        int           // Event kind
	Title       string        // Release title
	Description string        // Release description
	ImageURL    string        // Cover art URL
	TrackRefs   []string      // Track addresses in playback order
	Tracks      []track.Track // Resolved tracks in playback order
	CreatedAt   time.Time     // Event creation time
}

// Address returns the release's event address.
func (r *Release) Address() string {
	return track.Address(r.Kind, r.Pubkey, r.ID)
}

// Source returns the track source describing this release.
func (r *Release) Source() track.ReleaseSource {
	return track.ReleaseSource{
		Pubkey:    r.Pubkey,
		ReleaseID: r.ID,
		EventKind: r.Kind,
		Title:     r.Title,
	}
}

// TrackIDs returns all resolved track IDs in the release.
func (r *Release) TrackIDs() []string {
	ids := make([]string, len(r.Tracks))
	for i, t := range r.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// PlayableTracks returns resolved tracks that have an audio URL, in order.
func (r *Release) PlayableTracks() []track.Track {
	playable := make([]track.Track, 0, len(r.Tracks))
	for _, t := range r.Tracks {
		if t.IsPlayable() {
			playable = append(playable, t)
		}
	}
	return playable
}

// TotalDuration returns the total duration of all tracks in seconds.
// Tracks with unknown duration count as zero.
func (r *Release) TotalDuration() int64 {
	var total int64
	for _, t := range r.Tracks {
		total += int64(t.Duration.Seconds())
	}
	return total
}
