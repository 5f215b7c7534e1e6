package playback

import "github.com/osa030/nostrbeat/internal/domain/track"

// Snapshot is a read-only copy of the playback state handed to views.
type Snapshot struct {
	State        State
	Label        string
	Tracks       []track.Track
	Index        int
	CurrentTrack *track.Track
	IsPlaying    bool
	IsLoading    bool
	Error        string
	CurrentTime  float64 // seconds
	Duration     float64 // seconds, 0 if unknown
	Volume       float64
	PlaybackRate float64
	HasNext      bool
	HasPrevious  bool
}

// IsEmpty reports whether there is nothing to show.
func (s Snapshot) IsEmpty() bool {
	return s.State == StateEmpty || s.CurrentTrack == nil
}

// Progress returns the position as a fraction of the duration in [0,1].
func (s Snapshot) Progress() float64 {
	if s.Duration <= 0 {
		return 0
	}
	p := s.CurrentTime / s.Duration
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
