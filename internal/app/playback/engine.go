package playback

import (
	"context"
	"time"
)

// Engine loads audio resources for playback.
type Engine interface {
	// Load fetches and prepares the resource at url. It must honour ctx cancellation.
	Load(ctx context.Context, url string) (Media, error)
}

// Media is a loaded audio resource bound to an output.
type Media interface {
	// Duration returns the resource length, or 0 if unknown.
	Duration() time.Duration
	// Position returns the current playback position.
	Position() time.Duration
	// Play starts or resumes playback. onEnded is called once when the resource finishes.
	Play(onEnded func()) error
	// Pause pauses playback.
	Pause()
	// Seek moves the playback position.
	Seek(pos time.Duration) error
	// SetVolume sets the linear volume in [0,1].
	SetVolume(v float64)
	// SetRate sets the playback rate multiplier.
	SetRate(r float64)
	// Close releases the resource and stops output.
	Close() error
}
