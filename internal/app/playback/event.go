package playback

import (
	"time"

	"github.com/osa030/nostrbeat/internal/domain/track"
)

// EventType represents a playback event type.
type EventType int

const (
	EventStateChanged  EventType = iota // Transport state changed
	EventQueueReplaced                  // A new queue replaced the previous one
	EventQueueCleared                   // Queue was cleared by Stop
	EventTrackLoaded                    // Audio resource finished loading
	EventLoadFailed                     // Audio resource failed to load or play
	EventTrackEnded                     // Track played to the end
	EventTrackChanged                   // Current index moved within the queue
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStateChanged:
		return "state_changed"
	case EventQueueReplaced:
		return "queue_replaced"
	case EventQueueCleared:
		return "queue_cleared"
	case EventTrackLoaded:
		return "track_loaded"
	case EventLoadFailed:
		return "load_failed"
	case EventTrackEnded:
		return "track_ended"
	case EventTrackChanged:
		return "track_changed"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type         EventType
	Track        *track.Track  // Current track (nil when the queue is empty)
	State        State         // State after the event
	Message      string        // Error message for EventLoadFailed
	LoadDuration time.Duration // Time spent loading, for EventTrackLoaded and EventLoadFailed
}
