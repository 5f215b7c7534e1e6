package playback

import "github.com/osa030/nostrbeat/internal/domain/track"

// Queue is an ordered list of tracks with a current index.
// Index is valid whenever Tracks is non-empty.
type Queue struct {
	Label  string
	Tracks []track.Track
	Index  int
}

// NewQueue copies tracks into a queue and clamps start into range.
func NewQueue(tracks []track.Track, start int, label string) Queue {
	q := Queue{
		Label:  label,
		Tracks: make([]track.Track, len(tracks)),
	}
	copy(q.Tracks, tracks)
	q.Index = clampIndex(start, len(q.Tracks))
	return q
}

func clampIndex(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Len returns the number of tracks.
func (q *Queue) Len() int {
	return len(q.Tracks)
}

// IsEmpty reports whether the queue has no tracks.
func (q *Queue) IsEmpty() bool {
	return len(q.Tracks) == 0
}

// Current returns the track at Index, or nil if the queue is empty.
func (q *Queue) Current() *track.Track {
	if q.IsEmpty() {
		return nil
	}
	return &q.Tracks[q.Index]
}

// HasNext reports whether there is a track after the current one.
func (q *Queue) HasNext() bool {
	return !q.IsEmpty() && q.Index < len(q.Tracks)-1
}

// HasPrevious reports whether there is a track before the current one.
func (q *Queue) HasPrevious() bool {
	return !q.IsEmpty() && q.Index > 0
}

// Advance moves to the next track. Returns false at the end; there is no wraparound.
func (q *Queue) Advance() bool {
	if !q.HasNext() {
		return false
	}
	q.Index++
	return true
}

// Retreat moves to the previous track. Returns false at the start.
func (q *Queue) Retreat() bool {
	if !q.HasPrevious() {
		return false
	}
	q.Index--
	return true
}

// Clone returns a deep copy of the queue.
func (q *Queue) Clone() Queue {
	return NewQueue(q.Tracks, q.Index, q.Label)
}
