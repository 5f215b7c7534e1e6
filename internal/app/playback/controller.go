package playback

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/nostrbeat/internal/domain/track"
)

// Errors
var (
	ErrNoAudioSource = errors.New("track has no audio source")
	ErrInvalidRate   = errors.New("playback rate must be a positive number")
	ErrInvalidVolume = errors.New("volume must be a number")
	ErrInvalidSeek   = errors.New("seek position must be a number")
)

// maxSeekSeconds bounds seek targets to what time.Duration can represent.
const maxSeekSeconds = float64(math.MaxInt64 / int64(time.Second))

// Config holds controller configuration.
type Config struct {
	DefaultVolume float64       // Initial volume in [0,1]
	DefaultRate   float64       // Initial playback rate
	LoadTimeout   time.Duration // Upper bound for a single audio load
}

// Controller owns the playback state: the queue, the transport state and the loaded media.
// It is created once and shared by every view for the lifetime of the process.
type Controller struct {
	mu sync.RWMutex

	engine Engine

	// Queue management
	queue Queue

	// Transport state
	state    State
	errMsg   string
	media    Media
	autoplay bool          // Start playback once the pending load finishes
	duration time.Duration // Current track duration (0 if unknown)
	volume   float64
	rate     float64

	// Load tracking. Every load and every media callback carries the generation
	// it was started with; results from older generations are discarded.
	generation uint64
	loadCancel context.CancelFunc
	loadStart  time.Time

	// Configuration
	config Config

	// Events
	eventCh chan Event

	// Context
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// NewController creates a new playback controller in the Empty state.
func NewController(engine Engine, config Config) *Controller {
	if config.DefaultRate <= 0 {
		config.DefaultRate = 1
	}
	if config.LoadTimeout <= 0 {
		config.LoadTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		engine:  engine,
		state:   StateEmpty,
		volume:  clampVolume(config.DefaultVolume),
		rate:    config.DefaultRate,
		config:  config,
		eventCh: make(chan Event, 64),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// PlayQueue replaces the queue wholesale and starts playing the track at startIndex.
// startIndex is clamped into range. An empty track list leaves the controller Empty.
func (c *Controller) PlayQueue(tracks []track.Track, startIndex int, label string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()

	if len(tracks) == 0 {
		c.queue = Queue{}
		c.setStateLocked(StateEmpty)
		c.sendEventLocked(Event{Type: EventQueueCleared, State: c.state})
		return
	}

	c.queue = NewQueue(tracks, startIndex, label)
	zlog.Debug().Msgf("playback: queue replaced: label=%q tracks=%d index=%d", label, c.queue.Len(), c.queue.Index)

	c.sendEventLocked(Event{
		Type:  EventQueueReplaced,
		Track: c.currentTrackLocked(),
		State: c.state,
	})

	c.startLoadLocked(true)
}

// PlayTrack plays a single track as a one-element queue.
func (c *Controller) PlayTrack(t track.Track) {
	c.PlayQueue([]track.Track{t}, 0, t.Title)
}

// PlayOrToggle toggles play/pause when tracks[index] is already the current track,
// otherwise it replaces the queue. Identity is the track ID.
func (c *Controller) PlayOrToggle(tracks []track.Track, index int, label string) {
	if index >= 0 && index < len(tracks) {
		c.mu.RLock()
		same := track.Same(c.currentTrackLocked(), &tracks[index])
		playing := c.state == StatePlaying || (c.state == StateLoading && c.autoplay)
		c.mu.RUnlock()

		if same {
			if playing {
				c.Pause()
			} else {
				c.Play()
			}
			return
		}
	}
	c.PlayQueue(tracks, index, label)
}

// Play starts or resumes the current track.
// It is a no-op when the queue is empty and retries the load after an error.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateEmpty, StatePlaying:
		return
	case StateErrored:
		zlog.Info().Msg("playback: retrying current track")
		c.startLoadLocked(true)
	case StateLoading:
		c.autoplay = true
	case StateReady, StatePaused:
		if c.media == nil {
			c.startLoadLocked(true)
			return
		}
		c.playMediaLocked()
	}
}

// Pause pauses the current track. A pending load will not start playing.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StatePlaying:
		c.media.Pause()
		c.setStateLocked(StatePaused)
	case StateLoading:
		c.autoplay = false
	}
}

// Stop clears the queue and returns to Empty from any state.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
	c.queue = Queue{}
	c.setStateLocked(StateEmpty)
	c.sendEventLocked(Event{Type: EventQueueCleared, State: c.state})
}

// SeekTo moves the position of the loaded track, clamped to [0, duration].
// Play/pause status is unchanged. Without loaded media it is a no-op.
func (c *Controller) SeekTo(seconds float64) error {
	if math.IsNaN(seconds) {
		return ErrInvalidSeek
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.media == nil {
		return nil
	}

	pos := c.clampPositionLocked(seconds)
	if err := c.media.Seek(pos); err != nil {
		return errors.Wrap(err, "failed to seek")
	}
	return nil
}

// NextTrack moves to the next track and plays it. No-op at the end of the queue.
func (c *Controller) NextTrack() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.queue.Advance() {
		return
	}
	c.changeTrackLocked()
}

// PreviousTrack moves to the previous track and plays it. No-op at the start of the queue.
func (c *Controller) PreviousTrack() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.queue.Retreat() {
		return
	}
	c.changeTrackLocked()
}

// SetVolume sets the volume, clamped to [0,1].
func (c *Controller) SetVolume(v float64) error {
	if math.IsNaN(v) {
		return ErrInvalidVolume
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.volume = clampVolume(v)
	if c.media != nil {
		c.media.SetVolume(c.volume)
	}
	return nil
}

// SetPlaybackRate sets the rate multiplier. Only positive finite values are accepted.
func (c *Controller) SetPlaybackRate(r float64) error {
	if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
		return ErrInvalidRate
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.rate = r
	if c.media != nil {
		c.media.SetRate(r)
	}
	return nil
}

// GetState returns the current playback state.
func (c *Controller) GetState() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// GetCurrentTrack returns a copy of the current track.
func (c *Controller) GetCurrentTrack() (*track.Track, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cur := c.currentTrackLocked()
	if cur == nil {
		return nil, false
	}
	t := *cur
	return &t, true
}

// IsCurrent reports whether t is the current track.
func (c *Controller) IsCurrent(t track.Track) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return track.Same(c.currentTrackLocked(), &t)
}

// Snapshot returns a consistent copy of the whole playback state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		State:        c.state,
		Label:        c.queue.Label,
		Index:        c.queue.Index,
		IsPlaying:    c.state == StatePlaying,
		IsLoading:    c.state == StateLoading,
		Error:        c.errMsg,
		Duration:     c.duration.Seconds(),
		Volume:       c.volume,
		PlaybackRate: c.rate,
		HasNext:      c.queue.HasNext(),
		HasPrevious:  c.queue.HasPrevious(),
	}
	s.Tracks = c.queue.Clone().Tracks
	if cur := c.currentTrackLocked(); cur != nil {
		t := *cur
		s.CurrentTrack = &t
	}
	if c.media != nil {
		s.CurrentTime = c.media.Position().Seconds()
		if s.Duration > 0 && s.CurrentTime > s.Duration {
			s.CurrentTime = s.Duration
		}
	}
	return s
}

// Close closes the controller and releases the loaded media.
func (c *Controller) Close() {
	c.mu.Lock()
	c.resetLocked()
	c.queue = Queue{}
	c.state = StateEmpty
	c.cancel()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
}

// changeTrackLocked loads the track at the new queue index.
// Must be called with lock held.
func (c *Controller) changeTrackLocked() {
	c.resetLocked()
	c.sendEventLocked(Event{
		Type:  EventTrackChanged,
		Track: c.currentTrackLocked(),
		State: c.state,
	})
	c.startLoadLocked(true)
}

// resetLocked supersedes any in-flight load and releases the current media.
// Must be called with lock held.
func (c *Controller) resetLocked() {
	c.generation++
	if c.loadCancel != nil {
		c.loadCancel()
		c.loadCancel = nil
	}
	if c.media != nil {
		if err := c.media.Close(); err != nil {
			zlog.Warn().Msgf("playback: failed to close media: %v", err)
		}
		c.media = nil
	}
	c.errMsg = ""
	c.duration = 0
	c.autoplay = false
}

// startLoadLocked begins loading the current track asynchronously.
// Must be called with lock held.
func (c *Controller) startLoadLocked(autoplay bool) {
	c.resetLocked()

	cur := c.currentTrackLocked()
	if cur == nil {
		c.setStateLocked(StateEmpty)
		return
	}

	c.duration = cur.Duration
	if !cur.IsPlayable() {
		c.failLocked(ErrNoAudioSource, 0)
		return
	}

	c.autoplay = autoplay
	c.loadStart = time.Now()
	c.setStateLocked(StateLoading)

	gen := c.generation
	url := cur.AudioURL
	ctx, cancel := context.WithTimeout(c.ctx, c.config.LoadTimeout)
	c.loadCancel = cancel

	zlog.Debug().Msgf("playback: loading track: id=%s url=%s generation=%d", cur.ID, url, gen)

	go func() {
		media, err := c.engine.Load(ctx, url)
		c.onLoaded(gen, media, err)
	}()
}

// onLoaded applies the result of a load started with generation gen.
func (c *Controller) onLoaded(gen uint64, media Media, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		zlog.Debug().Msgf("playback: discarding stale load result: generation=%d current=%d", gen, c.generation)
		if media != nil {
			_ = media.Close()
		}
		return
	}

	if c.loadCancel != nil {
		c.loadCancel()
		c.loadCancel = nil
	}
	elapsed := time.Since(c.loadStart)

	if err != nil {
		c.failLocked(err, elapsed)
		return
	}

	c.media = media
	if d := media.Duration(); d > 0 {
		c.duration = d
	}
	media.SetVolume(c.volume)
	media.SetRate(c.rate)

	c.sendEventLocked(Event{
		Type:         EventTrackLoaded,
		Track:        c.currentTrackLocked(),
		State:        c.state,
		LoadDuration: elapsed,
	})

	if c.autoplay {
		c.playMediaLocked()
		return
	}
	c.setStateLocked(StateReady)
}

// playMediaLocked starts output of the loaded media.
// Must be called with lock held and media loaded.
func (c *Controller) playMediaLocked() {
	gen := c.generation
	err := c.media.Play(func() {
		// Called from the audio output goroutine, which may hold locks
		// that Pause and Seek also take.
		go c.onEnded(gen)
	})
	if err != nil {
		c.failLocked(err, 0)
		return
	}
	c.setStateLocked(StatePlaying)
}

// onEnded advances the queue after the media of generation gen finished.
func (c *Controller) onEnded(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.state != StatePlaying {
		return
	}

	c.sendEventLocked(Event{
		Type:  EventTrackEnded,
		Track: c.currentTrackLocked(),
		State: c.state,
	})

	if c.queue.Advance() {
		c.changeTrackLocked()
		return
	}

	// End of queue: keep the last track loaded, rewound.
	if err := c.media.Seek(0); err != nil {
		zlog.Warn().Msgf("playback: failed to rewind finished track: %v", err)
	}
	c.media.Pause()
	c.setStateLocked(StateReady)
}

// failLocked moves to Errored with a descriptive message.
// Must be called with lock held.
func (c *Controller) failLocked(err error, elapsed time.Duration) {
	if c.media != nil {
		_ = c.media.Close()
		c.media = nil
	}
	c.autoplay = false
	c.errMsg = describeError(err)

	zlog.Warn().Msgf("playback: %s", c.errMsg)

	c.setStateLocked(StateErrored)
	c.sendEventLocked(Event{
		Type:         EventLoadFailed,
		Track:        c.currentTrackLocked(),
		State:        c.state,
		Message:      c.errMsg,
		LoadDuration: elapsed,
	})
}

// setStateLocked changes the state and emits EventStateChanged on change.
// Must be called with lock held.
func (c *Controller) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.sendEventLocked(Event{
		Type:  EventStateChanged,
		Track: c.currentTrackLocked(),
		State: s,
	})
}

func (c *Controller) currentTrackLocked() *track.Track {
	return c.queue.Current()
}

func (c *Controller) clampPositionLocked(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	if c.duration > 0 && seconds >= c.duration.Seconds() {
		return c.duration
	}
	if seconds >= maxSeekSeconds {
		// Unknown duration: let the media clamp to its own end
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(seconds * float64(time.Second))
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(e Event) {
	if c.closed {
		return
	}
	if e.Track != nil {
		t := *e.Track
		e.Track = &t
	}
	select {
	case c.eventCh <- e:
	case <-c.ctx.Done():
	default:
		// Channel full, drop event
	}
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func describeError(err error) string {
	switch {
	case errors.Is(err, ErrNoAudioSource):
		return "This track has no audio source"
	case errors.Is(err, context.DeadlineExceeded):
		return "Timed out loading audio"
	default:
		return "Failed to play track: " + err.Error()
	}
}
