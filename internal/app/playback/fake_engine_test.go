package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type loadResult struct {
	media Media
	err   error
}

// fakeEngine resolves loads immediately, or holds them until released when manual is set.
type fakeEngine struct {
	mu       sync.Mutex
	manual   bool
	duration time.Duration
	failures map[string]error
	pending  map[string][]chan loadResult
	loads    []string
	medias   []*fakeMedia
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		duration: 3 * time.Minute,
		failures: make(map[string]error),
		pending:  make(map[string][]chan loadResult),
	}
}

func (e *fakeEngine) Load(ctx context.Context, url string) (Media, error) {
	e.mu.Lock()
	e.loads = append(e.loads, url)
	if err, ok := e.failures[url]; ok {
		e.mu.Unlock()
		return nil, err
	}
	if e.manual {
		ch := make(chan loadResult, 1)
		e.pending[url] = append(e.pending[url], ch)
		e.mu.Unlock()
		// Manual loads ignore ctx so tests can deliver late results.
		r := <-ch
		return r.media, r.err
	}
	m := &fakeMedia{duration: e.duration, url: url}
	e.medias = append(e.medias, m)
	e.mu.Unlock()
	return m, nil
}

// release completes the oldest pending load for url.
func (e *fakeEngine) release(t *testing.T, url string, err error) *fakeMedia {
	t.Helper()

	var ch chan loadResult
	require.Eventually(t, func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		if len(e.pending[url]) == 0 {
			return false
		}
		ch = e.pending[url][0]
		e.pending[url] = e.pending[url][1:]
		return true
	}, time.Second, 5*time.Millisecond, "no pending load for %s", url)

	if err != nil {
		ch <- loadResult{err: err}
		return nil
	}
	m := &fakeMedia{duration: e.duration, url: url}
	e.mu.Lock()
	e.medias = append(e.medias, m)
	e.mu.Unlock()
	ch <- loadResult{media: m}
	return m
}

func (e *fakeEngine) fail(url string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[url] = err
}

func (e *fakeEngine) heal(url string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.failures, url)
}

func (e *fakeEngine) loadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.loads)
}

func (e *fakeEngine) lastMedia() *fakeMedia {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.medias) == 0 {
		return nil
	}
	return e.medias[len(e.medias)-1]
}

type fakeMedia struct {
	mu       sync.Mutex
	url      string
	duration time.Duration
	position time.Duration
	playing  bool
	closed   bool
	volume   float64
	rate     float64
	onEnded  func()
}

func (m *fakeMedia) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *fakeMedia) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *fakeMedia) Play(onEnded func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = true
	m.onEnded = onEnded
	return nil
}

func (m *fakeMedia) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
}

func (m *fakeMedia) Seek(pos time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = pos
	return nil
}

func (m *fakeMedia) SetVolume(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = v
}

func (m *fakeMedia) SetRate(r float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = r
}

func (m *fakeMedia) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.playing = false
	return nil
}

func (m *fakeMedia) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *fakeMedia) isPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// finish simulates the resource reaching its end.
func (m *fakeMedia) finish() {
	m.mu.Lock()
	cb := m.onEnded
	m.position = m.duration
	m.mu.Unlock()
	if cb != nil {
		cb()
	}
}
