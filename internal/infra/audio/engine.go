// Package audio plays remote audio files through the system speaker.
package audio

import (
	"context"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/nostrbeat/internal/app/playback"
)

// Errors
var (
	ErrHTTPStatus = errors.New("unexpected HTTP status")
	ErrTooLarge   = errors.New("audio file too large")
)

// Output is the device streamers are mixed into.
type Output interface {
	Play(s beep.Streamer)
	Lock()
	Unlock()
}

// Config represents audio engine configuration.
type Config struct {
	SampleRate   int           // Output sample rate
	BufferMillis int           // Speaker buffer size
	HTTPTimeout  time.Duration // Per-request timeout; the load context also applies
	MaxBytes     int64         // Upper bound on a downloaded file
	Quality      int           // Resampler quality (1-6)
}

func (c *Config) setDefaults() {
	if c.SampleRate <= 0 {
		c.SampleRate = 44100
	}
	if c.BufferMillis <= 0 {
		c.BufferMillis = 100
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 200 << 20
	}
	if c.Quality <= 0 {
		c.Quality = 4
	}
}

var (
	speakerOnce sync.Once
	speakerErr  error
)

// speakerOutput is the process-wide beep speaker.
type speakerOutput struct{}

func (speakerOutput) Play(s beep.Streamer) { speaker.Play(s) }
func (speakerOutput) Lock()                { speaker.Lock() }
func (speakerOutput) Unlock()              { speaker.Unlock() }

// Engine loads audio over HTTP and decodes it for playback.
type Engine struct {
	client     *http.Client
	output     Output
	sampleRate beep.SampleRate
	maxBytes   int64
	quality    int
}

// New initializes the speaker and creates an engine.
func New(cfg Config) (*Engine, error) {
	cfg.setDefaults()
	sr := beep.SampleRate(cfg.SampleRate)
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(sr, sr.N(time.Duration(cfg.BufferMillis)*time.Millisecond))
	})
	if speakerErr != nil {
		return nil, errors.Wrap(speakerErr, "failed to initialize speaker")
	}
	zlog.Info().Msgf("Speaker initialized: sample_rate=%d buffer=%dms", cfg.SampleRate, cfg.BufferMillis)
	return NewWithOutput(cfg, speakerOutput{}), nil
}

// NewWithOutput creates an engine that mixes into output.
func NewWithOutput(cfg Config, output Output) *Engine {
	cfg.setDefaults()
	return &Engine{
		client:     &http.Client{Timeout: cfg.HTTPTimeout},
		output:     output,
		sampleRate: beep.SampleRate(cfg.SampleRate),
		maxBytes:   cfg.MaxBytes,
		quality:    cfg.Quality,
	}
}

// Load downloads and decodes the file at url.
func (e *Engine) Load(ctx context.Context, url string) (playback.Media, error) {
	data, err := e.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	f := DetectFormat(data)
	if f == FormatUnknown {
		return nil, ErrUnsupportedFormat
	}

	streamer, format, err := decode(f, data)
	if err != nil {
		return nil, err
	}
	if md := ReadMetadata(data); md.Title != "" {
		zlog.Debug().Msgf("Embedded tags: title=%q artist=%q album=%q", md.Title, md.Artist, md.Album)
	}
	zlog.Debug().Msgf("Decoded %s: sample_rate=%d channels=%d length=%s",
		f, format.SampleRate, format.NumChannels, format.SampleRate.D(streamer.Len()))

	return newMedia(e.output, streamer, format, e.sampleRate, e.quality), nil
}

func (e *Engine) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "invalid audio URL")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch audio")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(ErrHTTPStatus, "%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	if resp.ContentLength > e.maxBytes {
		return nil, ErrTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read audio")
	}
	if int64(len(data)) > e.maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// media is a decoded resource. Every mutable field is guarded by the output lock,
// which is also held by the mixer while it pulls samples.
type media struct {
	output    Output
	streamer  beep.StreamSeekCloser
	format    beep.Format
	ctrl      *beep.Ctrl
	volume    *effects.Volume
	resampler *beep.Resampler
	baseRatio float64

	started bool
	ended   bool
	closed  bool
	onEnded func()
}

func newMedia(output Output, s beep.StreamSeekCloser, format beep.Format, outRate beep.SampleRate, quality int) *media {
	m := &media{
		output:    output,
		streamer:  s,
		format:    format,
		baseRatio: float64(format.SampleRate) / float64(outRate),
	}
	m.resampler = beep.ResampleRatio(quality, m.baseRatio, s)
	m.volume = &effects.Volume{Streamer: m.resampler, Base: 2}
	m.ctrl = &beep.Ctrl{Streamer: m.volume, Paused: true}
	return m
}

func (m *media) Duration() time.Duration {
	return m.format.SampleRate.D(m.streamer.Len())
}

func (m *media) Position() time.Duration {
	m.output.Lock()
	defer m.output.Unlock()
	return m.format.SampleRate.D(m.streamer.Position())
}

func (m *media) Play(onEnded func()) error {
	m.output.Lock()
	if m.closed {
		m.output.Unlock()
		return errors.New("media is closed")
	}
	m.onEnded = onEnded
	m.ctrl.Paused = false
	attach := !m.started || m.ended
	m.started = true
	m.ended = false
	m.output.Unlock()

	if attach {
		m.output.Play(beep.Seq(m.ctrl, beep.Callback(m.finish)))
	}
	return nil
}

// finish runs on the mixer goroutine with the output lock held.
func (m *media) finish() {
	if m.closed || m.ended {
		return
	}
	m.ended = true
	if m.onEnded != nil {
		m.onEnded()
	}
}

func (m *media) Pause() {
	m.output.Lock()
	defer m.output.Unlock()
	m.ctrl.Paused = true
}

func (m *media) Seek(pos time.Duration) error {
	m.output.Lock()
	defer m.output.Unlock()

	n := m.format.SampleRate.N(pos)
	if n < 0 {
		n = 0
	}
	if l := m.streamer.Len(); n > l {
		n = l
	}
	if err := m.streamer.Seek(n); err != nil {
		return errors.Wrap(err, "failed to seek")
	}
	return nil
}

func (m *media) SetVolume(v float64) {
	m.output.Lock()
	defer m.output.Unlock()
	if v <= 0 {
		m.volume.Silent = true
		return
	}
	m.volume.Silent = false
	m.volume.Volume = math.Log2(math.Min(v, 1))
}

func (m *media) SetRate(r float64) {
	m.output.Lock()
	defer m.output.Unlock()
	m.resampler.SetRatio(m.baseRatio * r)
}

func (m *media) Close() error {
	m.output.Lock()
	defer m.output.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	// A nil streamer makes the Ctrl report exhaustion so the mixer drops it.
	m.ctrl.Streamer = nil
	return m.streamer.Close()
}
