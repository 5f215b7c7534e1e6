// Package metrics exposes Prometheus metrics for playback and relay traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/osa030/nostrbeat/internal/app/playback"
)

// Metrics holds the application collectors.
type Metrics struct {
	loads         *prometheus.CounterVec
	loadDuration  prometheus.Histogram
	transitions   *prometheus.CounterVec
	tracksPlayed  prometheus.Counter
	queues        prometheus.Counter
	relayQueries  *prometheus.CounterVec
	relayDuration *prometheus.HistogramVec
	subscribers   prometheus.Gauge
}

// New creates unregistered collectors.
func New() *Metrics {
	return &Metrics{
		loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "nostrbeat_audio_loads_total", Help: "Audio loads by result"},
			[]string{"result"},
		),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nostrbeat_audio_load_duration_seconds",
			Help:    "Time spent loading audio resources",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "nostrbeat_playback_transitions_total", Help: "Playback state transitions by target state"},
			[]string{"state"},
		),
		tracksPlayed: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "nostrbeat_tracks_played_total", Help: "Tracks played to the end"},
		),
		queues: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "nostrbeat_queues_started_total", Help: "Queues handed to the player"},
		),
		relayQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "nostrbeat_relay_queries_total", Help: "Relay queries by relay and result"},
			[]string{"relay", "result"},
		),
		relayDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nostrbeat_relay_query_duration_seconds",
				Help:    "Relay query latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"relay"},
		),
		subscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "nostrbeat_state_subscribers", Help: "Active state stream subscribers"},
		),
	}
}

// MustRegister registers all collectors with reg.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		m.loads,
		m.loadDuration,
		m.transitions,
		m.tracksPlayed,
		m.queues,
		m.relayQueries,
		m.relayDuration,
		m.subscribers,
	)
}

// ObservePlayback records a playback event.
func (m *Metrics) ObservePlayback(e playback.Event) {
	switch e.Type {
	case playback.EventStateChanged:
		m.transitions.WithLabelValues(e.State.String()).Inc()
	case playback.EventQueueReplaced:
		m.queues.Inc()
	case playback.EventTrackLoaded:
		m.loads.WithLabelValues("ok").Inc()
		m.loadDuration.Observe(e.LoadDuration.Seconds())
	case playback.EventLoadFailed:
		m.loads.WithLabelValues("failed").Inc()
		if e.LoadDuration > 0 {
			m.loadDuration.Observe(e.LoadDuration.Seconds())
		}
	case playback.EventTrackEnded:
		m.tracksPlayed.Inc()
	}
}

// ObserveRelayQuery records a relay query.
func (m *Metrics) ObserveRelayQuery(url string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.relayQueries.WithLabelValues(url, result).Inc()
	m.relayDuration.WithLabelValues(url).Observe(elapsed.Seconds())
}

// SetSubscribers records the number of state stream subscribers.
func (m *Metrics) SetSubscribers(n int) {
	m.subscribers.Set(float64(n))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
