package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is nil-safe: a nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	tilesFetched     *prometheus.CounterVec
	tileFetchSeconds prometheus.Histogram
	composites       prometheus.Counter
	playbackTicks    prometheus.Counter
	framesRendered   prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		tilesFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workout_viewer",
			Subsystem: "tiles",
			Name:      "fetched_total",
			Help:      "Basemap tiles settled, by result",
		}, []string{"result"}),
		tileFetchSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "workout_viewer",
			Subsystem: "tiles",
			Name:      "fetch_seconds",
			Help:      "Latency of a single tile fetch",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		composites: f.NewCounter(prometheus.CounterOpts{
			Namespace: "workout_viewer",
			Subsystem: "tiles",
			Name:      "composites_total",
			Help:      "Basemap composites completed",
		}),
		playbackTicks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "workout_viewer",
			Subsystem: "playback",
			Name:      "ticks_total",
			Help:      "Playback timer ticks handled",
		}),
		framesRendered: f.NewCounter(prometheus.CounterOpts{
			Namespace: "workout_viewer",
			Subsystem: "render",
			Name:      "frames_total",
			Help:      "Frames rendered",
		}),
	}
}

func (m *Metrics) tileSettled(ok bool, took time.Duration) {
	if m == nil {
		return
	}
	result := "loaded"
	if !ok {
		result = "failed"
	}
	m.tilesFetched.WithLabelValues(result).Inc()
	m.tileFetchSeconds.Observe(took.Seconds())
}

func (m *Metrics) compositeDone() {
	if m != nil {
		m.composites.Inc()
	}
}

func (m *Metrics) tick() {
	if m != nil {
		m.playbackTicks.Inc()
	}
}

func (m *Metrics) frame() {
	if m != nil {
		m.framesRendered.Inc()
	}
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
