// ABOUTME: Prometheus metrics for the audio server
// ABOUTME: Voice counts, play outcomes, stale handles, fades, streams and tick interval
package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains Prometheus metrics for the voice pool
type Metrics struct {
	voicesLive    prometheus.GaugeFunc
	voicesCreated prometheus.Counter
	voicesFailed  prometheus.Counter
	playsStarted  prometheus.Counter
	playsDropped  *prometheus.CounterVec
	recycled      prometheus.Counter
	staleHandles  prometheus.Counter
	lockLeaks     prometheus.Counter
	fades         prometheus.Gauge
	streams       prometheus.Gauge
	tickInterval  prometheus.Gauge
}

// newMetrics creates metrics; liveVoices is sampled at scrape time
func newMetrics(liveVoices func() float64) *Metrics {
	return &Metrics{
		voicesLive: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "voicepool_voices_live",
			Help: "Hardware voices currently allocated",
		}, liveVoices),
		voicesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voicepool_voices_created_total",
			Help: "Hardware voices created for the pool",
		}),
		voicesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voicepool_voices_failed_total",
			Help: "Pool slots left invalid because voice creation failed",
		}),
		playsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voicepool_plays_started_total",
			Help: "Playbacks started on a voice",
		}),
		playsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voicepool_plays_dropped_total",
			Help: "Play requests dropped before reaching a voice",
		}, []string{"reason"}), // exhausted, locked, throttled, failed, evicted
		recycled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voicepool_slots_recycled_total",
			Help: "Slots returned to the available list",
		}),
		staleHandles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voicepool_stale_handles_total",
			Help: "Commands addressed to a handle whose slot was recycled",
		}),
		lockLeaks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voicepool_lock_leaks_total",
			Help: "Client locks found held past the leak threshold",
		}),
		fades: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "voicepool_fades_active",
			Help: "Fades in progress",
		}),
		streams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "voicepool_streams_active",
			Help: "Streaming sessions attached to voices",
		}),
		tickInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "voicepool_tick_interval_seconds",
			Help: "Current audio processing interval",
		}),
	}
}

// Describe implements prometheus.Collector
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.voicesLive.Describe(ch)
	m.voicesCreated.Describe(ch)
	m.voicesFailed.Describe(ch)
	m.playsStarted.Describe(ch)
	m.playsDropped.Describe(ch)
	m.recycled.Describe(ch)
	m.staleHandles.Describe(ch)
	m.lockLeaks.Describe(ch)
	m.fades.Describe(ch)
	m.streams.Describe(ch)
	m.tickInterval.Describe(ch)
}

// Collect implements prometheus.Collector
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.voicesLive.Collect(ch)
	m.voicesCreated.Collect(ch)
	m.voicesFailed.Collect(ch)
	m.playsStarted.Collect(ch)
	m.playsDropped.Collect(ch)
	m.recycled.Collect(ch)
	m.staleHandles.Collect(ch)
	m.lockLeaks.Collect(ch)
	m.fades.Collect(ch)
	m.streams.Collect(ch)
	m.tickInterval.Collect(ch)
}

// PlayDropped counts a play request dropped by the frontend
func (m *Metrics) PlayDropped(reason string) {
	m.playsDropped.WithLabelValues(reason).Inc()
}
