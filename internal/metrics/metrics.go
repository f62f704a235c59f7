// Package metrics exposes Prometheus instrumentation for the pipeline,
// renderer, and effect chain: queue depth, underruns, graph rebuilds,
// and decode retries. Grounded on the teacher's MetricsCollector
// (internal/audiocore/metrics.go): a global singleton behind
// Init/Get, an enabled flag so an unconfigured player pays no
// recording cost, and mutex-guarded recording methods.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records pipeline metrics into a set of Prometheus
// collectors registered against a single registry.
type Collector struct {
	mu      sync.RWMutex
	enabled bool

	queueDepth       *prometheus.GaugeVec
	queueCapacity    *prometheus.GaugeVec
	underruns        *prometheus.CounterVec
	decodeRetries    *prometheus.CounterVec
	decodeErrors     *prometheus.CounterVec
	graphRebuilds    *prometheus.CounterVec
	eqClampEvents    *prometheus.CounterVec
	sessionsStarted  prometheus.Counter
	sessionsStopped  *prometheus.CounterVec
	renderDriftRamps prometheus.Counter
}

var (
	global     atomic.Pointer[Collector]
	globalOnce sync.Once
)

// Init initializes the global Collector, registering its metrics with
// reg. Passing a nil reg disables metrics entirely (Get() then returns
// a no-op Collector); this lets a host application opt out without any
// call site needing a nil check.
func Init(reg prometheus.Registerer) {
	globalOnce.Do(func() {
		global.Store(newCollector(reg))
	})
}

// Get returns the global Collector, or a disabled no-op one if Init
// was never called.
func Get() *Collector {
	c := global.Load()
	if c == nil {
		return &Collector{enabled: false}
	}
	return c
}

func newCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{enabled: reg != nil}
	if !c.enabled {
		return c
	}

	c.queueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "streamcore",
		Subsystem: "renderer",
		Name:      "queue_depth",
		Help:      "Number of AudioBuffers currently queued for the render callback.",
	}, []string{"session_id"})

	c.queueCapacity = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "streamcore",
		Subsystem: "renderer",
		Name:      "queue_capacity",
		Help:      "Configured renderer queue capacity.",
	}, []string{"session_id"})

	c.underruns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streamcore",
		Subsystem: "renderer",
		Name:      "underruns_total",
		Help:      "Render callbacks that zero-filled part of their output due to an empty queue.",
	}, []string{"session_id"})

	c.decodeRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streamcore",
		Subsystem: "mediaio",
		Name:      "decode_retries_total",
		Help:      "Transient decode read failures absorbed by ReadWithRetry.",
	}, []string{"session_id"})

	c.decodeErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streamcore",
		Subsystem: "mediaio",
		Name:      "decode_errors_total",
		Help:      "Terminal decode/connection errors by category.",
	}, []string{"category"})

	c.graphRebuilds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streamcore",
		Subsystem: "effects",
		Name:      "graph_rebuilds_total",
		Help:      "Effect graph rebuilds coalesced and applied on the render path.",
	}, []string{"session_id"})

	c.eqClampEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streamcore",
		Subsystem: "eq",
		Name:      "gain_clamp_events_total",
		Help:      "EQ band gain setter calls clamped to the +/-12dB range.",
	}, []string{"band"})

	c.sessionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "streamcore",
		Subsystem: "pipeline",
		Name:      "sessions_started_total",
		Help:      "Player.Play invocations that reached the playing state.",
	})

	c.sessionsStopped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streamcore",
		Subsystem: "pipeline",
		Name:      "sessions_stopped_total",
		Help:      "Sessions that ended, by reason (stop, eof, error).",
	}, []string{"reason"})

	c.renderDriftRamps = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "streamcore",
		Subsystem: "renderer",
		Name:      "drift_ramps_total",
		Help:      "Render callbacks that applied the drift-smoothing ramp.",
	})

	reg.MustRegister(
		c.queueDepth, c.queueCapacity, c.underruns, c.decodeRetries,
		c.decodeErrors, c.graphRebuilds, c.eqClampEvents,
		c.sessionsStarted, c.sessionsStopped, c.renderDriftRamps,
	)

	return c
}

// SetQueueDepth records the renderer queue's current depth/capacity.
func (c *Collector) SetQueueDepth(sessionID string, depth, capacity int) {
	if !c.enabled {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.queueDepth.WithLabelValues(sessionID).Set(float64(depth))
	c.queueCapacity.WithLabelValues(sessionID).Set(float64(capacity))
}

// RecordUnderrun counts one render callback that zero-filled part of
// its output.
func (c *Collector) RecordUnderrun(sessionID string) {
	if !c.enabled {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.underruns.WithLabelValues(sessionID).Inc()
}

// RecordDecodeRetry counts one transient decode failure absorbed by
// ReadWithRetry's retry budget.
func (c *Collector) RecordDecodeRetry(sessionID string) {
	if !c.enabled {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.decodeRetries.WithLabelValues(sessionID).Inc()
}

// RecordDecodeError counts one terminal decode/connection error by its
// EnhancedError category.
func (c *Collector) RecordDecodeError(category string) {
	if !c.enabled {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.decodeErrors.WithLabelValues(category).Inc()
}

// RecordGraphRebuild counts one coalesced effect-graph rebuild applied
// on the render path.
func (c *Collector) RecordGraphRebuild(sessionID string) {
	if !c.enabled {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.graphRebuilds.WithLabelValues(sessionID).Inc()
}

// RecordEQClamp counts one EQ band gain setter call clamped to range.
func (c *Collector) RecordEQClamp(band string) {
	if !c.enabled {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.eqClampEvents.WithLabelValues(band).Inc()
}

// RecordSessionStarted counts one session that reached the playing
// state.
func (c *Collector) RecordSessionStarted() {
	if !c.enabled {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.sessionsStarted.Inc()
}

// RecordSessionStopped counts one session end, tagged by reason
// ("stop", "eof", "error").
func (c *Collector) RecordSessionStopped(reason string) {
	if !c.enabled {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.sessionsStopped.WithLabelValues(reason).Inc()
}

// RecordDriftRamp counts one render callback that applied the
// drift-smoothing ramp.
func (c *Collector) RecordDriftRamp() {
	if !c.enabled {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.renderDriftRamps.Inc()
}
