package telemetry

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/bindery/pkg/binding"
	"github.com/vango-dev/bindery/pkg/reactive"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "bindery").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for render and frame durations.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures Metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "bindery",
		// Renders are expected in the microsecond range.
		Buckets:  prometheus.ExponentialBuckets(1e-6, 4, 10),
		Registry: prometheus.DefaultRegisterer,
	}
}

// Totals is a point-in-time copy of the counters, for run reports.
type Totals struct {
	Notifications     uint64 `json:"notifications"`
	NotifyFailures    uint64 `json:"notify_failures"`
	Pruned            uint64 `json:"pruned_edges"`
	Recomputes        uint64 `json:"recomputes"`
	RecomputeFailures uint64 `json:"recompute_failures"`
	PassiveViolations uint64 `json:"passive_violations"`
	MarkedDirty       uint64 `json:"marked_dirty"`
	Renders           uint64 `json:"renders"`
	RenderFailures    uint64 `json:"render_failures"`
	Promotions        uint64 `json:"promotions"`
	Frames            uint64 `json:"frames"`
}

// Metrics implements reactive.Metrics and binding.Metrics with Prometheus
// collectors. It is safe for concurrent use.
type Metrics struct {
	notifications     prometheus.Counter
	notifyFailures    prometheus.Counter
	pruned            prometheus.Counter
	recomputes        *prometheus.CounterVec
	passiveViolations prometheus.Counter
	markedDirty       prometheus.Counter
	renders           *prometheus.CounterVec
	renderDuration    prometheus.Histogram
	promotions        prometheus.Counter
	frames            prometheus.Counter
	frameDuration     prometheus.Histogram
	frameRenders      prometheus.Gauge

	totals struct {
		notifications     atomic.Uint64
		notifyFailures    atomic.Uint64
		pruned            atomic.Uint64
		recomputes        atomic.Uint64
		recomputeFailures atomic.Uint64
		violations        atomic.Uint64
		markedDirty       atomic.Uint64
		renders           atomic.Uint64
		renderFailures    atomic.Uint64
		promo             atomic.Uint64
		frames            atomic.Uint64
	}
}

var (
	_ reactive.Metrics = (*Metrics)(nil)
	_ binding.Metrics  = (*Metrics)(nil)
)

// NewMetrics registers the collectors and returns a Metrics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}

	return &Metrics{
		notifications:     counter("notifications_total", "Observer notifications delivered"),
		notifyFailures:    counter("notify_failures_total", "Observer notifications that panicked"),
		pruned:            counter("pruned_edges_total", "Dependency edges removed after re-evaluation"),
		passiveViolations: counter("passive_violations_total", "Passive observers that read an unrecorded dependency"),
		markedDirty:       counter("marked_dirty_total", "Binding nodes marked dirty"),
		promotions:        counter("passive_promotions_total", "Conditional nodes promoted to passive"),
		frames:            counter("frames_total", "Frames executed"),

		recomputes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "lazy_recomputes_total",
			Help:        "Lazy value recomputations by status",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		renders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "renders_total",
			Help:        "Binding node renders by status",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_duration_seconds",
			Help:        "Binding node render duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		frameDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frame_duration_seconds",
			Help:        "Frame execution duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		frameRenders: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frame_renders",
			Help:        "Nodes rendered in the most recent frame",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Notified implements reactive.Metrics.
func (m *Metrics) Notified(n int) {
	m.notifications.Add(float64(n))
	m.totals.notifications.Add(uint64(n))
}

// NotifyFailed implements reactive.Metrics.
func (m *Metrics) NotifyFailed() {
	m.notifyFailures.Inc()
	m.totals.notifyFailures.Add(1)
}

// Pruned implements reactive.Metrics.
func (m *Metrics) Pruned(n int) {
	m.pruned.Add(float64(n))
	m.totals.pruned.Add(uint64(n))
}

// Recomputed implements reactive.Metrics.
func (m *Metrics) Recomputed(failed bool) {
	m.totals.recomputes.Add(1)
	if failed {
		m.recomputes.WithLabelValues("error").Inc()
		m.totals.recomputeFailures.Add(1)
		return
	}
	m.recomputes.WithLabelValues("success").Inc()
}

// PassiveViolation implements reactive.Metrics.
func (m *Metrics) PassiveViolation() {
	m.passiveViolations.Inc()
	m.totals.violations.Add(1)
}

// MarkedDirty implements binding.Metrics.
func (m *Metrics) MarkedDirty() {
	m.markedDirty.Inc()
	m.totals.markedDirty.Add(1)
}

// Rendered implements binding.Metrics.
func (m *Metrics) Rendered(d time.Duration, failed bool) {
	m.renderDuration.Observe(d.Seconds())
	m.totals.renders.Add(1)
	if failed {
		m.renders.WithLabelValues("error").Inc()
		m.totals.renderFailures.Add(1)
		return
	}
	m.renders.WithLabelValues("success").Inc()
}

// Promoted implements binding.Metrics.
func (m *Metrics) Promoted() {
	m.promotions.Inc()
	m.totals.promo.Add(1)
}

// Frame implements binding.Metrics.
func (m *Metrics) Frame(stats binding.FrameStats) {
	m.frames.Inc()
	m.frameDuration.Observe(stats.Duration.Seconds())
	m.frameRenders.Set(float64(stats.Rendered))
	m.totals.frames.Add(1)
}

// Totals returns the counters accumulated so far.
func (m *Metrics) Totals() Totals {
	return Totals{
		Notifications:     m.totals.notifications.Load(),
		NotifyFailures:    m.totals.notifyFailures.Load(),
		Pruned:            m.totals.pruned.Load(),
		Recomputes:        m.totals.recomputes.Load(),
		RecomputeFailures: m.totals.recomputeFailures.Load(),
		PassiveViolations: m.totals.violations.Load(),
		MarkedDirty:       m.totals.markedDirty.Load(),
		Renders:           m.totals.renders.Load(),
		RenderFailures:    m.totals.renderFailures.Load(),
		Promotions:        m.totals.promo.Load(),
		Frames:            m.totals.frames.Load(),
	}
}
