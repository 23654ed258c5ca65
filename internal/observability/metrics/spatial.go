// Package metrics provides listener runtime metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SpatialMetrics contains Prometheus metrics for listener runtime operations
type SpatialMetrics struct {
	registry *prometheus.Registry

	// Render path metrics
	renderCallsTotal *prometheus.CounterVec
	renderDuration   *prometheus.HistogramVec
	renderZeroFills  *prometheus.CounterVec
	wetBufferMissing *prometheus.CounterVec

	// Frame update metrics
	frameUpdatesTotal   *prometheus.CounterVec
	frameUpdateDuration *prometheus.HistogramVec
	lazyInitTotal       *prometheus.CounterVec

	// Lifecycle metrics
	lifecycleStateGauge *prometheus.GaugeVec
	detachesTotal       *prometheus.CounterVec

	// Mix configuration metrics
	mixFractionGauge *prometheus.GaugeVec

	// Bake control metrics
	bakeOperationsTotal *prometheus.CounterVec

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// NewSpatialMetrics creates and registers new listener runtime metrics
func NewSpatialMetrics(registry *prometheus.Registry) (*SpatialMetrics, error) {
	m := &SpatialMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *SpatialMetrics) initMetrics() error {
	m.renderCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spatial_render_calls_total",
			Help: "Total number of render calls by mixing mode and outcome",
		},
		[]string{"mode", "outcome"}, // outcome: rendered, zeroed, passthrough, unmodified, noop
	)

	m.renderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spatial_render_duration_seconds",
			Help:    "Time spent rendering one audio block",
			Buckets: prometheus.ExponentialBuckets(BucketStart100us, BucketFactor2, BucketCount12),
		},
		[]string{"mode"},
	)

	m.renderZeroFills = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spatial_render_zero_fills_total",
			Help: "Total number of render calls that zero-filled the output buffer",
		},
		[]string{"reason"}, // reason: not_ready, destroying, accelerated_pending
	)

	m.wetBufferMissing = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spatial_wet_buffer_missing_total",
			Help: "Total number of render calls where the simulator had no wet block ready",
		},
		[]string{"listener"},
	)

	m.frameUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spatial_frame_updates_total",
			Help: "Total number of frame updates by outcome",
		},
		[]string{"outcome"}, // outcome: ok, awaiting_scene, not_ready
	)

	m.frameUpdateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spatial_frame_update_duration_seconds",
			Help:    "Time spent in one frame update tick",
			Buckets: prometheus.ExponentialBuckets(BucketStart100us, BucketFactor2, BucketCount10),
		},
		[]string{"listener"},
	)

	m.lazyInitTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spatial_lazy_init_total",
			Help: "Total number of deferred initialization attempts by result",
		},
		[]string{"result"}, // result: initialized, already_initialized, scene_unavailable, error
	)

	m.lifecycleStateGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "spatial_lifecycle_state",
			Help: "Current lifecycle state of a listener (0=uninitialized, 1=initializing, 2=ready, 3=destroying, 4=destroyed)",
		},
		[]string{"listener"},
	)

	m.detachesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spatial_detaches_total",
			Help: "Total number of listener detach operations",
		},
		[]string{"listener", "status"},
	)

	m.mixFractionGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "spatial_mix_fraction",
			Help: "Current mix fraction by kind (dry or reverb)",
		},
		[]string{"listener", "kind"},
	)

	m.bakeOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spatial_bake_operations_total",
			Help: "Total number of bake control operations issued through the listener",
		},
		[]string{"operation", "status"}, // operation: bake_begin, bake_end
	)

	m.collectors = []prometheus.Collector{
		m.renderCallsTotal,
		m.renderDuration,
		m.renderZeroFills,
		m.wetBufferMissing,
		m.frameUpdatesTotal,
		m.frameUpdateDuration,
		m.lazyInitTotal,
		m.lifecycleStateGauge,
		m.detachesTotal,
		m.mixFractionGauge,
		m.bakeOperationsTotal,
	}

	return nil
}

// Describe implements the Collector interface
func (m *SpatialMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *SpatialMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// Render path recording methods

// RecordRenderCall records a render call with its mixing mode and outcome
func (m *SpatialMetrics) RecordRenderCall(mode, outcome string) {
	m.renderCallsTotal.WithLabelValues(mode, outcome).Inc()
}

// RecordRenderDuration records the duration of one render call
func (m *SpatialMetrics) RecordRenderDuration(mode string, duration float64) {
	m.renderDuration.WithLabelValues(mode).Observe(duration)
}

// RecordRenderZeroFill records a render call that zeroed the output buffer
func (m *SpatialMetrics) RecordRenderZeroFill(reason string) {
	m.renderZeroFills.WithLabelValues(reason).Inc()
}

// RecordWetBufferMissing records a render call where no wet block was available
func (m *SpatialMetrics) RecordWetBufferMissing(listener string) {
	m.wetBufferMissing.WithLabelValues(listener).Inc()
}

// Frame update recording methods

// RecordFrameUpdate records a frame update with its outcome
func (m *SpatialMetrics) RecordFrameUpdate(outcome string) {
	m.frameUpdatesTotal.WithLabelValues(outcome).Inc()
}

// RecordFrameUpdateDuration records the duration of one frame update tick
func (m *SpatialMetrics) RecordFrameUpdateDuration(listener string, duration float64) {
	m.frameUpdateDuration.WithLabelValues(listener).Observe(duration)
}

// RecordLazyInit records a deferred initialization attempt
func (m *SpatialMetrics) RecordLazyInit(result string) {
	m.lazyInitTotal.WithLabelValues(result).Inc()
}

// Lifecycle recording methods

// UpdateLifecycleState updates the lifecycle state gauge for a listener
func (m *SpatialMetrics) UpdateLifecycleState(listener string, state int) {
	m.lifecycleStateGauge.WithLabelValues(listener).Set(float64(state))
}

// RecordDetach records a listener detach operation
func (m *SpatialMetrics) RecordDetach(listener, status string) {
	m.detachesTotal.WithLabelValues(listener, status).Inc()
}

// Mix configuration recording methods

// UpdateMixFraction updates the current mix fraction for a listener
func (m *SpatialMetrics) UpdateMixFraction(listener, kind string, value float64) {
	m.mixFractionGauge.WithLabelValues(listener, kind).Set(value)
}

// Bake control recording methods

// RecordBakeOperation records a bake control operation issued through the listener
func (m *SpatialMetrics) RecordBakeOperation(operation, status string) {
	m.bakeOperationsTotal.WithLabelValues(operation, status).Inc()
}
