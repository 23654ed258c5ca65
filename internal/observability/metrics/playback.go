// Package metrics provides audio playback metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PlaybackMetrics contains Prometheus metrics for audio device playback
type PlaybackMetrics struct {
	registry *prometheus.Registry

	// Device lifecycle metrics
	deviceStartsTotal *prometheus.CounterVec
	deviceStopsTotal  *prometheus.CounterVec

	// Callback and buffer metrics
	callbackBlocksTotal  *prometheus.CounterVec
	framesRenderedTotal  *prometheus.CounterVec
	underrunsTotal       *prometheus.CounterVec
	ringUtilizationGauge *prometheus.GaugeVec

	// Output level metrics
	outputLevelGauge *prometheus.GaugeVec

	// Source metrics
	sourceErrorsTotal *prometheus.CounterVec
	sourceEOFTotal    *prometheus.CounterVec

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// NewPlaybackMetrics creates and registers new playback metrics
func NewPlaybackMetrics(registry *prometheus.Registry) (*PlaybackMetrics, error) {
	m := &PlaybackMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *PlaybackMetrics) initMetrics() error {
	m.deviceStartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playback_device_starts_total",
			Help: "Total number of audio device start attempts",
		},
		[]string{"backend", "status"},
	)

	m.deviceStopsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playback_device_stops_total",
			Help: "Total number of audio device stops",
		},
		[]string{"backend"},
	)

	m.callbackBlocksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playback_callback_blocks_total",
			Help: "Total number of device callback blocks served",
		},
		[]string{"source"},
	)

	m.framesRenderedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playback_frames_rendered_total",
			Help: "Total number of audio frames rendered to the device",
		},
		[]string{"source"},
	)

	m.underrunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playback_underruns_total",
			Help: "Total number of ring buffer underruns during playback",
		},
		[]string{"source"},
	)

	m.ringUtilizationGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "playback_ring_utilization_percent",
			Help: "Current ring buffer utilization as a percentage",
		},
		[]string{"source"},
	)

	m.outputLevelGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "playback_output_level_rms",
			Help: "Current RMS output level per channel",
		},
		[]string{"channel"},
	)

	m.sourceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playback_source_errors_total",
			Help: "Total number of source read errors",
		},
		[]string{"source", "error_type"},
	)

	m.sourceEOFTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playback_source_eof_total",
			Help: "Total number of source end-of-stream events",
		},
		[]string{"source"},
	)

	m.collectors = []prometheus.Collector{
		m.deviceStartsTotal,
		m.deviceStopsTotal,
		m.callbackBlocksTotal,
		m.framesRenderedTotal,
		m.underrunsTotal,
		m.ringUtilizationGauge,
		m.outputLevelGauge,
		m.sourceErrorsTotal,
		m.sourceEOFTotal,
	}

	return nil
}

// Describe implements the Collector interface
func (m *PlaybackMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *PlaybackMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// Device lifecycle recording methods

// RecordDeviceStart records an audio device start attempt
func (m *PlaybackMetrics) RecordDeviceStart(backend, status string) {
	m.deviceStartsTotal.WithLabelValues(backend, status).Inc()
}

// RecordDeviceStop records an audio device stop
func (m *PlaybackMetrics) RecordDeviceStop(backend string) {
	m.deviceStopsTotal.WithLabelValues(backend).Inc()
}

// Callback and buffer recording methods

// RecordCallbackBlock records one served device callback block
func (m *PlaybackMetrics) RecordCallbackBlock(source string) {
	m.callbackBlocksTotal.WithLabelValues(source).Inc()
}

// RecordFramesRendered records frames rendered to the device
func (m *PlaybackMetrics) RecordFramesRendered(source string, frames int) {
	m.framesRenderedTotal.WithLabelValues(source).Add(float64(frames))
}

// RecordUnderrun records a ring buffer underrun
func (m *PlaybackMetrics) RecordUnderrun(source string) {
	m.underrunsTotal.WithLabelValues(source).Inc()
}

// UpdateRingUtilization updates the ring buffer utilization gauge
func (m *PlaybackMetrics) UpdateRingUtilization(source string, utilization float64) {
	m.ringUtilizationGauge.WithLabelValues(source).Set(utilization)
}

// Output level recording methods

// UpdateOutputLevel updates the RMS output level for a channel
func (m *PlaybackMetrics) UpdateOutputLevel(channel string, rms float64) {
	m.outputLevelGauge.WithLabelValues(channel).Set(rms)
}

// Source recording methods

// RecordSourceError records a source read error
func (m *PlaybackMetrics) RecordSourceError(source, errorType string) {
	m.sourceErrorsTotal.WithLabelValues(source, errorType).Inc()
}

// RecordSourceEOF records a source end-of-stream event
func (m *PlaybackMetrics) RecordSourceEOF(source string) {
	m.sourceEOFTotal.WithLabelValues(source).Inc()
}
