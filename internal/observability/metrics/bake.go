// Package metrics provides reverb bake metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BakeMetrics contains Prometheus metrics for reverb bake jobs
type BakeMetrics struct {
	registry *prometheus.Registry

	// Job metrics
	jobsTotal       *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	activeJobsGauge prometheus.Gauge

	// Probe metrics
	probesTotal   *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec

	// Artifact metrics
	artifactBytesTotal *prometheus.CounterVec
	artifactsTotal     *prometheus.CounterVec

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// NewBakeMetrics creates and registers new bake metrics
func NewBakeMetrics(registry *prometheus.Registry) (*BakeMetrics, error) {
	m := &BakeMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *BakeMetrics) initMetrics() error {
	m.jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bake_jobs_total",
			Help: "Total number of bake jobs by status",
		},
		[]string{"status"}, // status: started, completed, failed, canceled
	)

	m.jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bake_job_duration_seconds",
			Help:    "Wall clock duration of bake jobs",
			Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount12),
		},
		[]string{"status"},
	)

	m.activeJobsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bake_active_jobs",
			Help: "Number of bake jobs currently running",
		},
	)

	m.probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bake_probes_total",
			Help: "Total number of probe regions baked by status",
		},
		[]string{"status"},
	)

	m.probeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bake_probe_duration_seconds",
			Help:    "Time spent baking one probe region",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
		},
		[]string{"status"},
	)

	m.artifactBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bake_artifact_bytes_total",
			Help: "Total bytes written to bake artifacts",
		},
		[]string{"format"},
	)

	m.artifactsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bake_artifacts_total",
			Help: "Total number of bake artifacts written",
		},
		[]string{"format"},
	)

	m.collectors = []prometheus.Collector{
		m.jobsTotal,
		m.jobDuration,
		m.activeJobsGauge,
		m.probesTotal,
		m.probeDuration,
		m.artifactBytesTotal,
		m.artifactsTotal,
	}

	return nil
}

// Describe implements the Collector interface
func (m *BakeMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *BakeMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// Job recording methods

// RecordJob records a bake job event
func (m *BakeMetrics) RecordJob(status string) {
	m.jobsTotal.WithLabelValues(status).Inc()
}

// RecordJobDuration records the wall clock duration of a bake job
func (m *BakeMetrics) RecordJobDuration(status string, duration float64) {
	m.jobDuration.WithLabelValues(status).Observe(duration)
}

// JobStarted increments the active jobs gauge
func (m *BakeMetrics) JobStarted() {
	m.activeJobsGauge.Inc()
}

// JobFinished decrements the active jobs gauge
func (m *BakeMetrics) JobFinished() {
	m.activeJobsGauge.Dec()
}

// Probe recording methods

// RecordProbe records one baked probe region
func (m *BakeMetrics) RecordProbe(status string) {
	m.probesTotal.WithLabelValues(status).Inc()
}

// RecordProbeDuration records the time spent baking one probe region
func (m *BakeMetrics) RecordProbeDuration(status string, duration float64) {
	m.probeDuration.WithLabelValues(status).Observe(duration)
}

// Artifact recording methods

// RecordArtifact records one written bake artifact and its size
func (m *BakeMetrics) RecordArtifact(format string, sizeBytes int64) {
	m.artifactsTotal.WithLabelValues(format).Inc()
	m.artifactBytesTotal.WithLabelValues(format).Add(float64(sizeBytes))
}
