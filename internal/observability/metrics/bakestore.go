// Package metrics provides bake catalog metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BakestoreMetrics contains Prometheus metrics for bake catalog operations
type BakestoreMetrics struct {
	registry *prometheus.Registry

	// Database operation metrics
	dbOperationsTotal      *prometheus.CounterVec
	dbOperationDuration    *prometheus.HistogramVec
	dbOperationErrorsTotal *prometheus.CounterVec

	// Database size metrics
	dbSizeBytesGauge     prometheus.Gauge
	dbTableRowCountGauge *prometheus.GaugeVec

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// NewBakestoreMetrics creates and registers new bake catalog metrics
func NewBakestoreMetrics(registry *prometheus.Registry) (*BakestoreMetrics, error) {
	m := &BakestoreMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *BakestoreMetrics) initMetrics() error {
	m.dbOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bakestore_operations_total",
			Help: "Total number of bake catalog operations",
		},
		[]string{"operation", "table", "status"},
	)

	m.dbOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bakestore_operation_duration_seconds",
			Help:    "Time taken for bake catalog operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
		},
		[]string{"operation", "table"},
	)

	m.dbOperationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bakestore_operation_errors_total",
			Help: "Total number of bake catalog operation errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	m.dbSizeBytesGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bakestore_db_size_bytes",
			Help: "Current size of the bake catalog database file in bytes",
		},
	)

	m.dbTableRowCountGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bakestore_table_row_count",
			Help: "Current number of rows per catalog table",
		},
		[]string{"table"},
	)

	m.collectors = []prometheus.Collector{
		m.dbOperationsTotal,
		m.dbOperationDuration,
		m.dbOperationErrorsTotal,
		m.dbSizeBytesGauge,
		m.dbTableRowCountGauge,
	}

	return nil
}

// Describe implements the Collector interface
func (m *BakestoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *BakestoreMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordOperation records a bake catalog operation
func (m *BakestoreMetrics) RecordOperation(operation, table, status string) {
	m.dbOperationsTotal.WithLabelValues(operation, table, status).Inc()
}

// RecordOperationDuration records the duration of a bake catalog operation
func (m *BakestoreMetrics) RecordOperationDuration(operation, table string, duration float64) {
	m.dbOperationDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordOperationError records a bake catalog operation error
func (m *BakestoreMetrics) RecordOperationError(operation, table, errorType string) {
	m.dbOperationErrorsTotal.WithLabelValues(operation, table, errorType).Inc()
}

// UpdateDbSize updates the catalog database size gauge
func (m *BakestoreMetrics) UpdateDbSize(sizeBytes int64) {
	m.dbSizeBytesGauge.Set(float64(sizeBytes))
}

// UpdateTableRowCount updates the row count gauge for a catalog table
func (m *BakestoreMetrics) UpdateTableRowCount(table string, count int64) {
	m.dbTableRowCountGauge.WithLabelValues(table).Set(float64(count))
}
