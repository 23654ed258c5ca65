// Package observability provides metrics and monitoring capabilities for the Vertigini-VR runtime.
package observability

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/izzarra/Vertigini-VR/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry  *prometheus.Registry
	Spatial   *metrics.SpatialMetrics
	Playback  *metrics.PlaybackMetrics
	Bake      *metrics.BakeMetrics
	Bakestore *metrics.BakestoreMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric collectors.
// It returns an error if any metric collector fails to initialize.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	spatialMetrics, err := metrics.NewSpatialMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create spatial metrics: %w", err)
	}

	playbackMetrics, err := metrics.NewPlaybackMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create playback metrics: %w", err)
	}

	bakeMetrics, err := metrics.NewBakeMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create bake metrics: %w", err)
	}

	bakestoreMetrics, err := metrics.NewBakestoreMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create bakestore metrics: %w", err)
	}

	return &Metrics{
		registry:  registry,
		Spatial:   spatialMetrics,
		Playback:  playbackMetrics,
		Bake:      bakeMetrics,
		Bakestore: bakestoreMetrics,
	}, nil
}

// RegisterHandlers registers the metrics endpoint with the provided http.ServeMux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/metrics", m.metricsHandler)
}

// metricsHandler is the HTTP handler for the /metrics endpoint.
func (m *Metrics) metricsHandler(w http.ResponseWriter, r *http.Request) {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
	h.ServeHTTP(w, r)
}
