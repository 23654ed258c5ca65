package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/izzarra/Vertigini-VR/internal/conf"
)

func telemetrySettings(listen string) *conf.Settings {
	settings := &conf.Settings{}
	settings.Realtime.Telemetry.Enabled = true
	settings.Realtime.Telemetry.Listen = listen
	return settings
}

func TestNewEndpointRequiresTelemetryEnabled(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	_, err = NewEndpoint(&conf.Settings{}, m)
	require.Error(t, err)
}

func TestMetricsHandlerServesRegistry(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)
	m.Spatial.RecordFrameUpdate("advanced")

	mux := http.NewServeMux()
	m.RegisterHandlers(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "spatial_frame_updates_total")
}

func TestEndpointGracefulShutdown(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	endpoint, err := NewEndpoint(telemetrySettings("127.0.0.1:0"), m)
	require.NoError(t, err)
	require.Same(t, m, endpoint.GetMetrics())

	var wg sync.WaitGroup
	quit := make(chan struct{})
	endpoint.Start(&wg, quit)

	close(quit)
	wg.Wait()
}
