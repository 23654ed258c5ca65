package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/izzarra/Vertigini-VR/internal/bakestore"
	"github.com/izzarra/Vertigini-VR/internal/conf"
	"github.com/izzarra/Vertigini-VR/internal/errors"
	"github.com/izzarra/Vertigini-VR/internal/playback"
	"github.com/izzarra/Vertigini-VR/internal/spatial"
)

type fakeListener struct {
	status     spatial.Status
	bakeID     string
	bakeErr    error
	gotRegions []string
}

func (f *fakeListener) Status() spatial.Status { return f.status }

func (f *fakeListener) BeginBake(_ context.Context, names []string) (string, error) {
	f.gotRegions = names
	return f.bakeID, f.bakeErr
}

type fakePlayback struct {
	stats playback.DeviceStats
}

func (f *fakePlayback) Stats() playback.DeviceStats { return f.stats }

type fakeCatalog struct {
	jobs      []bakestore.BakeJob
	job       *bakestore.BakeJob
	artifacts []bakestore.BakeArtifact
	err       error
	listCalls int
	getCalls  int
}

func (f *fakeCatalog) GetJob(string) (*bakestore.BakeJob, error) {
	f.getCalls++
	return f.job, f.err
}

func (f *fakeCatalog) ListJobs(int) ([]bakestore.BakeJob, error) {
	f.listCalls++
	return f.jobs, f.err
}

func (f *fakeCatalog) ArtifactsForJob(string) ([]bakestore.BakeArtifact, error) {
	return f.artifacts, nil
}

func newTestController(t *testing.T, p Params) *Controller {
	t.Helper()
	if p.Settings == nil {
		p.Settings = &conf.Settings{}
		p.Settings.Version = "test"
	}
	if p.Listener == nil {
		p.Listener = &fakeListener{}
	}
	c, err := New(p)
	require.NoError(t, err)
	return c
}

func getJSON(t *testing.T, c *Controller, target string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func getCode(c *Controller, target string) int {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)
	return rec.Code
}

func TestNewValidation(t *testing.T) {
	_, err := New(Params{Listener: &fakeListener{}})
	require.Error(t, err, "settings are required")

	_, err = New(Params{Settings: &conf.Settings{}})
	require.Error(t, err, "a listener is required")
}

func TestHealthCheck(t *testing.T) {
	settings := &conf.Settings{}
	settings.Version = "1.2.3"
	settings.BuildDate = "2026-08-01"
	c := newTestController(t, Params{Settings: settings})

	code, body := getJSON(t, c, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, "2026-08-01", body["build_date"])

	_, err := time.Parse(time.RFC3339, body["timestamp"].(string))
	assert.NoError(t, err, "timestamp is RFC3339")
}

func TestGetStatus(t *testing.T) {
	listener := &fakeListener{status: spatial.Status{
		ModeName:       "accelerated",
		FramesAdvanced: 42,
		RendersServed:  7,
	}}

	t.Run("without playback", func(t *testing.T) {
		c := newTestController(t, Params{Listener: listener})
		code, body := getJSON(t, c, "/api/v1/status")
		assert.Equal(t, http.StatusOK, code)

		snapshot := body["listener"].(map[string]any)
		assert.Equal(t, "accelerated", snapshot["mode"])
		assert.InDelta(t, 42, snapshot["frames_advanced"], 0)

		_, present := body["playback"]
		assert.False(t, present, "no device means no playback block")
	})

	t.Run("with playback", func(t *testing.T) {
		device := &fakePlayback{stats: playback.DeviceStats{Blocks: 99, Level: 80}}
		c := newTestController(t, Params{Listener: listener, Playback: device})
		code, body := getJSON(t, c, "/api/v1/status")
		assert.Equal(t, http.StatusOK, code)

		stats := body["playback"].(map[string]any)
		assert.InDelta(t, 99, stats["blocks"], 0)
		assert.InDelta(t, 80, stats["level"], 0)
	})
}

func postBake(c *Controller, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(http.MethodPost, "/api/v1/bake", http.NoBody)
	} else {
		req = httptest.NewRequest(http.MethodPost, "/api/v1/bake", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)
	return rec
}

func TestStartBake(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		listener := &fakeListener{bakeID: "job-123"}
		c := newTestController(t, Params{Listener: listener})

		rec := postBake(c, `{"regions":["atrium","corridor"]}`)
		require.Equal(t, http.StatusAccepted, rec.Code)

		var resp BakeStartResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "job-123", resp.JobID)
		assert.Equal(t, []string{"atrium", "corridor"}, listener.gotRegions)
	})

	t.Run("empty body bakes everything", func(t *testing.T) {
		listener := &fakeListener{bakeID: "job-all"}
		c := newTestController(t, Params{Listener: listener})

		rec := postBake(c, "")
		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Empty(t, listener.gotRegions)
	})

	t.Run("malformed body", func(t *testing.T) {
		c := newTestController(t, Params{Listener: &fakeListener{}})
		rec := postBake(c, `{"regions": [not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("a success invalidates cached listings", func(t *testing.T) {
		listener := &fakeListener{bakeID: "job-9"}
		c := newTestController(t, Params{Listener: listener})
		c.catalogCache.Set("bakes:list:0", []bakestore.BakeJob{}, cache.DefaultExpiration)

		rec := postBake(c, "")
		require.Equal(t, http.StatusAccepted, rec.Code)

		_, found := c.catalogCache.Get("bakes:list:0")
		assert.False(t, found)
	})

	conflictErr := errors.Newf("a bake job is already running").
		Component("softengine").Category(errors.CategoryConflict).Build()
	noRegionsErr := errors.Newf("no probe regions matched the bake request").
		Component("spatial").Category(errors.CategoryBake).Build()

	failures := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"no baker wired", spatial.ErrNoBaker, http.StatusServiceUnavailable},
		{"job already running", conflictErr, http.StatusConflict},
		{"listener destroyed", spatial.ErrListenerDestroyed, http.StatusConflict},
		{"no matching regions", noRegionsErr, http.StatusBadRequest},
		{"engine failure", fmt.Errorf("backend exploded"), http.StatusInternalServerError},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(t, Params{Listener: &fakeListener{bakeErr: tt.err}})
			rec := postBake(c, "")
			assert.Equal(t, tt.wantCode, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.CorrelationID)
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestListBakes(t *testing.T) {
	t.Run("no catalog", func(t *testing.T) {
		c := newTestController(t, Params{})
		assert.Equal(t, http.StatusServiceUnavailable, getCode(c, "/api/v1/bakes"))
	})

	t.Run("lists jobs", func(t *testing.T) {
		catalog := &fakeCatalog{jobs: []bakestore.BakeJob{
			{ID: "a", State: bakestore.JobDone},
			{ID: "b", State: bakestore.JobRunning},
		}}
		c := newTestController(t, Params{Catalog: catalog})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/bakes", http.NoBody)
		rec := httptest.NewRecorder()
		c.Echo.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var jobs []bakestore.BakeJob
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
		require.Len(t, jobs, 2)
		assert.Equal(t, "a", jobs[0].ID)
	})

	t.Run("responses are cached", func(t *testing.T) {
		catalog := &fakeCatalog{jobs: []bakestore.BakeJob{{ID: "a"}}}
		c := newTestController(t, Params{Catalog: catalog})

		for range 3 {
			require.Equal(t, http.StatusOK, getCode(c, "/api/v1/bakes"))
		}
		assert.Equal(t, 1, catalog.listCalls, "repeat queries come from the cache")
	})

	t.Run("invalid limit", func(t *testing.T) {
		c := newTestController(t, Params{Catalog: &fakeCatalog{}})
		assert.Equal(t, http.StatusBadRequest, getCode(c, "/api/v1/bakes?limit=banana"))
		assert.Equal(t, http.StatusBadRequest, getCode(c, "/api/v1/bakes?limit=-2"))
	})

	t.Run("catalog failure", func(t *testing.T) {
		catalog := &fakeCatalog{err: fmt.Errorf("disk on fire")}
		c := newTestController(t, Params{Catalog: catalog})
		assert.Equal(t, http.StatusInternalServerError, getCode(c, "/api/v1/bakes"))
	})
}

func TestGetBake(t *testing.T) {
	notFound := errors.Newf("bake job not found").
		Component("bakestore").Category(errors.CategoryNotFound).Build()

	t.Run("not found", func(t *testing.T) {
		c := newTestController(t, Params{Catalog: &fakeCatalog{err: notFound}})
		assert.Equal(t, http.StatusNotFound, getCode(c, "/api/v1/bakes/missing"))
	})

	t.Run("job with artifacts", func(t *testing.T) {
		catalog := &fakeCatalog{
			job: &bakestore.BakeJob{ID: "job-1", State: bakestore.JobDone, RegionCount: 2},
			artifacts: []bakestore.BakeArtifact{
				{JobID: "job-1", ProbeName: "atrium"},
				{JobID: "job-1", ProbeName: "corridor"},
			},
		}
		c := newTestController(t, Params{Catalog: catalog})

		code, body := getJSON(t, c, "/api/v1/bakes/job-1")
		require.Equal(t, http.StatusOK, code)

		job := body["job"].(map[string]any)
		assert.Equal(t, "job-1", job["id"])
		assert.Len(t, body["artifacts"].([]any), 2)
	})

	t.Run("terminal jobs are cached", func(t *testing.T) {
		catalog := &fakeCatalog{job: &bakestore.BakeJob{ID: "job-1", State: bakestore.JobDone}}
		c := newTestController(t, Params{Catalog: catalog})

		for range 3 {
			code, _ := getJSON(t, c, "/api/v1/bakes/job-1")
			require.Equal(t, http.StatusOK, code)
		}
		assert.Equal(t, 1, catalog.getCalls)
	})

	t.Run("running jobs are not cached", func(t *testing.T) {
		catalog := &fakeCatalog{job: &bakestore.BakeJob{ID: "job-2", State: bakestore.JobRunning}}
		c := newTestController(t, Params{Catalog: catalog})

		for range 3 {
			code, _ := getJSON(t, c, "/api/v1/bakes/job-2")
			require.Equal(t, http.StatusOK, code)
		}
		assert.Equal(t, 3, catalog.getCalls, "pollers see live state")
	})
}

func TestServerLifecycle(t *testing.T) {
	settings := &conf.Settings{}
	settings.Realtime.API.Listen = "127.0.0.1:0"
	c := newTestController(t, Params{Settings: settings})

	require.NoError(t, c.Start())
	addr := c.Echo.Listener.Addr().String()

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c.Shutdown(ctx)

	_, err = http.Get("http://" + addr + "/healthz")
	assert.Error(t, err, "the socket is closed after shutdown")
}
