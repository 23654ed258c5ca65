package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/izzarra/Vertigini-VR/internal/bakestore"
	"github.com/izzarra/Vertigini-VR/internal/errors"
	"github.com/izzarra/Vertigini-VR/internal/playback"
	"github.com/izzarra/Vertigini-VR/internal/spatial"
)

// StatusResponse is the GET /api/v1/status body.
type StatusResponse struct {
	Listener      spatial.Status        `json:"listener"`
	Playback      *playback.DeviceStats `json:"playback,omitempty"`
	UptimeSeconds float64               `json:"uptime_seconds"`
}

// BakeStartRequest selects probe regions for POST /api/v1/bake. An empty
// list bakes every region the environment reports.
type BakeStartRequest struct {
	Regions []string `json:"regions"`
}

// BakeStartResponse returns the catalog identifier of the accepted job.
type BakeStartResponse struct {
	JobID string `json:"job_id"`
}

// BakeDetail pairs a job with its artifacts for GET /api/v1/bakes/:id.
type BakeDetail struct {
	Job       bakestore.BakeJob        `json:"job"`
	Artifacts []bakestore.BakeArtifact `json:"artifacts"`
}

// HealthCheck reports liveness. It never touches the engine, so a wedged
// render path still answers.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"version":        c.settings.Version,
		"build_date":     c.settings.BuildDate,
		"timestamp":      time.Now().Format(time.RFC3339),
		"uptime_seconds": time.Since(c.startTime).Seconds(),
	})
}

// GetStatus returns the listener snapshot plus playback stats when a device
// is attached.
func (c *Controller) GetStatus(ctx echo.Context) error {
	resp := StatusResponse{
		Listener:      c.listener.Status(),
		UptimeSeconds: time.Since(c.startTime).Seconds(),
	}
	if c.device != nil {
		stats := c.device.Stats()
		resp.Playback = &stats
	}
	return ctx.JSON(http.StatusOK, resp)
}

// StartBake triggers a reverb bake over the requested probe regions and
// returns the job identifier without waiting for the bake to finish.
func (c *Controller) StartBake(ctx echo.Context) error {
	var req BakeStartRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid bake request", http.StatusBadRequest)
	}

	jobID, err := c.listener.BeginBake(ctx.Request().Context(), req.Regions)
	if err != nil {
		switch {
		case errors.Is(err, spatial.ErrNoBaker):
			return c.HandleError(ctx, err, "baking is not available", http.StatusServiceUnavailable)
		case errors.IsCategory(err, errors.CategoryConflict):
			return c.HandleError(ctx, err, "a bake job is already running", http.StatusConflict)
		case errors.IsCategory(err, errors.CategoryState):
			return c.HandleError(ctx, err, "listener is shut down", http.StatusConflict)
		case errors.IsCategory(err, errors.CategoryBake), errors.IsCategory(err, errors.CategoryValidation):
			return c.HandleError(ctx, err, "bake request rejected", http.StatusBadRequest)
		default:
			return c.HandleError(ctx, err, "failed to start bake", http.StatusInternalServerError)
		}
	}

	// The catalog changed; cached listings are stale now.
	c.catalogCache.Flush()

	c.logger.Info("bake accepted", "job_id", jobID, "regions", len(req.Regions))
	return ctx.JSON(http.StatusAccepted, BakeStartResponse{JobID: jobID})
}

// ListBakes returns recent bake jobs, newest first. Accepts ?limit=N.
func (c *Controller) ListBakes(ctx echo.Context) error {
	if c.catalog == nil {
		return c.HandleError(ctx, nil, "bake catalog not configured", http.StatusServiceUnavailable)
	}

	limit := 0
	if raw := ctx.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.HandleError(ctx, err, "invalid limit parameter", http.StatusBadRequest)
		}
		limit = n
	}

	cacheKey := fmt.Sprintf("bakes:list:%d", limit)
	if cached, found := c.catalogCache.Get(cacheKey); found {
		if jobs, ok := cached.([]bakestore.BakeJob); ok {
			return ctx.JSON(http.StatusOK, jobs)
		}
	}

	jobs, err := c.catalog.ListJobs(limit)
	if err != nil {
		return c.HandleError(ctx, err, "failed to list bake jobs", http.StatusInternalServerError)
	}
	c.catalogCache.Set(cacheKey, jobs, cache.DefaultExpiration)
	return ctx.JSON(http.StatusOK, jobs)
}

// GetBake returns one bake job and its artifacts.
func (c *Controller) GetBake(ctx echo.Context) error {
	if c.catalog == nil {
		return c.HandleError(ctx, nil, "bake catalog not configured", http.StatusServiceUnavailable)
	}
	id := ctx.Param("id")

	cacheKey := "bakes:job:" + id
	if cached, found := c.catalogCache.Get(cacheKey); found {
		if detail, ok := cached.(*BakeDetail); ok {
			return ctx.JSON(http.StatusOK, detail)
		}
	}

	job, err := c.catalog.GetJob(id)
	if err != nil {
		if errors.IsNotFound(err) {
			return c.HandleError(ctx, err, "bake job not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "failed to load bake job", http.StatusInternalServerError)
	}

	artifacts, err := c.catalog.ArtifactsForJob(id)
	if err != nil {
		return c.HandleError(ctx, err, "failed to load bake artifacts", http.StatusInternalServerError)
	}

	detail := &BakeDetail{Job: *job, Artifacts: artifacts}

	// Only terminal jobs are cached; a running job's state should stay
	// visible to pollers without waiting out the TTL.
	switch job.State {
	case bakestore.JobDone, bakestore.JobFailed, bakestore.JobCanceled:
		c.catalogCache.Set(cacheKey, detail, cache.DefaultExpiration)
	}

	return ctx.JSON(http.StatusOK, detail)
}
