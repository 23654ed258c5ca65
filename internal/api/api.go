// Package api exposes the HTTP control surface: the listener status
// snapshot, bake triggering and bake catalog queries.
package api

import (
	"context"
	"crypto/rand"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"

	"github.com/izzarra/Vertigini-VR/internal/bakestore"
	"github.com/izzarra/Vertigini-VR/internal/conf"
	"github.com/izzarra/Vertigini-VR/internal/errors"
	"github.com/izzarra/Vertigini-VR/internal/logging"
	"github.com/izzarra/Vertigini-VR/internal/playback"
	"github.com/izzarra/Vertigini-VR/internal/spatial"
)

// ComponentAPI tags errors originating from the control API.
const ComponentAPI = "api"

// defaultCacheTTL applies when the configured catalog cache TTL is zero.
const defaultCacheTTL = 10 * time.Second

// ListenerSource is the slice of the listener the API reads and pokes.
type ListenerSource interface {
	Status() spatial.Status
	BeginBake(ctx context.Context, names []string) (string, error)
}

// PlaybackSource supplies playback device statistics.
type PlaybackSource interface {
	Stats() playback.DeviceStats
}

// Catalog is the slice of the bake catalog the API queries.
type Catalog interface {
	GetJob(id string) (*bakestore.BakeJob, error)
	ListJobs(limit int) ([]bakestore.BakeJob, error)
	ArtifactsForJob(jobID string) ([]bakestore.BakeArtifact, error)
}

// Params configures the API controller. Listener is required; Playback and
// Catalog degrade their endpoints gracefully when absent.
type Params struct {
	Settings *conf.Settings
	Listener ListenerSource
	Playback PlaybackSource
	Catalog  Catalog
	Logger   *slog.Logger
}

// Controller manages the API routes and handlers.
type Controller struct {
	Echo  *echo.Echo
	Group *echo.Group

	settings *conf.Settings
	listener ListenerSource
	device   PlaybackSource
	catalog  Catalog

	// catalogCache keeps bake catalog responses briefly, so status pollers
	// do not hammer the database.
	catalogCache *cache.Cache

	logger    *slog.Logger
	startTime time.Time
}

// New builds the controller and registers all routes on a fresh echo
// instance. The server does not listen until Start.
func New(p Params) (*Controller, error) {
	if p.Settings == nil {
		return nil, errors.Newf("api controller requires settings").
			Component(ComponentAPI).
			Category(errors.CategoryValidation).
			Build()
	}
	if p.Listener == nil {
		return nil, errors.Newf("api controller requires a listener").
			Component(ComponentAPI).
			Category(errors.CategoryValidation).
			Build()
	}

	logger := p.Logger
	if logger == nil {
		logger = logging.ForService("api")
	}
	if logger == nil {
		logger = slog.Default()
	}

	ttl := time.Duration(p.Settings.Realtime.API.CacheTTL) * time.Second
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	c := &Controller{
		Echo:         e,
		settings:     p.Settings,
		listener:     p.Listener,
		device:       p.Playback,
		catalog:      p.Catalog,
		catalogCache: cache.New(ttl, 2*ttl),
		logger:       logger,
		startTime:    time.Now(),
	}

	e.GET("/healthz", c.HealthCheck)

	c.Group = e.Group("/api/v1")
	c.Group.Use(middleware.Recover())
	c.Group.Use(middleware.CORS())
	c.Group.Use(middleware.BodyLimit("64K"))
	c.Group.Use(c.LoggingMiddleware())

	c.Group.GET("/status", c.GetStatus)
	c.Group.POST("/bake", c.StartBake)
	c.Group.GET("/bakes", c.ListBakes)
	c.Group.GET("/bakes/:id", c.GetBake)

	return c, nil
}

// Start binds the configured listen address and serves in the background.
// It returns once the socket is bound, so callers can treat a bind failure
// as fatal instead of discovering it later in a log line.
func (c *Controller) Start() error {
	listen := c.settings.Realtime.API.Listen
	if listen == "" {
		listen = ":8090"
	}

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return errors.New(err).
			Component(ComponentAPI).
			Category(errors.CategoryNetwork).
			Context("listen", listen).
			Build()
	}
	c.Echo.Listener = ln

	go func() {
		if err := c.Echo.Start(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("api server stopped", "error", err)
		}
	}()

	c.logger.Info("api server listening", "address", ln.Addr().String())
	return nil
}

// Shutdown drains in-flight requests and closes the server. The context
// bounds how long draining may take.
func (c *Controller) Shutdown(ctx context.Context) {
	if err := c.Echo.Shutdown(ctx); err != nil {
		c.logger.Warn("api server shutdown", "error", err)
	}
	c.catalogCache.Flush()
	c.logger.Info("api server stopped")
}

// LoggingMiddleware logs every API request with structured fields.
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			req := ctx.Request()
			res := ctx.Response()
			attrs := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"ip", ctx.RealIP(),
				"latency_ms", time.Since(start).Milliseconds(),
			}
			if err != nil {
				attrs = append(attrs, "error", err)
			}
			c.logger.Info("api request", attrs...)
			return err
		}
	}
}

// ErrorResponse is the JSON body for every failed API call.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates an API error response with a correlation ID for
// matching the response to server logs.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError logs the failure and writes the error response.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)
	c.logger.Error("api error",
		"correlation_id", resp.CorrelationID,
		"message", message,
		"error", resp.Error,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", ctx.RealIP())
	return ctx.JSON(code, resp)
}
