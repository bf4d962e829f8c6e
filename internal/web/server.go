// Package web exposes a small HTTP surface for triggering syncs and
// inspecting the last run, for deployments where the tool runs as a
// long-lived service instead of a one-shot CLI.
package web

import (
	"net/http"
	stdsync "sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"subsplash-sync/internal/config"
	"subsplash-sync/internal/event"
	syncer "subsplash-sync/internal/sync"
)

// Server wraps a Syncer behind trigger/status/health endpoints. Only one
// sync runs at a time; a trigger during a running sync is rejected.
type Server struct {
	syncer *syncer.Syncer
	cfg    *config.Config
	echo   *echo.Echo

	mu        stdsync.Mutex
	running   bool
	lastRun   time.Time
	summaries []event.Summary
}

// statusResponse is the payload of GET /api/sync/status.
type statusResponse struct {
	Running   bool            `json:"running"`
	LastRun   string          `json:"last_run,omitempty"`
	Summaries []event.Summary `json:"summaries,omitempty"`
}

// NewServer constructs a Server around an already-authenticated syncer.
func NewServer(s *syncer.Syncer, cfg *config.Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	srv := &Server{syncer: s, cfg: cfg, echo: e}

	e.GET("/healthz", srv.health)
	e.GET("/api/sync/status", srv.status)
	e.POST("/api/sync/trigger", srv.trigger)

	return srv
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// status reports whether a sync is in flight and the summaries of the most
// recent completed run.
func (s *Server) status(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := statusResponse{Running: s.running, Summaries: s.summaries}
	if !s.lastRun.IsZero() {
		resp.LastRun = s.lastRun.Format(time.RFC3339)
	}
	return c.JSON(http.StatusOK, resp)
}

// trigger starts a sync of all sources, or a single one when the "source"
// query parameter names it. The sync runs synchronously; callers get the
// summaries in the response.
func (s *Server) trigger(c echo.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return c.JSON(http.StatusConflict, map[string]string{"error": "sync already running"})
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx := c.Request().Context()

	var summaries []event.Summary
	if name := c.QueryParam("source"); name != "" {
		src, ok := s.cfg.SourceByName(name)
		if !ok {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown source: " + name})
		}
		summaries = []event.Summary{s.syncer.SyncSource(ctx, src)}
	} else {
		summaries = s.syncer.SyncAll(ctx)
	}

	s.mu.Lock()
	s.lastRun = time.Now()
	s.summaries = summaries
	s.mu.Unlock()

	return c.JSON(http.StatusOK, summaries)
}
