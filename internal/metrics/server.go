package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthResponse is the payload for GET /healthz.
type HealthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

// ConnectionCounter reports the current admitted connection count for
// /healthz without the metrics server importing internal/pool.
type ConnectionCounter interface {
	ConnectionCount() int
}

// Server exposes the Registry over HTTP: a Prometheus-style /metrics
// scrape and a /healthz liveness probe, following the teacher's
// echo-based admin API wiring scoped down to observability only.
type Server struct {
	registry *Registry
	counter  ConnectionCounter
	echo     *echo.Echo
	logger   *slog.Logger
}

func NewServer(registry *Registry, counter ConnectionCounter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{registry: registry, counter: counter, echo: e, logger: logger}
	e.GET("/metrics", s.handleMetrics)
	e.GET("/healthz", s.handleHealthz)
	return s
}

func (s *Server) handleMetrics(c echo.Context) error {
	return c.String(http.StatusOK, s.registry.ScrapeText())
}

func (s *Server) handleHealthz(c echo.Context) error {
	connections := 0
	if s.counter != nil {
		connections = s.counter.ConnectionCount()
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Connections: connections})
}

// Run starts the HTTP server on addr and blocks until ctx is canceled.
func (s *Server) Run(ctx context.Context, addr string) {
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server error", "err", err)
		}
	}()
	<-ctx.Done()
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutCtx); err != nil {
		s.logger.Error("metrics server shutdown", "err", err)
	}
}
