package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vettabase/query-viz/internal/health"
	"github.com/vettabase/query-viz/internal/infrastructure/config"
	"github.com/vettabase/query-viz/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the dashboard server.
type Deps struct {
	Config    config.DashboardConfig
	Logger    *logging.Logger
	Health    *health.Manager
	Registry  *prometheus.Registry
	OutputDir string
	Version   string
}

// Server serves the rendered charts, connection health and collector
// metrics over HTTP. It is read-only: nothing it exposes mutates state.
type Server struct {
	cfg       config.DashboardConfig
	logger    *logging.Logger
	health    *health.Manager
	registry  *prometheus.Registry
	outputDir string
	version   string

	server *http.Server
}

// New creates a dashboard server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Health == nil {
		return nil, fmt.Errorf("health manager is required")
	}
	if deps.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		health:    deps.Health,
		registry:  deps.Registry,
		outputDir: deps.OutputDir,
		version:   deps.Version,
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("dashboard starting", "address", s.server.Addr)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("dashboard server error", "error", err)
		}
	}()
	return nil
}

// Close gracefully shuts down the dashboard server. It waits up to
// gracefulShutdownTimeout for in-flight requests to complete.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("dashboard shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down dashboard: %w", err)
	}
	return nil
}
