// query-viz - database query visualisation daemon
//
// query-viz connects to one or more database servers, runs configured
// queries on their own schedules, and renders the collected values as
// charts with gnuplot. An optional HTTP dashboard serves the charts,
// connection health and collector metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vettabase/query-viz/internal/connector"
	"github.com/vettabase/query-viz/internal/dashboard"
	"github.com/vettabase/query-viz/internal/health"
	"github.com/vettabase/query-viz/internal/infrastructure/config"
	"github.com/vettabase/query-viz/internal/infrastructure/logging"
	"github.com/vettabase/query-viz/internal/metrics"
	"github.com/vettabase/query-viz/internal/render"
	"github.com/vettabase/query-viz/internal/scheduler"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/queryviz.yaml"

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	listConnectors := flag.Bool("list-connectors", false, "list available connector kinds and exit")
	showConnector := flag.String("show-connector", "", "show metadata for a connector kind and exit")
	flag.Parse()

	if *listConnectors {
		for _, kind := range connector.Kinds() {
			fmt.Println(kind)
		}
		return
	}
	if *showConnector != "" {
		if err := printConnector(*showConnector); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a run failure to the process exit status. In a
// container, starting with every database down is an orderly outcome:
// the orchestrator should not restart-loop the daemon.
func exitCode(err error) int {
	if errors.Is(err, health.ErrNoConnections) && inContainer() {
		return 0
	}
	return 1
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: Path from --config, empty to use env/default
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting query-viz",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	if configPath == "" {
		configPath = getConfigPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Resolve every connection's connector up front: an unknown DBMS kind
	// is a configuration error, not something to retry.
	targets := make([]health.Target, 0, len(cfg.Connections))
	for _, conn := range cfg.Connections {
		c, err := connector.Lookup(conn.DBMS)
		if err != nil {
			return fmt.Errorf("connection %q: %w", conn.Name, err)
		}
		targets = append(targets, health.Target{
			Spec: connector.Spec{
				Name:       conn.Name,
				Candidates: conn.Candidates(),
				User:       conn.User,
				Password:   conn.Password,
				Database:   conn.Database,
				Timeout:    cfg.ConnectionTimeout(conn),
			},
			Connector: c,
		})
	}

	manager := health.NewManager(targets, health.Options{
		GracePeriod:        cfg.InitialGracePeriod.Std(),
		GraceRetryInterval: cfg.GracePeriodRetryInterval.Std(),
		HealInterval:       cfg.FailedConnectionsInterval.Std(),
	})
	manager.SetLogger(log.With("component", "health"))

	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("establishing connections: %w", err)
	}
	defer manager.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store := metrics.NewStore(cfg.Retention.Std(), cfg.MaxPoints, registry)

	defaultConnection := cfg.Connections[0].Name
	queries := make([]scheduler.Query, 0, len(cfg.Queries))
	for _, q := range cfg.Queries {
		connection := q.Connection
		if connection == "" {
			connection = defaultConnection
		}

		interval := cfg.QueryResolvedInterval(q)
		meta := metrics.SeriesMeta{
			Name:        q.Name,
			Description: q.Description,
			Color:       q.Color,
			Interval:    interval,
		}
		if q.Interval.Once {
			meta.Interval = 0
		}
		if err := store.Register(meta); err != nil {
			return fmt.Errorf("registering series: %w", err)
		}

		queries = append(queries, scheduler.Query{
			Name:       q.Name,
			Text:       q.Query,
			Connection: connection,
			Column:     q.Column,
			Interval:   interval,
			Once:       q.Interval.Once,
		})
	}

	sched := scheduler.New(queries, manager, store, scheduler.Options{})
	sched.SetLogger(log.With("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()
	log.Info("scheduler started", "queries", len(queries))

	charts := make([]render.Chart, 0, len(cfg.Charts))
	for _, chart := range cfg.Charts {
		width, height := cfg.ChartDimensions(chart)
		name := chart.Title
		if chart.OutputFile != "" {
			name = strings.TrimSuffix(chart.OutputFile, ".png")
		}
		keyPosition := chart.KeyPosition
		if keyPosition == "" {
			keyPosition = "top right"
		}
		chartQueries := chart.Queries
		if len(chartQueries) == 0 {
			// A chart with no query list plots everything.
			for _, q := range cfg.Queries {
				chartQueries = append(chartQueries, q.Name)
			}
		}
		charts = append(charts, render.Chart{
			Name:        name,
			Title:       chart.Title,
			Queries:     chartQueries,
			XLabel:      chart.XLabel,
			YLabel:      chart.YLabel,
			KeyPosition: keyPosition,
			Width:       width,
			Height:      height,
			LineWidth:   chart.LineWidth,
		})
	}

	charted := make(map[string]bool)
	for _, chart := range charts {
		for _, name := range chart.Queries {
			charted[name] = true
		}
	}
	for _, q := range cfg.Queries {
		if !charted[q.Name] {
			log.Warn("query is collected but not plotted by any chart", "query", q.Name)
		}
	}

	pipeline := render.New(charts, store, cfg.OutputDir, render.Options{
		Interval: cfg.RenderInterval.Std(),
	})
	pipeline.SetLogger(log.With("component", "render"))
	if err := pipeline.Start(ctx); err != nil {
		return fmt.Errorf("starting render pipeline: %w", err)
	}
	defer pipeline.Stop()
	log.Info("render pipeline started",
		"charts", len(charts),
		"interval", cfg.RenderInterval.Std(),
		"output_dir", cfg.OutputDir,
	)

	if cfg.Dashboard.Enabled {
		srv, err := dashboard.New(dashboard.Deps{
			Config:    cfg.Dashboard,
			Logger:    log.With("component", "dashboard"),
			Health:    manager,
			Registry:  registry,
			OutputDir: cfg.OutputDir,
			Version:   version,
		})
		if err != nil {
			return fmt.Errorf("creating dashboard: %w", err)
		}
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("starting dashboard: %w", err)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing dashboard", "error", closeErr)
			}
		}()
	} else {
		log.Info("dashboard disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses QUERYVIZ_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("QUERYVIZ_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// inContainer reports whether the daemon was told it runs inside a
// container, via QUERYVIZ_IN_DOCKER or the conventional IN_DOCKER.
func inContainer() bool {
	for _, key := range []string{"QUERYVIZ_IN_DOCKER", "IN_DOCKER"} {
		switch strings.ToLower(os.Getenv(key)) {
		case "1", "true", "yes":
			return true
		}
	}
	return false
}

// printConnector writes a connector kind's metadata and capabilities as JSON.
func printConnector(kind string) error {
	info, caps, err := connector.Describe(kind)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(struct {
		Info         connector.Info         `json:"info"`
		Capabilities connector.Capabilities `json:"capabilities"`
	}{Info: info, Capabilities: caps}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
