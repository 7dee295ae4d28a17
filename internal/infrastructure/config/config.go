package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for query-viz.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Connections []ConnectionConfig `yaml:"connections"`
	Queries     []QueryConfig      `yaml:"queries"`
	Charts      []ChartConfig      `yaml:"charts"`

	// Interval is the global sampling interval, used by queries that
	// don't declare their own.
	Interval Duration `yaml:"interval"`

	// DBConnectionTimeoutSeconds bounds every connect and execute
	// operation against a database.
	DBConnectionTimeoutSeconds int `yaml:"db_connection_timeout_seconds"`

	// FailedConnectionsInterval is how often the background healer
	// retries failed connections after the grace period has ended.
	FailedConnectionsInterval Duration `yaml:"failed_connections_interval"`

	// InitialGracePeriod is the startup window during which failed
	// connections are retried before the go/no-go decision.
	InitialGracePeriod Duration `yaml:"initial_grace_period"`

	// GracePeriodRetryInterval is how often failed connections are
	// retried during the grace period.
	GracePeriodRetryInterval Duration `yaml:"grace_period_retry_interval"`

	// Retention is how long samples are kept in the metric store.
	Retention Duration `yaml:"retention"`

	// MaxPoints caps the number of samples kept per query.
	MaxPoints int `yaml:"max_points"`

	// RenderInterval is how often charts are regenerated.
	RenderInterval Duration `yaml:"render_interval"`

	// OutputDir is where data files, charts and the chart index are written.
	OutputDir string `yaml:"output_dir"`

	Dashboard DashboardConfig `yaml:"dashboard"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ConnectionConfig describes one database connection.
type ConnectionConfig struct {
	// Name is the unique key queries use to reference this connection.
	Name string `yaml:"name"`

	// DBMS selects the connector kind from the registry
	// (e.g. "mariadb", "mysql", "postgresql", "sqlite").
	DBMS string `yaml:"dbms"`

	// Hosts is an ordered list of "host:port" failover candidates.
	// The first responsive candidate wins.
	Hosts []string `yaml:"hosts"`

	// Host and Port are a single-candidate shorthand for Hosts.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// Database is the database/schema to connect to, where the DBMS
	// requires one. For sqlite it is the file path.
	Database string `yaml:"database"`

	// Timeout overrides db_connection_timeout_seconds for this
	// connection. Zero means use the global value.
	Timeout Duration `yaml:"timeout"`
}

// Candidates returns the ordered failover candidate list for this
// connection, merging the Hosts list with the Host/Port shorthand.
func (c ConnectionConfig) Candidates() []string {
	if len(c.Hosts) > 0 {
		return c.Hosts
	}
	if c.Host == "" {
		return nil
	}
	if c.Port > 0 {
		return []string{fmt.Sprintf("%s:%d", c.Host, c.Port)}
	}
	return []string{c.Host}
}

// QueryConfig describes one monitored query.
type QueryConfig struct {
	// Name is the unique key for this query; it also names the metric series.
	Name string `yaml:"name"`

	// Query is the SQL text, passed to the connector verbatim.
	Query string `yaml:"query"`

	// Connection names the owning connection. Empty means the first
	// declared connection.
	Connection string `yaml:"connection"`

	// Column selects the result column to sample. Required when the
	// query yields more than one column.
	Column string `yaml:"column"`

	// Interval is the per-query sampling interval, or the special value
	// "once". Empty means the global interval.
	Interval QueryInterval `yaml:"interval"`

	// Description and Color are rendering metadata.
	Description string `yaml:"description"`
	Color       string `yaml:"color"`
}

// ChartConfig describes one rendered chart.
type ChartConfig struct {
	Title       string   `yaml:"title"`
	Type        string   `yaml:"type"`
	YLabel      string   `yaml:"ylabel"`
	XLabel      string   `yaml:"xlabel"`
	Queries     []string `yaml:"queries"`
	OutputFile  string   `yaml:"output_file"`
	Size        string   `yaml:"size"`
	Width       int      `yaml:"width"`
	Height      int      `yaml:"height"`
	LineWidth   int      `yaml:"line_width"`
	KeyPosition string   `yaml:"key_position"`
}

// DashboardConfig contains settings for the read-only chart dashboard.
type DashboardConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// chartSizePattern matches the "800x600" chart size shorthand.
var chartSizePattern = regexp.MustCompile(`^(\d+)x(\d+)$`)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Interval:                   Duration(10 * time.Second),
		DBConnectionTimeoutSeconds: 10,
		FailedConnectionsInterval:  Duration(time.Minute),
		InitialGracePeriod:         Duration(30 * time.Second),
		GracePeriodRetryInterval:   Duration(5 * time.Second),
		Retention:                  Duration(time.Hour),
		MaxPoints:                  1000,
		RenderInterval:             Duration(30 * time.Second),
		OutputDir:                  "./output",
		Dashboard: DashboardConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: QUERYVIZ_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QUERYVIZ_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("QUERYVIZ_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("QUERYVIZ_DASHBOARD_HOST"); v != "" {
		cfg.Dashboard.Host = v
	}
}

// Validate checks the configuration for errors.
//
// Beyond per-field checks, it verifies the cross-references the rest of
// the system relies on: connection and query names are unique, and every
// query and chart points at something that exists.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if len(c.Connections) == 0 {
		errs = append(errs, "at least one connection is required")
	}

	connNames := make(map[string]bool, len(c.Connections))
	for i, conn := range c.Connections {
		prefix := fmt.Sprintf("connection %d", i)
		if conn.Name == "" {
			errs = append(errs, prefix+": name is required")
		} else {
			if connNames[conn.Name] {
				errs = append(errs, fmt.Sprintf("%s: duplicate connection name %q", prefix, conn.Name))
			}
			connNames[conn.Name] = true
			prefix = fmt.Sprintf("connection %q", conn.Name)
		}
		if conn.DBMS == "" {
			errs = append(errs, prefix+": dbms is required")
		}
		if len(conn.Candidates()) == 0 {
			errs = append(errs, prefix+": host or hosts is required")
		}
		for _, candidate := range conn.Hosts {
			if strings.TrimSpace(candidate) == "" {
				errs = append(errs, prefix+": hosts entries cannot be empty")
			}
		}
		if conn.Port != 0 && (conn.Port < 1 || conn.Port > 65535) {
			errs = append(errs, prefix+": port must be between 1 and 65535")
		}
	}

	if len(c.Queries) == 0 {
		errs = append(errs, "at least one query is required")
	}

	queryNames := make(map[string]bool, len(c.Queries))
	for i, query := range c.Queries {
		prefix := fmt.Sprintf("query %d", i)
		if query.Name == "" {
			errs = append(errs, prefix+": name is required")
		} else {
			if queryNames[query.Name] {
				errs = append(errs, fmt.Sprintf("%s: duplicate query name %q", prefix, query.Name))
			}
			queryNames[query.Name] = true
			prefix = fmt.Sprintf("query %q", query.Name)
		}
		if query.Query == "" {
			errs = append(errs, prefix+": query text is required")
		}
		if query.Connection != "" && !connNames[query.Connection] {
			errs = append(errs, fmt.Sprintf("%s: connection %q not found", prefix, query.Connection))
		}
	}

	for i, chart := range c.Charts {
		prefix := fmt.Sprintf("chart %d", i)
		if chart.Title != "" {
			prefix = fmt.Sprintf("chart %q", chart.Title)
		}
		if chart.YLabel == "" {
			errs = append(errs, prefix+": ylabel is required")
		}
		if chart.Size != "" && (chart.Width != 0 || chart.Height != 0) {
			errs = append(errs, prefix+": size and width/height are mutually exclusive")
		}
		if chart.Size != "" && !chartSizePattern.MatchString(strings.TrimSpace(chart.Size)) {
			errs = append(errs, fmt.Sprintf("%s: invalid size format %q (expected e.g. \"800x600\")", prefix, chart.Size))
		}
		for _, name := range chart.Queries {
			if !queryNames[name] {
				errs = append(errs, fmt.Sprintf("%s: query %q not found", prefix, name))
			}
		}
	}

	if c.DBConnectionTimeoutSeconds <= 0 {
		errs = append(errs, "db_connection_timeout_seconds must be a positive integer")
	}
	if c.Interval.Std() < time.Second {
		errs = append(errs, "interval must be at least 1 second")
	}
	if c.MaxPoints <= 0 {
		errs = append(errs, "max_points must be positive")
	}
	if c.Retention.Std() <= 0 {
		errs = append(errs, "retention must be positive")
	}
	if c.OutputDir == "" {
		errs = append(errs, "output_dir is required")
	}
	if c.Dashboard.Enabled && (c.Dashboard.Port < 1 || c.Dashboard.Port > 65535) {
		errs = append(errs, "dashboard.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DBConnectionTimeout returns the global database operation timeout as a Duration.
func (c *Config) DBConnectionTimeout() time.Duration {
	return time.Duration(c.DBConnectionTimeoutSeconds) * time.Second
}

// ConnectionTimeout returns the effective timeout for the given connection:
// its own timeout if set, otherwise the global one.
func (c *Config) ConnectionTimeout(conn ConnectionConfig) time.Duration {
	if conn.Timeout.Std() > 0 {
		return conn.Timeout.Std()
	}
	return c.DBConnectionTimeout()
}

// QueryResolvedInterval returns the effective sampling interval for a query:
// its own interval if set, otherwise the global one.
func (c *Config) QueryResolvedInterval(q QueryConfig) time.Duration {
	if q.Interval.IsSet() && !q.Interval.Once {
		return q.Interval.Value.Std()
	}
	return c.Interval.Std()
}

// ChartDimensions returns the effective width and height for a chart,
// resolving the "800x600" shorthand and falling back to defaults.
func (c *Config) ChartDimensions(chart ChartConfig) (width, height int) {
	const (
		defaultWidth  = 800
		defaultHeight = 600
	)
	if chart.Size != "" {
		if m := chartSizePattern.FindStringSubmatch(strings.TrimSpace(chart.Size)); m != nil {
			width, _ = strconv.Atoi(m[1])
			height, _ = strconv.Atoi(m[2])
			return width, height
		}
	}
	width, height = chart.Width, chart.Height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	return width, height
}
