package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vettabase/query-viz/internal/health"
)

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("QUERYVIZ_CONFIG", "")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("QUERYVIZ_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestInContainer verifies the container flag environment parsing.
func TestInContainer(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  bool
	}{
		{name: "unset", key: "", value: "", want: false},
		{name: "queryviz flag 1", key: "QUERYVIZ_IN_DOCKER", value: "1", want: true},
		{name: "queryviz flag true", key: "QUERYVIZ_IN_DOCKER", value: "true", want: true},
		{name: "queryviz flag mixed case", key: "QUERYVIZ_IN_DOCKER", value: "TRUE", want: true},
		{name: "queryviz flag yes", key: "QUERYVIZ_IN_DOCKER", value: "yes", want: true},
		{name: "conventional flag", key: "IN_DOCKER", value: "1", want: true},
		{name: "zero is off", key: "QUERYVIZ_IN_DOCKER", value: "0", want: false},
		{name: "false is off", key: "IN_DOCKER", value: "false", want: false},
		{name: "empty is off", key: "IN_DOCKER", value: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("QUERYVIZ_IN_DOCKER", "")
			t.Setenv("IN_DOCKER", "")
			if tt.key != "" {
				t.Setenv(tt.key, tt.value)
			}

			if got := inContainer(); got != tt.want {
				t.Errorf("inContainer() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestExitCode verifies the exit status mapping for run failures.
func TestExitCode(t *testing.T) {
	noConns := fmt.Errorf("establishing connections: %w", health.ErrNoConnections)

	tests := []struct {
		name      string
		err       error
		container string
		want      int
	}{
		{name: "no connections in container", err: noConns, container: "1", want: 0},
		{name: "no connections outside container", err: noConns, container: "", want: 1},
		{name: "other error in container", err: errors.New("boom"), container: "1", want: 1},
		{name: "other error outside container", err: errors.New("boom"), container: "", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("QUERYVIZ_IN_DOCKER", tt.container)
			t.Setenv("IN_DOCKER", "")

			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_NoConnectionsEstablished verifies run surfaces the
// no-connections error when every database is unreachable for the whole
// grace period.
func TestRun_NoConnectionsEstablished(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	// Port 1 refuses immediately; the 1s grace period keeps the test short.
	configContent := `
interval: "1"
db_connection_timeout_seconds: 1
initial_grace_period: "1"
grace_period_retry_interval: "1"
failed_connections_interval: "1"
output_dir: "` + filepath.Join(tmpDir, "output") + `"

connections:
  - name: db1
    dbms: mysql
    host: 127.0.0.1
    port: 1
    user: monitor

queries:
  - name: threads
    query: "SELECT 1"

dashboard:
  enabled: false

logging:
  level: error
  format: text
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	err := run(ctx, configPath)
	if err == nil {
		t.Fatal("run() should fail when no connection can be established")
	}
	if !errors.Is(err, health.ErrNoConnections) {
		t.Errorf("run() error = %v, want %v", err, health.ErrNoConnections)
	}
}
