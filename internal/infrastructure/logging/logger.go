package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/vettabase/query-viz/internal/infrastructure/config"
)

// serviceName is attached to every log record.
const serviceName = "queryviz"

// Logger is a thin wrapper around slog.Logger carrying the daemon's
// default fields.
//
// Thread Safety:
//   - Safe for concurrent use; slog handlers serialise their own output.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of the configuration.
// The format (json or text), minimum level and destination all come
// from cfg; every record carries the service name and build version.
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// parseLevel maps a configured level name (debug, info, warn, error)
// to slog.Level. Unknown names fall back to info rather than failing
// startup.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child Logger with extra default attributes, typically
// a component name:
//
//	log.With("component", "health").Info("connected")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Default returns a stdout JSON logger at info level, for the window
// between process start and configuration load.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
