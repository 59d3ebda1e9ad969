// Package logger configures the process-wide structured logger. Every
// subsystem receives a *Logger; none of them touch slog handlers
// directly.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger so call sites depend on one local type.
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration
type Config struct {
	Level       string    // "debug", "info", "warn", "error"
	Format      string    // "json", "text"
	Output      io.Writer // defaults to stdout; tests pass io.Discard
	Environment string
}

// New creates a new Logger instance. Production always logs JSON, and
// debug level turns on source locations so the store fallback chain
// can be traced to a line.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	level := parseLevel(cfg.Level)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if cfg.Format == "json" || cfg.Environment == "production" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Component returns a child logger tagged with the owning subsystem,
// so service, cache, and rate-limiter lines can be filtered apart.
func (l *Logger) Component(name string) *Logger {
	return &Logger{Logger: l.With("component", name)}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
