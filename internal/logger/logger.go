// Package logger configures the service-wide zerolog logger.
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config controls logger construction.
type Config struct {
	Level       string // trace|debug|info|warn|error; defaults to info
	Environment string // "development" enables console output
	ServiceName string
	Version     string
}

// Logger wraps zerolog.Logger so call sites can reach the underlying logger
// via log.Logger when a middleware or client wants the raw value.
type Logger struct {
	zerolog.Logger
}

// New builds a Logger writing JSON to stdout (console format in development),
// stamped with service identity fields.
func New(cfg Config) *Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var out = os.Stdout
	var base zerolog.Logger
	if cfg.Environment == "development" {
		base = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	} else {
		base = zerolog.New(out)
	}

	base = base.Level(level).With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("version", cfg.Version).
		Logger()

	return &Logger{Logger: base}
}
