// Package logging constructs the zerolog loggers used across the
// engine. Components receive sub-loggers tagged with their name rather
// than reaching for a global.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config controls logger construction
type Config struct {
	Level   string `json:"level" mapstructure:"level"`     // debug, info, warn, error
	Console bool   `json:"console" mapstructure:"console"` // human-readable console writer
	Output  string `json:"output" mapstructure:"output"`   // stdout or stderr
}

// New builds the root logger from config. Unknown levels fall back to
// info rather than failing startup.
func New(cfg Config) zerolog.Logger {
	var out io.Writer = os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}
	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Component derives a sub-logger tagged with the component name
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
