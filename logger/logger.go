// Package logger builds the zerolog loggers our services share, so every
// binary stamps the same fields and reads the same LOG_LEVEL variable.
// Where log output ends up is the caller's concern; this package only
// constructs.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/atelpis/kitbag/env"
)

// Config controls how a logger is built.
type Config struct {
	// Level is the minimum level to emit: trace, debug, info, warn,
	// error, fatal or panic. Unknown values fall back to info.
	Level string

	// Service is stamped on every event when non-empty.
	Service string

	// Console switches to the human-readable console writer instead of
	// JSON lines.
	Console bool

	// Writer is the destination, os.Stderr when nil.
	Writer io.Writer
}

// DefaultConfig returns a Config with the level taken from the LOG_LEVEL
// environment variable, info when unset.
func DefaultConfig() Config {
	return Config{
		Level:  env.Get("LOG_LEVEL", "info"),
		Writer: os.Stderr,
	}
}

// New builds a logger from cfg.
func New(cfg Config) zerolog.Logger {
	out := cfg.Writer
	if out == nil {
		out = os.Stderr
	}
	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).Level(parseLevel(cfg.Level)).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	return ctx.Logger()
}

// Nop returns a logger that discards everything, for wiring into
// components that require one.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// WithComponent returns a child logger stamped with a component field.
func WithComponent(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}

func parseLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.InfoLevel
	}

	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = New(Config{Level: "info", Writer: os.Stderr})
)

// Default returns the package-level logger.
func Default() zerolog.Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the package-level logger, typically once at
// startup with New(DefaultConfig()) plus a service name.
func SetDefault(l zerolog.Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}
