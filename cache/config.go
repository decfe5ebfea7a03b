package cache

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Config controls a Cache instance.
type Config struct {
	// DefaultTTL is applied to Set calls without an explicit TTL.
	// Zero means entries never expire.
	DefaultTTL time.Duration

	// CleanupInterval is how often expired entries are collected.
	CleanupInterval time.Duration

	// File enables persistence to this path. Empty disables it.
	File string

	// FlushInterval is how often the cache is written to File.
	FlushInterval time.Duration

	// FlushOnWrite writes the file after every mutation instead of
	// waiting for the flush ticker.
	FlushOnWrite bool

	// NATSURL and NATSBucket enable mirroring entries to a JetStream
	// KeyValue bucket shared between processes. Both must be set.
	NATSURL    string
	NATSBucket string

	// Logger receives maintenance warnings. Nil discards them.
	Logger *zerolog.Logger
}

// DefaultConfig returns a Config with maintenance intervals filled in
// and no persistence.
func DefaultConfig() Config {
	return Config{
		CleanupInterval: 5 * time.Minute,
		FlushInterval:   5 * time.Minute,
	}
}

// Validate checks cfg and fills zero intervals with the defaults.
func (c *Config) Validate() error {
	if c.DefaultTTL < 0 {
		return fmt.Errorf("%w: negative default TTL", ErrInvalidConfig)
	}
	if c.CleanupInterval < 0 || c.FlushInterval < 0 {
		return fmt.Errorf("%w: negative maintenance interval", ErrInvalidConfig)
	}
	if (c.NATSURL == "") != (c.NATSBucket == "") {
		return fmt.Errorf("%w: NATS URL and bucket must be set together", ErrInvalidConfig)
	}

	if c.CleanupInterval == 0 {
		c.CleanupInterval = 5 * time.Minute
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = 5 * time.Minute
	}
	return nil
}

func (c *Config) logger() zerolog.Logger {
	if c.Logger != nil {
		return *c.Logger
	}
	return zerolog.Nop()
}
