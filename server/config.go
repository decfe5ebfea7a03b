package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Config collects the server settings. It is built from Options in
// New and not exported; use the With* functions to change it.
type Config struct {
	addr string

	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	requestTimeout  time.Duration
	shutdownTimeout time.Duration

	maxRequestSize int64
	maxHeaderBytes int

	logger         *zerolog.Logger
	requestLogging bool

	metricsEnabled   bool
	metricsNamespace string

	healthEnabled bool
	healthPath    string

	corsOptions *cors.Options

	gzipEnabled   bool
	brotliEnabled bool
	brotliLevel   int

	profilingEnabled bool

	middleware []func(http.Handler) http.Handler
	routes     []func(chi.Router)
}

// Option configures the server.
type Option func(*Config)

const (
	defaultAddr            = ":8080"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 5 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultRequestTimeout  = 60 * time.Second
	defaultShutdownTimeout = 30 * time.Second
	defaultMaxRequestSize  = 10 << 20 // 10 MB
	defaultMaxHeaderBytes  = 1 << 20  // 1 MB
	defaultHealthPath      = "/health"
	defaultNamespace       = "http"
	defaultBrotliLevel     = 4
)

func defaultConfig() *Config {
	return &Config{
		addr:             defaultAddr,
		readTimeout:      defaultReadTimeout,
		writeTimeout:     defaultWriteTimeout,
		idleTimeout:      defaultIdleTimeout,
		requestTimeout:   defaultRequestTimeout,
		shutdownTimeout:  defaultShutdownTimeout,
		maxRequestSize:   defaultMaxRequestSize,
		maxHeaderBytes:   defaultMaxHeaderBytes,
		requestLogging:   true,
		metricsEnabled:   true,
		metricsNamespace: defaultNamespace,
		healthEnabled:    true,
		healthPath:       defaultHealthPath,
		brotliLevel:      defaultBrotliLevel,
		corsOptions: &cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: true,
		},
	}
}

// WithAddr sets the listen address, e.g. ":8080" or "127.0.0.1:0".
func WithAddr(addr string) Option {
	return func(c *Config) {
		c.addr = addr
	}
}

// WithLogger sets the logger used for request logging and server
// lifecycle messages.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Config) {
		c.logger = &log
	}
}

// WithTimeouts sets the read and write timeouts.
func WithTimeouts(read, write time.Duration) Option {
	return func(c *Config) {
		c.readTimeout = read
		c.writeTimeout = write
	}
}

// WithRequestTimeout bounds the total time a handler may take.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.requestTimeout = d
	}
}

// WithIdleTimeout sets how long a keep-alive connection may sit idle.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.idleTimeout = d
	}
}

// WithShutdownTimeout bounds how long Shutdown waits for in-flight
// requests.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.shutdownTimeout = d
	}
}

// WithMaxRequestSize limits request body size in bytes.
func WithMaxRequestSize(n int64) Option {
	return func(c *Config) {
		c.maxRequestSize = n
	}
}

// WithMaxHeaderBytes limits the size of request headers.
func WithMaxHeaderBytes(n int) Option {
	return func(c *Config) {
		c.maxHeaderBytes = n
	}
}

// WithCORS replaces the CORS policy. Passing nil disables the CORS
// middleware entirely.
func WithCORS(options *cors.Options) Option {
	return func(c *Config) {
		c.corsOptions = options
	}
}

// WithCORSOrigins restricts the default allow-all policy to the given
// origins.
func WithCORSOrigins(origins ...string) Option {
	return func(c *Config) {
		if c.corsOptions == nil {
			c.corsOptions = &cors.Options{}
		}
		c.corsOptions.AllowedOrigins = origins
	}
}

// WithMetrics sets the Prometheus namespace for the request metrics.
func WithMetrics(namespace string) Option {
	return func(c *Config) {
		c.metricsEnabled = true
		if namespace != "" {
			c.metricsNamespace = namespace
		}
	}
}

// WithoutMetrics disables the Prometheus middleware and the /metrics
// endpoint.
func WithoutMetrics() Option {
	return func(c *Config) {
		c.metricsEnabled = false
	}
}

// WithoutRequestLogging disables the per-request log line.
func WithoutRequestLogging() Option {
	return func(c *Config) {
		c.requestLogging = false
	}
}

// WithHealthCheck moves the health endpoint to path.
func WithHealthCheck(path string) Option {
	return func(c *Config) {
		c.healthEnabled = true
		if path != "" {
			c.healthPath = path
		}
	}
}

// WithoutHealthCheck removes the health endpoint.
func WithoutHealthCheck() Option {
	return func(c *Config) {
		c.healthEnabled = false
	}
}

// WithGzip enables gzip response compression.
func WithGzip() Option {
	return func(c *Config) {
		c.gzipEnabled = true
	}
}

// WithBrotli enables brotli response compression. The optional level
// is clamped to the valid 1..11 range.
func WithBrotli(level ...int) Option {
	return func(c *Config) {
		c.brotliEnabled = true
		c.brotliLevel = defaultBrotliLevel
		if len(level) > 0 {
			l := level[0]
			if l < 1 {
				l = 1
			}
			if l > 11 {
				l = 11
			}
			c.brotliLevel = l
		}
	}
}

// WithProfiling mounts the pprof handlers under /debug/pprof.
func WithProfiling() Option {
	return func(c *Config) {
		c.profilingEnabled = true
	}
}

// WithMiddleware appends middleware after the built-in chain.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(c *Config) {
		c.middleware = append(c.middleware, mw...)
	}
}

// WithRoutes registers routes on the router once the built-in
// endpoints are in place.
func WithRoutes(fn func(r chi.Router)) Option {
	return func(c *Config) {
		c.routes = append(c.routes, fn)
	}
}
