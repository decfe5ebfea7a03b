// Package server wraps chi in an HTTP server with the middleware a
// small service usually ends up needing: request logging, Prometheus
// metrics, CORS, compression, a health endpoint and graceful
// shutdown. Routes are added through Router or the WithRoutes option.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/atelpis/kitbag/jsonutil"
	"github.com/atelpis/kitbag/logger"
)

// Server is a configured HTTP server. Create one with New, register
// routes, then call Start.
type Server struct {
	httpServer http.Server
	router     *chi.Mux
	log        zerolog.Logger
	metrics    *Metrics
	cfg        *Config

	mu        sync.Mutex
	listener  net.Listener
	startedAt time.Time
}

func validateConfig(cfg *Config) error {
	if cfg.addr == "" {
		return errors.New("listen address cannot be empty")
	}
	if cfg.readTimeout <= 0 || cfg.writeTimeout <= 0 {
		return errors.New("read and write timeouts must be positive")
	}
	if cfg.requestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if cfg.maxRequestSize <= 0 {
		return errors.New("max request size must be positive")
	}
	return nil
}

// New builds a Server from the given options. The logger defaults to
// the process-wide one from the logger package.
func New(opts ...Option) (*Server, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	log := logger.Default()
	if cfg.logger != nil {
		log = *cfg.logger
	}

	s := &Server{
		router: chi.NewRouter(),
		log:    log,
		cfg:    cfg,
	}

	if cfg.metricsEnabled {
		s.metrics = NewMetrics(cfg.metricsNamespace)
	}

	s.httpServer = http.Server{
		Addr:              cfg.addr,
		Handler:           s.router,
		ReadTimeout:       cfg.readTimeout,
		WriteTimeout:      cfg.writeTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		IdleTimeout:       cfg.idleTimeout,
		MaxHeaderBytes:    cfg.maxHeaderBytes,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// Router returns the underlying chi router for registering routes.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) setupMiddleware() {
	chain := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Timeout(s.cfg.requestTimeout),
		middleware.RequestSize(s.cfg.maxRequestSize),
		trimSlash,
	}

	if s.cfg.requestLogging {
		chain = append(chain, s.requestLogger)
	}
	if s.metrics != nil {
		chain = append(chain, s.metrics.middleware)
	}

	switch {
	case s.cfg.brotliEnabled:
		chain = append(chain, brotliMiddleware(s.cfg.brotliLevel))
	case s.cfg.gzipEnabled:
		chain = append(chain, middleware.Compress(5))
	}

	if s.cfg.corsOptions != nil {
		chain = append(chain, cors.Handler(*s.cfg.corsOptions))
	}

	chain = append(chain, s.cfg.middleware...)
	s.router.Use(chain...)
}

func (s *Server) setupRoutes() {
	if s.metrics != nil {
		s.router.Mount("/metrics", s.metrics.Handler())
	}
	if s.cfg.healthEnabled {
		s.router.Get(s.cfg.healthPath, s.handleHealth)
	}
	if s.cfg.profilingEnabled {
		s.router.Mount("/debug", middleware.Profiler())
	}

	for _, register := range s.cfg.routes {
		register(s.router)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	startedAt := s.startedAt
	s.mu.Unlock()

	var uptime time.Duration
	if !startedAt.IsZero() {
		uptime = time.Since(startedAt).Round(time.Second)
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	health := map[string]any{
		"status":     "ok",
		"timestamp":  time.Now().UTC(),
		"uptime":     uptime.String(),
		"goroutines": runtime.NumGoroutine(),
		"memory": map[string]any{
			"alloc":       m.Alloc,
			"total_alloc": m.TotalAlloc,
			"sys":         m.Sys,
			"num_gc":      m.NumGC,
		},
	}

	body, err := jsonutil.Encode(health)
	if err != nil {
		http.Error(w, "encoding health response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// Start binds the listener and serves in the background. Listen
// errors, a busy port included, are returned synchronously.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	s.mu.Lock()
	s.listener = l
	s.startedAt = time.Now()
	s.mu.Unlock()

	go func() {
		s.log.Info().Str("addr", l.Addr().String()).Msg("http server listening")
		if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("http server stopped")
		}
	}()

	return nil
}

// Shutdown stops accepting connections and waits for in-flight
// requests, bounded by the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cfg.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.shutdownTimeout)
		defer cancel()
	}
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the listener address once the server has started, and
// the configured address before that. With ":0" the started form
// carries the actual port.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// trimSlash drops a trailing slash so /users/ and /users hit the same
// route. The root path stays untouched.
func trimSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := r.URL.Path; len(p) > 1 {
			r.URL.Path = strings.TrimSuffix(p, "/")
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := newStatusWriter(w)
		next.ServeHTTP(sw, r)

		ev := s.log.Info()
		if sw.status >= http.StatusInternalServerError {
			ev = s.log.Error()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
