package server

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func startServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	opts = append([]Option{WithAddr("127.0.0.1:0"), WithLogger(zerolog.Nop())}, opts...)
	s, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})
	return s
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return resp, body
}

func TestHealthEndpoint(t *testing.T) {
	s := startServer(t)

	resp, body := get(t, "http://"+s.Addr()+"/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: got %q, want application/json", ct)
	}

	var health map[string]any
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("decoding health body: %v", err)
	}
	if health["status"] != "ok" {
		t.Errorf("status field: got %v, want ok", health["status"])
	}
	if _, ok := health["uptime"].(string); !ok {
		t.Error("uptime field missing")
	}
	if n, ok := health["goroutines"].(float64); !ok || n < 1 {
		t.Errorf("goroutines field: got %v", health["goroutines"])
	}
	if _, ok := health["memory"].(map[string]any); !ok {
		t.Error("memory field missing")
	}
}

func TestWithoutHealthCheck(t *testing.T) {
	s := startServer(t, WithoutHealthCheck())

	resp, _ := get(t, "http://"+s.Addr()+"/health")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestCustomRoutes(t *testing.T) {
	s := startServer(t, WithRoutes(func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("pong"))
		})
	}))

	resp, body := get(t, "http://"+s.Addr()+"/ping")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if string(body) != "pong" {
		t.Errorf("body: got %q, want pong", body)
	}

	// A trailing slash reaches the same route.
	resp, body = get(t, "http://"+s.Addr()+"/ping/")
	if resp.StatusCode != http.StatusOK || string(body) != "pong" {
		t.Errorf("trailing slash: got %d %q, want 200 pong", resp.StatusCode, body)
	}
}

func TestRouterRegistration(t *testing.T) {
	s, err := New(WithAddr("127.0.0.1:0"), WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Router().Get("/direct", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Shutdown(context.Background())

	resp, _ := get(t, "http://"+s.Addr()+"/direct")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status: got %d, want 204", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := startServer(t, WithMetrics("testsrv"), WithRoutes(func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("pong"))
		})
	}))

	get(t, "http://"+s.Addr()+"/ping")

	resp, body := get(t, "http://"+s.Addr()+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), "testsrv_http_requests_total") {
		t.Error("metrics output missing the request counter")
	}
	if !strings.Contains(string(body), `path="/ping"`) {
		t.Error("metrics output missing the /ping label")
	}
}

func TestMultipleServersRegisterMetrics(t *testing.T) {
	for i := 0; i < 2; i++ {
		if _, err := New(WithAddr("127.0.0.1:0"), WithLogger(zerolog.Nop())); err != nil {
			t.Fatalf("New #%d: %v", i+1, err)
		}
	}
}

func TestBrotliCompression(t *testing.T) {
	payload := strings.Repeat("compressible content ", 100)
	s := startServer(t, WithBrotli(), WithRoutes(func(r chi.Router) {
		r.Get("/data", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(payload))
		})
	}))

	req, err := http.NewRequest(http.MethodGet, "http://"+s.Addr()+"/data", nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Accept-Encoding", "br")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if enc := resp.Header.Get("Content-Encoding"); enc != "br" {
		t.Fatalf("content encoding: got %q, want br", enc)
	}

	decoded, err := io.ReadAll(brotli.NewReader(resp.Body))
	if err != nil {
		t.Fatalf("decoding brotli body: %v", err)
	}
	if string(decoded) != payload {
		t.Error("decoded body does not match the payload")
	}
}

func TestGzipCompression(t *testing.T) {
	payload := strings.Repeat("compressible content ", 100)
	s := startServer(t, WithGzip(), WithRoutes(func(r chi.Router) {
		r.Get("/data", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte(payload))
		})
	}))

	req, err := http.NewRequest(http.MethodGet, "http://"+s.Addr()+"/data", nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if enc := resp.Header.Get("Content-Encoding"); enc != "gzip" {
		t.Fatalf("content encoding: got %q, want gzip", enc)
	}

	zr, err := gzip.NewReader(resp.Body)
	if err != nil {
		t.Fatalf("opening gzip body: %v", err)
	}
	decoded, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decoding gzip body: %v", err)
	}
	if string(decoded) != payload {
		t.Error("decoded body does not match the payload")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRequestLogging(t *testing.T) {
	var buf syncBuffer
	log := zerolog.New(&buf)

	s := startServer(t, WithLogger(log), WithRoutes(func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("pong"))
		})
	}))

	get(t, "http://"+s.Addr()+"/ping")

	// The log line is written after the response, so give it a moment.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if strings.Contains(buf.String(), `"path":"/ping"`) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("request log line never appeared, log output: %s", buf.String())
		}
		time.Sleep(10 * time.Millisecond)
	}

	out := buf.String()
	for _, want := range []string{`"method":"GET"`, `"status":200`, `"request_id"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s in: %s", want, out)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	s := startServer(t, WithCORSOrigins("http://example.com"))

	req, err := http.NewRequest(http.MethodOptions, "http://"+s.Addr()+"/health", nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight request: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Errorf("allow origin: got %q, want http://example.com", got)
	}
}

func TestPanicRecovery(t *testing.T) {
	s := startServer(t, WithRoutes(func(r chi.Router) {
		r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
			panic("handler exploded")
		})
	}))

	resp, _ := get(t, "http://"+s.Addr()+"/boom")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", resp.StatusCode)
	}
}

func TestProfilingEndpoint(t *testing.T) {
	s := startServer(t, WithProfiling())

	resp, body := get(t, "http://"+s.Addr()+"/debug/pprof/goroutine?debug=1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), "goroutine") {
		t.Error("profile output looks empty")
	}
}

func TestShutdownStopsServing(t *testing.T) {
	s := startServer(t)
	addr := s.Addr()

	get(t, "http://"+addr+"/health")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if _, err := http.Get("http://" + addr + "/health"); err == nil {
		t.Error("server still serving after Shutdown")
	}
}

func TestStartPortBusy(t *testing.T) {
	s := startServer(t)

	other, err := New(WithAddr(s.Addr()), WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := other.Start(); err == nil {
		other.Shutdown(context.Background())
		t.Fatal("Start succeeded on a busy port")
	}
}

func TestAddrReportsListenerPort(t *testing.T) {
	s, err := New(WithAddr("127.0.0.1:0"), WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.Addr(); got != "127.0.0.1:0" {
		t.Errorf("before Start: got %q, want configured address", got)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Shutdown(context.Background())

	if got := s.Addr(); strings.HasSuffix(got, ":0") {
		t.Errorf("after Start: got %q, want a real port", got)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"empty address", []Option{WithAddr("")}},
		{"zero timeouts", []Option{WithTimeouts(0, 0)}},
		{"zero request timeout", []Option{WithRequestTimeout(0)}},
		{"zero request size", []Option{WithMaxRequestSize(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts...); err == nil {
				t.Error("New accepted an invalid configuration")
			}
		})
	}
}

func TestServerError(t *testing.T) {
	var buf syncBuffer
	log := zerolog.New(&buf)

	s := startServer(t, WithLogger(log), WithRoutes(func(r chi.Router) {
		r.Get("/fail", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusBadGateway)
		})
	}))

	resp, _ := get(t, fmt.Sprintf("http://%s/fail", s.Addr()))
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status: got %d, want 502", resp.StatusCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if strings.Contains(buf.String(), `"status":502`) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("error log line never appeared, log output: %s", buf.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Error("5xx responses should log at error level")
	}
}
