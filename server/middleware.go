package server

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// statusWriter records the response status for logging and metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func newStatusWriter(w http.ResponseWriter) *statusWriter {
	return &statusWriter{ResponseWriter: w, status: http.StatusOK}
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func brotliMiddleware(level int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "br") {
				next.ServeHTTP(w, r)
				return
			}
			// Range requests and already-encoded payloads pass through
			// unchanged.
			if r.Header.Get("Range") != "" || r.Header.Get("Content-Encoding") != "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Content-Encoding", "br")
			w.Header().Del("Content-Length")
			w.Header().Add("Vary", "Accept-Encoding")

			bw := &brotliWriter{
				ResponseWriter: w,
				writer:         brotli.NewWriterLevel(w, level),
			}
			defer bw.Close()

			next.ServeHTTP(bw, r)
		})
	}
}

type brotliWriter struct {
	http.ResponseWriter
	writer *brotli.Writer
}

func (w *brotliWriter) Write(p []byte) (int, error) {
	return w.writer.Write(p)
}

func (w *brotliWriter) Close() error {
	return w.writer.Close()
}

func (w *brotliWriter) Flush() {
	w.writer.Flush()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
