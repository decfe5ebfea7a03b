package server

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the request metrics for one server. Each server owns
// its registry, so several instances can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal  *prometheus.CounterVec
	responseStatus *prometheus.CounterVec
	duration       *prometheus.HistogramVec
}

// NewMetrics creates and registers the request metrics under the
// given namespace, alongside the standard Go and process collectors.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"path"},
		),
		responseStatus: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_response_status",
				Help:      "HTTP responses by status code.",
			},
			[]string{"status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency.",
			},
			[]string{"path"},
		),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.responseStatus,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := prometheus.NewTimer(m.duration.WithLabelValues(r.URL.Path))
		sw := newStatusWriter(w)
		next.ServeHTTP(sw, r)

		m.responseStatus.WithLabelValues(strconv.Itoa(sw.status)).Inc()
		m.requestsTotal.WithLabelValues(r.URL.Path).Inc()
		timer.ObserveDuration()
	})
}
