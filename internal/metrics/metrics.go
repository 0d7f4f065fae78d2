// Package metrics holds the prometheus collectors exported on /metrics
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the application's collectors on a private registry so tests
// can build as many instances as they like
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	uploads         *prometheus.CounterVec
	uploadBytes     prometheus.Counter
	trackDuration   prometheus.Histogram
}

// New registers all collectors, plus the Go runtime and process collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soundshelf",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "soundshelf",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soundshelf",
			Name:      "uploads_total",
			Help:      "Track uploads by outcome.",
		}, []string{"outcome"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "soundshelf",
			Name:      "upload_bytes_total",
			Help:      "Bytes written to media storage by uploads.",
		}),
		trackDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "soundshelf",
			Name:      "track_duration_seconds",
			Help:      "Duration of ingested tracks.",
			Buckets:   []float64{30, 60, 120, 180, 240, 300, 420, 600, 1200},
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.uploads,
		m.uploadBytes,
		m.trackDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ObserveUpload records the outcome of one ingestion request. outcome is an
// error kind label or "ok".
func (m *Metrics) ObserveUpload(outcome string, bytes int64, durationSeconds int) {
	m.uploads.WithLabelValues(outcome).Inc()
	if bytes > 0 {
		m.uploadBytes.Add(float64(bytes))
	}
	if outcome == "ok" {
		m.trackDuration.Observe(float64(durationSeconds))
	}
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
