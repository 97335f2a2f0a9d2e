package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchRequestsTotal  *prometheus.CounterVec
	searchDegradedTotal  *prometheus.CounterVec
	searchExpandedTotal  *prometheus.CounterVec
	searchResultCount    *prometheus.HistogramVec
	searchDuration       *prometheus.HistogramVec
	documentUploadsTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dgpt",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dgpt",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dgpt",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dgpt",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total completed hybrid search requests by persona.",
		},
		[]string{"service", "persona"},
	)
	searchDegradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dgpt",
			Subsystem: "search",
			Name:      "degraded_legs_total",
			Help:      "Total searches served with a retrieval leg unavailable.",
		},
		[]string{"service", "leg"},
	)
	searchExpandedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dgpt",
			Subsystem: "search",
			Name:      "expanded_total",
			Help:      "Total searches where entity expansion rewrote the query.",
		},
		[]string{"service"},
	)
	searchResultCount := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dgpt",
			Subsystem: "search",
			Name:      "result_count",
			Help:      "Distribution of returned results per search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10, 15, 20},
		},
		[]string{"service"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dgpt",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Hybrid search duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	documentUploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dgpt",
			Subsystem: "ingest",
			Name:      "uploads_total",
			Help:      "Total accepted document uploads by persona.",
		},
		[]string{"service", "persona"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		searchRequestsTotal,
		searchDegradedTotal,
		searchExpandedTotal,
		searchResultCount,
		searchDuration,
		documentUploadsTotal,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		searchRequestsTotal:  searchRequestsTotal,
		searchDegradedTotal:  searchDegradedTotal,
		searchExpandedTotal:  searchExpandedTotal,
		searchResultCount:    searchResultCount,
		searchDuration:       searchDuration,
		documentUploadsTotal: documentUploadsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/documents/"):
		return "/api/documents/{document_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordSearch(service, persona string, resultCount int, degradedLegs []string, expanded bool, duration time.Duration) {
	m.searchRequestsTotal.WithLabelValues(service, persona).Inc()
	m.searchResultCount.WithLabelValues(service).Observe(float64(resultCount))
	m.searchDuration.WithLabelValues(service).Observe(duration.Seconds())
	for _, leg := range degradedLegs {
		m.searchDegradedTotal.WithLabelValues(service, leg).Inc()
	}
	if expanded {
		m.searchExpandedTotal.WithLabelValues(service).Inc()
	}
}

func (m *HTTPServerMetrics) RecordDocumentUpload(service, persona string) {
	m.documentUploadsTotal.WithLabelValues(service, persona).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
