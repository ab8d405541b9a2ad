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

	"github.com/olegbakhtin/document-qa-service/internal/core/domain"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	askRequestsTotal *prometheus.CounterVec
	askModeTotal     *prometheus.CounterVec
	askDuration      *prometheus.HistogramVec
	askCitations     *prometheus.HistogramVec
	llmTokensTotal   *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dqs",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dqs",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dqs",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	askRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dqs",
			Subsystem: "ask",
			Name:      "requests_total",
			Help:      "Total answered questions by terminal flow action.",
		},
		[]string{"service", "action"},
	)
	askModeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dqs",
			Subsystem: "ask",
			Name:      "mode_requests_total",
			Help:      "Total answered questions by retrieval mode.",
		},
		[]string{"service", "mode"},
	)
	askDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dqs",
			Subsystem: "ask",
			Name:      "duration_seconds",
			Help:      "Question answering duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	askCitations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dqs",
			Subsystem: "ask",
			Name:      "citations",
			Help:      "Distribution of citations per answered question.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	llmTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dqs",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Approximate token usage by direction.",
		},
		[]string{"service", "direction", "model"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		askRequestsTotal,
		askModeTotal,
		askDuration,
		askCitations,
		llmTokensTotal,
	)

	return &HTTPServerMetrics{
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		askRequestsTotal: askRequestsTotal,
		askModeTotal:     askModeTotal,
		askDuration:      askDuration,
		askCitations:     askCitations,
		llmTokensTotal:   llmTokensTotal,
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
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	case strings.HasPrefix(path, "/v1/conversations/"):
		return "/v1/conversations/{conversation_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordAskObservation(service, action, mode string, citations int, duration time.Duration) {
	if action == "" {
		action = "unknown"
	}
	if mode == "" {
		mode = "unknown"
	}
	m.askRequestsTotal.WithLabelValues(service, action).Inc()
	m.askModeTotal.WithLabelValues(service, mode).Inc()
	m.askDuration.WithLabelValues(service).Observe(duration.Seconds())
	m.askCitations.WithLabelValues(service).Observe(float64(citations))
}

func (m *HTTPServerMetrics) RecordTokenUsage(service, model string, promptTokens, completionTokens int) {
	if model == "" {
		model = "unknown"
	}
	if promptTokens > 0 {
		m.llmTokensTotal.WithLabelValues(service, "in", model).Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.llmTokensTotal.WithLabelValues(service, "out", model).Add(float64(completionTokens))
	}
}

// RegisterSynthesisCache exports cache counters from a stats snapshot
// callback instead of instrumenting the cache itself.
func (m *HTTPServerMetrics) RegisterSynthesisCache(service string, stats func() domain.CacheStats) {
	labels := prometheus.Labels{"service": service}

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace:   "dqs",
			Subsystem:   "cache",
			Name:        "entries",
			Help:        "Number of cached syntheses.",
			ConstLabels: labels,
		},
		func() float64 { return float64(stats().Entries) },
	))
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace:   "dqs",
			Subsystem:   "cache",
			Name:        "hits_total",
			Help:        "Total synthesis cache hits.",
			ConstLabels: labels,
		},
		func() float64 { return float64(stats().Hits) },
	))
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace:   "dqs",
			Subsystem:   "cache",
			Name:        "misses_total",
			Help:        "Total synthesis cache misses.",
			ConstLabels: labels,
		},
		func() float64 { return float64(stats().Misses) },
	))
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace:   "dqs",
			Subsystem:   "cache",
			Name:        "evidence_hits_total",
			Help:        "Total evidence reuses after a model change.",
			ConstLabels: labels,
		},
		func() float64 { return float64(stats().EvidenceHits) },
	))
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace:   "dqs",
			Subsystem:   "cache",
			Name:        "evictions_total",
			Help:        "Total evicted cache entries.",
			ConstLabels: labels,
		},
		func() float64 { return float64(stats().Evictions) },
	))
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
