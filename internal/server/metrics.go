// Package server — metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers and middleware.
package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ask request outcome label values.
const (
	outcomeDone          = "done"
	outcomePaused        = "paused"
	outcomeInvalidChoice = "invalid_choice"
	outcomeLoopLimit     = "loop_limit"
	outcomeDependency    = "dependency_error"
	outcomeBadRequest    = "bad_request"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// askRequestsTotal counts completed /api/ask requests, partitioned by
	// outcome.
	askRequestsTotal *prometheus.CounterVec

	// askDurationSeconds records the wall-clock duration of each /api/ask
	// request, including every model call the workflow made.
	askDurationSeconds *prometheus.HistogramVec

	// uploadsTotal counts /api/upload requests, partitioned by outcome
	// ("ok" or "error") and collection.
	uploadsTotal *prometheus.CounterVec

	// uploadChunks records the chunk count of successful uploads.
	uploadChunks prometheus.Histogram

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, path, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec

	// rateLimitedTotal counts requests rejected by the per-IP rate limiter.
	rateLimitedTotal prometheus.Counter
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default —
// this keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		askRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seqrag",
			Subsystem: "ask",
			Name:      "requests_total",
			Help:      "Total number of /api/ask requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		askDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "seqrag",
			Subsystem: "ask",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of /api/ask requests including all model calls.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}, []string{"outcome"}),

		uploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seqrag",
			Subsystem: "ingest",
			Name:      "uploads_total",
			Help:      "Total number of /api/upload requests, partitioned by outcome and collection.",
		}, []string{"outcome", "collection"}),

		uploadChunks: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "seqrag",
			Subsystem: "ingest",
			Name:      "upload_chunks",
			Help:      "Number of chunks produced per successful upload.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seqrag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, path, and status code.",
		}, []string{"method", "path", "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "seqrag",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		rateLimitedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "seqrag",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the per-IP rate limiter.",
		}),
	}
}

// registerSessionGauge registers a gauge that reports the number of paused
// workflow sessions awaiting a tool choice.
func (m *serverMetrics) registerSessionGauge(reg prometheus.Registerer, count func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "seqrag",
		Subsystem: "workflow",
		Name:      "active_sessions",
		Help:      "Number of paused workflow sessions awaiting a tool choice.",
	}, func() float64 { return float64(count()) }))
}
