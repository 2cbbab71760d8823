// Package observability provides logging, metrics, and tracing.
package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider and operation",
		},
		[]string{"provider", "operation"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "operation"},
	)

	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluations_total",
			Help: "Total number of answer evaluations by outcome",
		},
		[]string{"outcome"},
	)
	ScoreExtractionFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "score_extraction_failures_total",
			Help: "Score extractions that degraded to an empty score map",
		},
	)
	TranscriptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcriptions_total",
			Help: "Total number of transcription requests by outcome",
		},
		[]string{"outcome"},
	)

	// Score distribution across all criteria, to watch rubric drift
	CriterionScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evaluation_criterion_score",
			Help:    "Distribution of per-criterion scores ([1,10])",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
	)
)

// InitMetrics registers all collectors; call once per process.
func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(EvaluationsTotal)
	prometheus.MustRegister(ScoreExtractionFailures)
	prometheus.MustRegister(TranscriptionsTotal)
	prometheus.MustRegister(CriterionScoreHistogram)
}

// HTTPMetricsMiddleware records request counts and durations labeled by chi
// route pattern.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := ""
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
