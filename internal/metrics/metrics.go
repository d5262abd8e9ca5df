package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for FilterRunsTotal.
const (
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid_argument"
	OutcomeNotFound = "not_found"
	OutcomeCanceled = "canceled"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airmass_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airmass_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	FilterRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airmass_filter_runs_total",
			Help: "Catalog filter passes by outcome.",
		},
		[]string{"outcome"},
	)

	filterDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "airmass_filter_duration_seconds",
			Help:    "Duration of a complete catalog evaluation.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)

	TargetsEvaluatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "airmass_targets_evaluated_total",
			Help: "Targets transformed to horizontal coordinates.",
		},
	)

	TargetsRetainedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "airmass_targets_retained_total",
			Help: "Targets at or below the airmass threshold.",
		},
	)

	TargetsBelowHorizonTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "airmass_targets_below_horizon_total",
			Help: "Targets given the unobservable airmass marker.",
		},
	)

	pipelineWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "airmass_pipeline_workers",
			Help: "Configured number of evaluation workers.",
		},
	)

	catalogTargets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "airmass_catalog_targets",
			Help: "Targets in the currently loaded catalog.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		FilterRunsTotal,
		filterDurationSeconds,
		TargetsEvaluatedTotal,
		TargetsRetainedTotal,
		TargetsBelowHorizonTotal,
		pipelineWorkers,
		catalogTargets,
	)
}

// RecordEvaluation records one completed catalog evaluation.
func RecordEvaluation(duration time.Duration, evaluated, belowHorizon int) {
	filterDurationSeconds.Observe(duration.Seconds())
	TargetsEvaluatedTotal.Add(float64(evaluated))
	TargetsBelowHorizonTotal.Add(float64(belowHorizon))
}

// RecordFilter records the outcome of a filter pass and how many targets it kept.
func RecordFilter(outcome string, retained int) {
	FilterRunsTotal.WithLabelValues(outcome).Inc()
	TargetsRetainedTotal.Add(float64(retained))
}

// SetPipelineWorkers sets the worker gauge.
func SetPipelineWorkers(n int) {
	pipelineWorkers.Set(float64(n))
}

// SetCatalogTargets sets the catalog size gauge.
func SetCatalogTargets(n int) {
	catalogTargets.Set(float64(n))
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// knownRoutes are exposed as-is; anything else collapses to "other" to keep
// label cardinality bounded.
var knownRoutes = map[string]bool{
	"/":                      true,
	"/healthz":               true,
	"/readyz":                true,
	"/metrics":               true,
	"/api/v1/observatories":  true,
	"/api/v1/filter":         true,
	"/api/v1/evaluate":       true,
	"/api/v1/catalog":        true,
	"/api/v1/catalog/status": true,
}

func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
