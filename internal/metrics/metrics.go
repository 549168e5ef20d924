// Package metrics holds the Prometheus instruments of a search run.
package metrics

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "randsearch"

// Evaluation outcomes used as the status label.
const (
	StatusOK        = "ok"
	StatusNoScore   = "no_score"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Recorder owns the instruments for one run. A nil *Recorder discards
// everything, so callers need not check.
type Recorder struct {
	registry *prometheus.Registry

	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	iterationsTotal    prometheus.Counter
	bestScore          prometheus.Gauge
	staleSteps         prometheus.Gauge
	httpRequestsTotal  *prometheus.CounterVec
}

// NewRecorder creates the instruments and registers them on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Objective evaluations by outcome",
			},
			[]string{"status"},
		),
		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Wall time of one objective evaluation",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
		),
		iterationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "iterations_total",
				Help:      "Completed search iterations",
			},
		),
		bestScore: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "best_score",
				Help:      "Score of the best point found so far",
			},
		),
		staleSteps: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stale_steps",
				Help:      "Consecutive iterations without progress beyond the stale threshold",
			},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Status server requests",
			},
			[]string{"method", "path", "status"},
		),
	}
	r.registry.MustRegister(
		r.evaluationsTotal,
		r.evaluationDuration,
		r.iterationsTotal,
		r.bestScore,
		r.staleSteps,
		r.httpRequestsTotal,
	)
	return r
}

// Registry returns the registry the instruments live on.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// ObserveEvaluation records one finished evaluation.
func (r *Recorder) ObserveEvaluation(status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.evaluationsTotal.WithLabelValues(status).Inc()
	r.evaluationDuration.Observe(elapsed.Seconds())
}

// ObserveIteration records a completed iteration and the search state after it.
func (r *Recorder) ObserveIteration(best float64, staleSteps int) {
	if r == nil {
		return
	}
	r.iterationsTotal.Inc()
	r.SetBest(best, staleSteps)
}

// SetBest updates the state gauges without counting an iteration.
func (r *Recorder) SetBest(best float64, staleSteps int) {
	if r == nil {
		return
	}
	// The synthetic origin scores ±Inf; the gauge keeps its last finite value.
	if !math.IsInf(best, 0) && !math.IsNaN(best) {
		r.bestScore.Set(best)
	}
	r.staleSteps.Set(float64(staleSteps))
}

// Middleware counts status server requests by route pattern.
func (r *Recorder) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, req)
			if r == nil {
				return
			}

			path := req.URL.Path
			if rctx := chi.RouteContext(req.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}
			r.httpRequestsTotal.WithLabelValues(req.Method, path, strconv.Itoa(sw.status)).Inc()
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
