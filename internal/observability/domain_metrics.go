package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	generationRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querypilot_generation_requests_total",
			Help: "Total number of natural-language query requests.",
		},
	)
	generationAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querypilot_generation_attempts",
			Help:    "Generation attempts consumed per accepted or exhausted request.",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)
	generationRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querypilot_generation_rejections_total",
			Help: "Rejected candidate queries by validation reason.",
		},
		[]string{"reason"},
	)
	generationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querypilot_generation_failures_total",
			Help: "Requests that never produced an accepted query, by failure kind.",
		},
		[]string{"kind"},
	)
	generationLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querypilot_generation_latency_seconds",
			Help:    "End-to-end latency of the generate-validate retry loop.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
	executionLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querypilot_execution_latency_seconds",
			Help:    "Read-only statement execution latency.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)
	executionTimeoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querypilot_execution_timeouts_total",
			Help: "Statements cancelled by the execution timeout.",
		},
	)
	rateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querypilot_rate_limited_total",
			Help: "Requests rejected by the per-client rate limit.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		generationRequestsTotal,
		generationAttempts,
		generationRejectionsTotal,
		generationFailuresTotal,
		generationLatencySeconds,
		executionLatencySeconds,
		executionTimeoutsTotal,
		rateLimitedTotal,
	)
}

func ObserveGeneration(attempts int, elapsed time.Duration) {
	generationRequestsTotal.Inc()
	if attempts > 0 {
		generationAttempts.Observe(float64(attempts))
	}
	generationLatencySeconds.Observe(elapsed.Seconds())
}

func IncrementRejection(reason string) {
	generationRejectionsTotal.WithLabelValues(reason).Inc()
}

func IncrementGenerationFailure(kind string) {
	generationFailuresTotal.WithLabelValues(kind).Inc()
}

func ObserveExecution(elapsed time.Duration, timedOut bool) {
	executionLatencySeconds.Observe(elapsed.Seconds())
	if timedOut {
		executionTimeoutsTotal.Inc()
	}
}

func IncrementRateLimited() {
	rateLimitedTotal.Inc()
}
