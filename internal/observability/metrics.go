package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce      sync.Once
	apiRequestsTotal  *prometheus.CounterVec
	apiLatencySeconds *prometheus.HistogramVec
	apiErrorsTotal    *prometheus.CounterVec

	attemptsStartedTotal        prometheus.Counter
	attemptsSubmittedTotal      *prometheus.CounterVec
	gradingDurationSeconds      prometheus.Histogram
	recommendationsTotal        *prometheus.CounterVec
	recommendationFallbackTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		attemptsStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attempts_started_total",
			Help: "Exam attempts created.",
		})

		attemptsSubmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attempts_submitted_total",
			Help: "Attempt submissions by outcome.",
		}, []string{"outcome"})

		gradingDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grading_duration_seconds",
			Help:    "Time spent grading one attempt inside the submission transaction.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		})

		recommendationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recommendations_created_total",
			Help: "Recommendations persisted by type and source.",
		}, []string{"type", "source"})

		recommendationFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recommendation_fallbacks_total",
			Help: "Rich recommendation requests that fell back to deterministic tiers.",
		}, []string{"reason"})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			attemptsStartedTotal, attemptsSubmittedTotal, gradingDurationSeconds,
			recommendationsTotal, recommendationFallbackTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// AttemptsStarted counts created attempts.
func AttemptsStarted() prometheus.Counter {
	RegisterMetrics()
	return attemptsStartedTotal
}

// AttemptsSubmitted counts submissions labelled graded, conflict, invalid or failed.
func AttemptsSubmitted() *prometheus.CounterVec {
	RegisterMetrics()
	return attemptsSubmittedTotal
}

// GradingDuration observes grading time.
func GradingDuration() prometheus.Histogram {
	RegisterMetrics()
	return gradingDurationSeconds
}

// RecommendationsCreated counts persisted recommendations.
func RecommendationsCreated() *prometheus.CounterVec {
	RegisterMetrics()
	return recommendationsTotal
}

// RecommendationFallbacks counts rich generation fallbacks.
func RecommendationFallbacks() *prometheus.CounterVec {
	RegisterMetrics()
	return recommendationFallbackTotal
}
