package observability

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	apiRequestsTotal  *prometheus.CounterVec
	apiLatencySeconds *prometheus.HistogramVec
	apiErrorsTotal    *prometheus.CounterVec

	submissionTransitionsTotal *prometheus.CounterVec
	gradingsTotal              *prometheus.CounterVec
	stepReviewsTotal           *prometheus.CounterVec
	xpAwardedTotal             prometheus.Counter
	levelUpsTotal              prometheus.Counter
	uploadRejectionsTotal      *prometheus.CounterVec
	rateLimitedTotal           *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for the API and the grading workflow.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classroom_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "classroom_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classroom_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		submissionTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classroom_submission_transitions_total",
			Help: "Submission lifecycle transitions by assignment kind and target status.",
		}, []string{"kind", "status"})

		gradingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classroom_gradings_total",
			Help: "Grades applied, by source and whether the passing score was reached.",
		}, []string{"source", "passed"})

		stepReviewsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classroom_step_reviews_total",
			Help: "Teacher verdicts on task step evidence.",
		}, []string{"status"})

		xpAwardedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "classroom_xp_awarded_total",
			Help: "Experience points awarded to students.",
		})

		levelUpsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "classroom_level_ups_total",
			Help: "Levels gained by students.",
		})

		uploadRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classroom_upload_rejections_total",
			Help: "Evidence uploads rejected before storage.",
		}, []string{"reason"})

		rateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classroom_rate_limited_total",
			Help: "Requests refused by a rate limit bucket.",
		}, []string{"bucket"})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			submissionTransitionsTotal, gradingsTotal, stepReviewsTotal,
			xpAwardedTotal, levelUpsTotal, uploadRejectionsTotal, rateLimitedTotal,
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

// RecordTransition counts a submission reaching a new status.
func RecordTransition(kind, status string) {
	RegisterMetrics()
	submissionTransitionsTotal.WithLabelValues(kind, status).Inc()
}

// RecordGrading counts an applied grade.
func RecordGrading(source string, passed bool) {
	RegisterMetrics()
	gradingsTotal.WithLabelValues(source, strconv.FormatBool(passed)).Inc()
}

// RecordStepReview counts a step verdict.
func RecordStepReview(status string) {
	RegisterMetrics()
	stepReviewsTotal.WithLabelValues(status).Inc()
}

// RecordXP adds awarded experience and gained levels.
func RecordXP(xp, levels int) {
	RegisterMetrics()
	if xp > 0 {
		xpAwardedTotal.Add(float64(xp))
	}
	if levels > 0 {
		levelUpsTotal.Add(float64(levels))
	}
}

// RecordUploadRejection counts an upload refused for reason.
func RecordUploadRejection(reason string) {
	RegisterMetrics()
	uploadRejectionsTotal.WithLabelValues(reason).Inc()
}

// RecordRateLimited counts a request refused by bucket.
func RecordRateLimited(bucket string) {
	RegisterMetrics()
	rateLimitedTotal.WithLabelValues(bucket).Inc()
}
