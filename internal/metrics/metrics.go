package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adforge_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adforge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RateLimitRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adforge_ratelimit_rejections_total",
			Help: "Requests rejected by the token-bucket limiter.",
		},
		[]string{"class"},
	)

	CreditsDeductedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adforge_credits_deducted_total",
			Help: "Credits deducted from user balances.",
		},
	)

	CreditsRefundedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adforge_credits_refunded_total",
			Help: "Credits refunded after failed generations.",
		},
	)

	GenerationJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adforge_generation_jobs_total",
			Help: "Generation jobs by terminal status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		RateLimitRejectionsTotal,
		CreditsDeductedTotal,
		CreditsRefundedTotal,
		GenerationJobsTotal,
	)
}
