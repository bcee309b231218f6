// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_http_requests_total",
			Help: "Total HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketplace_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketplace_http_requests_in_flight",
			Help: "Number of HTTP requests being served",
		},
	)

	ApplicationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_application_transitions_total",
			Help: "Application lifecycle operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	AcceptRacesLost = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_accept_races_lost_total",
			Help: "Accept attempts that lost the compare-and-swap on the job status",
		},
	)

	ReviewsAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_reviews_added_total",
			Help: "Reviews recorded against services",
		},
	)

	BookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_booking_transitions_total",
			Help: "Booking status changes by target status",
		},
		[]string{"status"},
	)

	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_notifications_published_total",
			Help: "Lifecycle events handed to the notification pipeline",
		},
		[]string{"event_type", "outcome"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	SearchIndexFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_search_index_failures_total",
			Help: "Documents that could not be written to the search index",
		},
		[]string{"index"},
	)
)
