package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revify_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "revify_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	FileRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "revify_file_refresh_duration_seconds",
			Help:    "Duration of file list refreshes",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	FileRefreshFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "revify_file_refresh_failures_total",
			Help: "Number of failed file list refreshes",
		},
	)

	CachedFiles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "revify_cached_files",
			Help: "Files in the admin cache by status",
		},
		[]string{"status"},
	)

	FileMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revify_file_mutations_total",
			Help: "Admin file mutations by action and result",
		},
		[]string{"action", "result"},
	)

	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revify_registrations_total",
			Help: "Registration submissions by result",
		},
		[]string{"result"},
	)
)

func RecordRequest(method, route, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(method, route, status).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func Result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
