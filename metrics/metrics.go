// Package metrics provides Prometheus metrics for dashport.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashport_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashport_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Authentication metrics
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashport_auth_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"}, // "success", "failure"
	)

	SessionsInvalidatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashport_sessions_invalidated_total",
			Help: "Total number of sessions invalidated by fingerprint mismatch",
		},
	)

	// Rate limiter metrics
	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashport_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"class"},
	)

	// Audit sink metrics
	AuditEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashport_audit_events_total",
			Help: "Total number of audit events recorded",
		},
		[]string{"action"},
	)

	// Store metrics
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashport_store_operations_total",
			Help: "Total number of document store operations",
		},
		[]string{"store", "operation", "status"},
	)
)

// RegisterMetrics ensures all metrics are registered with Prometheus.
// This function is idempotent and safe to call multiple times.
func RegisterMetrics() {
	// All metrics are automatically registered via promauto.
	// This function exists for explicit initialization if needed.
}
