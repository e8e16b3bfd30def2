// Package metrics provides Prometheus metrics for the alert service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "alerts"
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks concurrent HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
)

// Delivery metrics
var (
	// AlertsCreated counts alerts stored for delivery.
	AlertsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "created_total",
			Help:      "Total alerts created",
		},
	)

	// DeliveryAttempts counts delivery log outcomes per channel.
	DeliveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "attempts_total",
			Help:      "Total delivery attempts by channel and status",
		},
		[]string{"channel", "status"}, // sent, failed
	)

	// DeliverySkipped counts channels passed over without a log entry.
	DeliverySkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "skipped_total",
			Help:      "Total channel deliveries skipped",
		},
		[]string{"channel", "reason"}, // disabled, outside_window, no_preference, no_destination, alert_missing
	)

	// ProviderSendDuration tracks provider call latency.
	ProviderSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "send_duration_seconds",
			Help:      "Provider send latency in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"channel"},
	)

	// ProviderThrottled counts sends abandoned while waiting for a throttle token.
	ProviderThrottled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "throttled_total",
			Help:      "Total sends abandoned by the provider throttle",
		},
		[]string{"channel"},
	)
)

// Retry metrics
var (
	// RetryRuns counts reconciliation passes.
	RetryRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "runs_total",
			Help:      "Total retry passes",
		},
		[]string{"result"}, // ok, error, locked
	)

	// RetryEntries counts failed deliveries handled by retry passes.
	RetryEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "entries_total",
			Help:      "Total failed deliveries processed by retry passes",
		},
		[]string{"outcome"}, // succeeded, failed, skipped
	)
)

// Telegram metrics
var (
	// TelegramLinks counts chat ids learned from /start messages.
	TelegramLinks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "links_total",
			Help:      "Total /start messages handled",
		},
		[]string{"result"}, // linked, unknown
	)
)

// Info metric
var (
	// BuildInfo exposes build information.
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "commit", "build_time"},
	)
)

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, commit, buildTime string) {
	BuildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}
