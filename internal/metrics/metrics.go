// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Classifications counts verdicts by verdict and source.
	Classifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caresignal_classifications_total",
		Help: "Chat turns classified, by verdict and source",
	}, []string{"verdict", "source"})

	AlertsFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caresignal_alerts_fired_total",
		Help: "Alert fan-outs started",
	})

	// AlertsSuppressed counts alerts that were not fired, by reason (cooldown, no_profile).
	AlertsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caresignal_alerts_suppressed_total",
		Help: "Alerts skipped before fan-out, by reason",
	}, []string{"reason"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caresignal_notifications_total",
		Help: "Notification dispatch outcomes, by channel and status",
	}, []string{"channel", "status"})

	NotificationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "caresignal_notification_duration_seconds",
		Help:    "Notification dispatch latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"channel"})

	// Completions counts chat completion calls by outcome (ok, error, skipped).
	Completions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caresignal_chat_completions_total",
		Help: "Chat completion requests, by outcome",
	}, []string{"outcome"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "caresignal_active_sessions",
		Help: "Chat sessions currently held in memory",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caresignal_http_requests_total",
		Help: "HTTP requests, by method, route and status code",
	}, []string{"method", "route", "status"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caresignal_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
