// Package metrics exposes Prometheus collectors for the relay service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Notification channels.
const (
	ChannelMessage = "message"
	ChannelStatus  = "status"
)

var (
	fetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_fetch_attempts_total",
			Help: "Total number of single fetch attempts, labeled by result.",
		},
		[]string{"result"},
	)

	fetchExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_fetch_exhausted_total",
			Help: "Total number of scan cycles whose fetch retries were all used up.",
		},
	)

	sessionReopensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_session_reopens_total",
			Help: "Total number of rendering session recreations, labeled by result.",
		},
		[]string{"result"},
	)

	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_scans_total",
			Help: "Total number of scan cycles, labeled by status.",
		},
		[]string{"status"},
	)

	itemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_items_total",
			Help: "Total number of fetched items, labeled by dedup outcome.",
		},
		[]string{"outcome"},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_notifications_total",
			Help: "Total number of webhook calls, labeled by channel and result.",
		},
		[]string{"channel", "result"},
	)

	lastSuccessfulScan = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_last_successful_scan_timestamp_seconds",
			Help: "Unix time of the last scan cycle that fetched the timeline.",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetchAttempt counts one fetch attempt; result is "success" or a failure cause.
func ObserveFetchAttempt(result string) {
	fetchAttemptsTotal.WithLabelValues(result).Inc()
}

// ObserveFetchExhausted counts a retry sequence that ended without a result.
func ObserveFetchExhausted() {
	fetchExhaustedTotal.Inc()
}

// ObserveSessionReopen counts a rendering session recreation.
func ObserveSessionReopen(ok bool) {
	sessionReopensTotal.WithLabelValues(resultLabel(ok)).Inc()
}

// ObserveScan counts a finished scan cycle.
func ObserveScan(status string) {
	scansTotal.WithLabelValues(status).Inc()
}

// ObserveItem counts an item by dedup outcome ("new", "skipped", "store_error").
func ObserveItem(outcome string) {
	itemsTotal.WithLabelValues(outcome).Inc()
}

// ObserveNotification counts one webhook call.
func ObserveNotification(channel string, ok bool) {
	notificationsTotal.WithLabelValues(channel, resultLabel(ok)).Inc()
}

// SetLastSuccessfulScan records when the timeline was last fetched.
func SetLastSuccessfulScan(t time.Time) {
	lastSuccessfulScan.Set(float64(t.Unix()))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
