// Package metrics exposes Prometheus collectors for the transactional API.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	transactionsTotal          *prometheus.CounterVec
	idempotencyReplaysTotal    prometheus.Counter
	idempotencyConflictsTotal  prometheus.Counter
	streamSubscribers          prometheus.Gauge
	streamEventsTotal          prometheus.Counter
	streamEventsDroppedTotal   prometheus.Counter
	summarizeRequestsTotal     *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		transactionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txapi_transactions_total",
				Help: "Total transactions processed, labeled by terminal status.",
			},
			[]string{"status"},
		)

		idempotencyReplaysTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "txapi_idempotency_replays_total",
				Help: "Total requests answered from the idempotency cache.",
			},
		)

		idempotencyConflictsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "txapi_idempotency_conflicts_total",
				Help: "Total idempotency keys reused with a divergent payload.",
			},
		)

		streamSubscribers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "txapi_stream_subscribers",
				Help: "Number of connected real-time subscribers.",
			},
		)

		streamEventsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "txapi_stream_events_total",
				Help: "Total events broadcast to the real-time stream.",
			},
		)

		streamEventsDroppedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "txapi_stream_events_dropped_total",
				Help: "Total events dropped because a subscriber buffer was full.",
			},
		)

		summarizeRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txapi_summarize_requests_total",
				Help: "Total summarization requests, labeled by result.",
			},
			[]string{"result"},
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
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveTransaction increments the transaction counter for a terminal status.
func ObserveTransaction(status string) {
	Init()
	transactionsTotal.WithLabelValues(status).Inc()
}

// ObserveIdempotencyReplay counts a request answered from the cache.
func ObserveIdempotencyReplay() {
	Init()
	idempotencyReplaysTotal.Inc()
}

// ObserveIdempotencyConflict counts a divergent key reuse.
func ObserveIdempotencyConflict() {
	Init()
	idempotencyConflictsTotal.Inc()
}

// SetStreamSubscribers records the current subscriber count.
func SetStreamSubscribers(n int) {
	Init()
	streamSubscribers.Set(float64(n))
}

// ObserveStreamEvent counts one broadcast event.
func ObserveStreamEvent() {
	Init()
	streamEventsTotal.Inc()
}

// ObserveStreamEventDropped counts an event discarded for a slow subscriber.
func ObserveStreamEventDropped() {
	Init()
	streamEventsDroppedTotal.Inc()
}

// ObserveSummarize increments the summarize counter for a result label.
func ObserveSummarize(result string) {
	Init()
	summarizeRequestsTotal.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
