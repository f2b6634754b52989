// Package metrics exposes Prometheus collectors for the frontier service.
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
	frontierEnqueuesTotal        *prometheus.CounterVec
	frontierClaimsTotal          *prometheus.CounterVec
	frontierCompletionsTotal     *prometheus.CounterVec
	frontierRequeuesTotal        *prometheus.CounterVec
	frontierBudgetExhaustedTotal prometheus.Counter
	frontierWaitingLinks         prometheus.Gauge
	frontierActiveDomains        prometheus.Gauge
	bulkloadRowsTotal            *prometheus.CounterVec
	httpRequestsTotal            *prometheus.CounterVec
	httpRequestDurationSeconds   *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		frontierEnqueuesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frontier_enqueues_total",
				Help: "Total entities enqueued into the frontier, labeled by kind.",
			},
			[]string{"kind"},
		)

		frontierClaimsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frontier_claims_total",
				Help: "Total claim attempts, labeled by kind and result (claimed/empty).",
			},
			[]string{"kind", "result"},
		)

		frontierCompletionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frontier_completions_total",
				Help: "Total completions, labeled by kind and terminal outcome.",
			},
			[]string{"kind", "outcome"},
		)

		frontierRequeuesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frontier_requeues_total",
				Help: "Total requeues back to waiting, labeled by kind.",
			},
			[]string{"kind"},
		)

		frontierBudgetExhaustedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "frontier_budget_exhausted_total",
				Help: "Total follow-budget decrements that reached zero.",
			},
		)

		frontierWaitingLinks = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "frontier_waiting_links",
				Help: "Links currently in waiting status.",
			},
		)

		frontierActiveDomains = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "frontier_active_domains",
				Help: "Domains with at least one waiting link.",
			},
		)

		bulkloadRowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frontier_bulkload_rows_total",
				Help: "Bulk-loaded rows, labeled by result (loaded/skipped).",
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

// ObserveEnqueue increments the enqueue counter for the kind.
func ObserveEnqueue(kind string) {
	frontierEnqueuesTotal.WithLabelValues(kind).Inc()
}

// ObserveClaim increments the claim counter for the kind and result.
func ObserveClaim(kind, result string) {
	frontierClaimsTotal.WithLabelValues(kind, result).Inc()
}

// ObserveComplete increments the completion counter for the outcome.
func ObserveComplete(kind, outcome string) {
	frontierCompletionsTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveRequeue increments the requeue counter for the kind.
func ObserveRequeue(kind string) {
	frontierRequeuesTotal.WithLabelValues(kind).Inc()
}

// ObserveBudgetExhausted counts a follow budget reaching zero.
func ObserveBudgetExhausted() {
	frontierBudgetExhaustedTotal.Inc()
}

// ObserveBulkloadRow counts one bulk-loaded row by result.
func ObserveBulkloadRow(result string) {
	bulkloadRowsTotal.WithLabelValues(result).Inc()
}

// SetWaitingLinks updates the waiting-links gauge.
func SetWaitingLinks(n int64) {
	frontierWaitingLinks.Set(float64(n))
}

// SetActiveDomains updates the active-domains gauge.
func SetActiveDomains(n int) {
	frontierActiveDomains.Set(float64(n))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
