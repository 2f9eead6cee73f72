// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Fetch metrics
	LogWindowsFetched prometheus.Counter
	LogWindowsFailed  prometheus.Counter
	EventsDecoded     *prometheus.CounterVec
	EventsSkipped     prometheus.Counter
	LatestBlock       prometheus.Gauge

	// Refresh cycle metrics
	RefreshRunsTotal  *prometheus.CounterVec
	RefreshDuration   *prometheus.HistogramVec
	RefreshStepErrors *prometheus.CounterVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// RPC metrics
	RPCCallLatency        *prometheus.HistogramVec
	ContractReadFallbacks prometheus.Counter

	// Derived-state metrics
	ParticipantsTracked prometheus.Gauge
	TotalSoldTokens     prometheus.Gauge
	TotalRaised         prometheus.Gauge
	ActiveAlerts        prometheus.Gauge

	// API metrics
	HTTPRequestDuration *prometheus.HistogramVec
	WSClientsConnected  prometheus.Gauge

	// Health metrics
	LastSuccessfulRefresh prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "presale_dashboard"
	}

	return &Metrics{
		LogWindowsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "log_windows_fetched_total",
			Help:      "Total number of block-range windows fetched successfully",
		}),
		LogWindowsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "log_windows_failed_total",
			Help:      "Total number of block-range windows that failed and were skipped",
		}),
		EventsDecoded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "events_decoded_total",
			Help:      "Total number of contract events decoded, by kind",
		}, []string{"kind"}),
		EventsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "events_skipped_total",
			Help:      "Total number of logs skipped because they could not be decoded",
		}),
		LatestBlock: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "latest_block",
			Help:      "Latest chain block observed by the fetcher",
		}),

		RefreshRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "runs_total",
			Help:      "Total number of refresh cycles, by outcome",
		}, []string{"status"}),
		RefreshDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "step_duration_seconds",
			Help:      "Duration of each refresh step in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"step"}),
		RefreshStepErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "step_errors_total",
			Help:      "Total number of refresh step failures, by step",
		}, []string{"step"}),

		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits, by backend",
		}, []string{"backend"}),
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses, by backend",
		}, []string{"backend"}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_duration_seconds",
			Help:      "Ethereum RPC call latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"method"}),
		ContractReadFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "contract_read_fallbacks_total",
			Help:      "Total number of contract reads that fell back to a default value",
		}),

		ParticipantsTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "derived",
			Name:      "participants_tracked",
			Help:      "Number of participants in the latest snapshot",
		}),
		TotalSoldTokens: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "derived",
			Name:      "total_sold_tokens",
			Help:      "Decimal-adjusted total tokens sold in the latest snapshot",
		}),
		TotalRaised: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "derived",
			Name:      "total_raised",
			Help:      "Decimal-adjusted total raised in the latest snapshot",
		}),
		ActiveAlerts: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "derived",
			Name:      "active_alerts",
			Help:      "Number of alerts in the latest snapshot",
		}),

		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		WSClientsConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "ws_clients_connected",
			Help:      "Number of connected websocket subscribers",
		}),

		LastSuccessfulRefresh: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of the last successful refresh cycle",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordWindow records the outcome of one fetch window.
func RecordWindow(failed bool) {
	if failed {
		DefaultMetrics.LogWindowsFailed.Inc()
		return
	}
	DefaultMetrics.LogWindowsFetched.Inc()
}

// RecordEventsSkipped counts logs dropped because they could not be
// decoded.
func RecordEventsSkipped(n int) {
	DefaultMetrics.EventsSkipped.Add(float64(n))
}

// RecordRPCCall records the latency of one RPC round trip.
func RecordRPCCall(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordContractFallback counts a contract read that degraded to its
// default value.
func RecordContractFallback() {
	DefaultMetrics.ContractReadFallbacks.Inc()
}

// RecordEventDecoded increments the decoded event counter for a kind.
func RecordEventDecoded(kind string) {
	DefaultMetrics.EventsDecoded.WithLabelValues(kind).Inc()
}

// RecordCacheRead records a cache hit or miss against a backend.
func RecordCacheRead(backend string, hit bool) {
	if hit {
		DefaultMetrics.CacheHits.WithLabelValues(backend).Inc()
		return
	}
	DefaultMetrics.CacheMisses.WithLabelValues(backend).Inc()
}

// RecordRefreshStep records one step of a refresh cycle.
func RecordRefreshStep(step string, seconds float64, err error) {
	DefaultMetrics.RefreshDuration.WithLabelValues(step).Observe(seconds)
	if err != nil {
		DefaultMetrics.RefreshStepErrors.WithLabelValues(step).Inc()
	}
}

// RecordSnapshot publishes the derived gauges for a completed cycle.
func RecordSnapshot(participants int, totalSold, totalRaised float64, alerts int, latestBlock uint64) {
	DefaultMetrics.ParticipantsTracked.Set(float64(participants))
	DefaultMetrics.TotalSoldTokens.Set(totalSold)
	DefaultMetrics.TotalRaised.Set(totalRaised)
	DefaultMetrics.ActiveAlerts.Set(float64(alerts))
	DefaultMetrics.LatestBlock.Set(float64(latestBlock))
}
