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
	// Acquisition metrics
	FetchLatency *prometheus.HistogramVec
	FetchErrors  *prometheus.CounterVec

	// Snapshot cache metrics
	SnapshotRefreshes     prometheus.Counter
	SnapshotCacheHits     prometheus.Counter
	SnapshotCacheWaits    prometheus.Counter
	LastSnapshotTimestamp prometheus.Gauge

	// Ranking metrics
	SymbolsTracked prometheus.Gauge
	EntriesRanked  prometheus.Gauge

	// HTTP metrics
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "oi_radar"
	}

	return &Metrics{
		FetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "acquisition",
			Name:      "fetch_latency_seconds",
			Help:      "Remote fetch latency in seconds by source",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		FetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "acquisition",
			Name:      "fetch_errors_total",
			Help:      "Total number of absorbed fetch failures by source",
		}, []string{"source"}),

		SnapshotRefreshes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "snapshot_refreshes_total",
			Help:      "Total number of snapshot acquisitions performed",
		}),
		SnapshotCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "snapshot_cache_hits_total",
			Help:      "Total number of requests served from the cached snapshot",
		}),
		SnapshotCacheWaits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "snapshot_cache_waits_total",
			Help:      "Total number of requests that waited on an in-flight acquisition",
		}),
		LastSnapshotTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "last_snapshot_timestamp",
			Help:      "Unix timestamp of the last snapshot acquisition",
		}),

		SymbolsTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ranking",
			Name:      "symbols_tracked",
			Help:      "Number of target symbols in the current snapshot",
		}),
		EntriesRanked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ranking",
			Name:      "entries_ranked",
			Help:      "Number of ranking entries produced in the last computation",
		}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds by endpoint",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordFetch records a remote fetch attempt for a source.
func RecordFetch(source string, seconds float64, err error) {
	DefaultMetrics.FetchLatency.WithLabelValues(source).Observe(seconds)
	if err != nil {
		DefaultMetrics.FetchErrors.WithLabelValues(source).Inc()
	}
}

// RecordSnapshotRefresh records a completed snapshot acquisition.
func RecordSnapshotRefresh(unixSeconds float64) {
	DefaultMetrics.SnapshotRefreshes.Inc()
	DefaultMetrics.LastSnapshotTimestamp.Set(unixSeconds)
}

// RecordCacheHit records a request served from the cached snapshot.
func RecordCacheHit() {
	DefaultMetrics.SnapshotCacheHits.Inc()
}

// RecordCacheWait records a request that waited on an in-flight acquisition.
func RecordCacheWait() {
	DefaultMetrics.SnapshotCacheWaits.Inc()
}

// UpdateRankingSizes updates the ranking gauges.
func UpdateRankingSizes(symbolsTracked, entriesRanked int) {
	DefaultMetrics.SymbolsTracked.Set(float64(symbolsTracked))
	DefaultMetrics.EntriesRanked.Set(float64(entriesRanked))
}

// RecordRequest records an HTTP request duration.
func RecordRequest(endpoint string, seconds float64) {
	DefaultMetrics.RequestDuration.WithLabelValues(endpoint).Observe(seconds)
}
