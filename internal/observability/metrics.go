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
	// Source metrics
	SourceFetches      *prometheus.CounterVec
	SourceFetchLatency *prometheus.HistogramVec
	RecordsFetched     *prometheus.CounterVec

	// Normalization metrics
	RecordsNormalized *prometheus.CounterVec
	MalformedRecords  *prometheus.CounterVec

	// Aggregation metrics
	PagesMerged      prometheus.Counter
	ActivitiesAdded  prometheus.Counter
	StaleDiscards    prometheus.Counter
	MergeDuration    prometheus.Histogram
	ActiveSessions   prometheus.Gauge
	SeriesErrors     *prometheus.CounterVec
	PerformanceFetch *prometheus.CounterVec

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// Scheduler metrics
	ScheduledRefreshes *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulMerge prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "xrpl_activity_lab"
	}

	return &Metrics{
		// Source metrics
		SourceFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "fetches_total",
			Help:      "Total number of page fetches by source and status",
		}, []string{"source", "status"}),
		SourceFetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "fetch_latency_seconds",
			Help:      "Page fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		RecordsFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "records_fetched_total",
			Help:      "Total number of raw records fetched by source",
		}, []string{"source"}),

		// Normalization metrics
		RecordsNormalized: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalization",
			Name:      "records_normalized_total",
			Help:      "Total number of records normalized by source",
		}, []string{"source"}),
		MalformedRecords: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalization",
			Name:      "malformed_records_total",
			Help:      "Total number of records skipped as malformed by source",
		}, []string{"source"}),

		// Aggregation metrics
		PagesMerged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "pages_merged_total",
			Help:      "Total number of merge cycles published",
		}),
		ActivitiesAdded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "activities_added_total",
			Help:      "Total number of new activities added to feeds",
		}),
		StaleDiscards: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "stale_discards_total",
			Help:      "Total number of fetch results discarded after a session reset",
		}),
		MergeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "merge_duration_seconds",
			Help:      "Duration of one fetch and merge cycle in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "active_sessions",
			Help:      "Number of account sessions held in memory",
		}),
		SeriesErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "series_errors_total",
			Help:      "Total number of series computations that failed by kind",
		}, []string{"kind"}),
		PerformanceFetch: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "performance_refreshes_total",
			Help:      "Total number of trader-stats refreshes by status",
		}, []string{"status"}),

		// Cache metrics
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of cache lookups by cache and result",
		}, []string{"cache", "result"}),

		// Scheduler metrics
		ScheduledRefreshes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "refreshes_total",
			Help:      "Total number of scheduled account refreshes by status",
		}, []string{"status"}),

		// HTTP metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of API requests by route and status code",
		}, []string{"route", "code"}),
		HTTPLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulMerge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_merge_timestamp",
			Help:      "Unix timestamp of last successful merge",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordFetch records one page fetch of a source.
func RecordFetch(source string, seconds float64, records int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.SourceFetches.WithLabelValues(source, status).Inc()
	DefaultMetrics.SourceFetchLatency.WithLabelValues(source).Observe(seconds)
	if records > 0 {
		DefaultMetrics.RecordsFetched.WithLabelValues(source).Add(float64(records))
	}
}

// RecordNormalized increments the normalized records counter.
func RecordNormalized(source string) {
	DefaultMetrics.RecordsNormalized.WithLabelValues(source).Inc()
}

// RecordMalformed increments the malformed records counter.
func RecordMalformed(source string) {
	DefaultMetrics.MalformedRecords.WithLabelValues(source).Inc()
}

// RecordMerge records one published merge cycle.
func RecordMerge(added int, seconds float64, unixTime int64) {
	DefaultMetrics.PagesMerged.Inc()
	DefaultMetrics.ActivitiesAdded.Add(float64(added))
	DefaultMetrics.MergeDuration.Observe(seconds)
	DefaultMetrics.LastSuccessfulMerge.Set(float64(unixTime))
}

// RecordStaleDiscard increments the stale discards counter.
func RecordStaleDiscard() {
	DefaultMetrics.StaleDiscards.Inc()
}

// RecordSeriesError increments the series error counter.
func RecordSeriesError(kind string) {
	DefaultMetrics.SeriesErrors.WithLabelValues(kind).Inc()
}

// RecordPerformanceRefresh records a trader-stats refresh.
func RecordPerformanceRefresh(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.PerformanceFetch.WithLabelValues(status).Inc()
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.CacheLookups.WithLabelValues(cache, result).Inc()
}

// SetActiveSessions sets the active sessions gauge.
func SetActiveSessions(n int) {
	DefaultMetrics.ActiveSessions.Set(float64(n))
}

// RecordScheduledRefresh records one scheduled account refresh.
func RecordScheduledRefresh(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.ScheduledRefreshes.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records one API request.
func RecordHTTPRequest(route, code string, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, code).Inc()
	DefaultMetrics.HTTPLatency.WithLabelValues(route).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
