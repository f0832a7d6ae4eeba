// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_analyses_completed_total",
			Help: "Total number of customer analyses completed",
		},
		[]string{"operation"},
	)

	AnalysesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_analyses_failed_total",
			Help: "Total number of customer analyses that failed",
		},
		[]string{"operation", "error_code"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loyalty_analysis_duration_seconds",
			Help:    "Duration of customer analysis in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	SegmentAssignments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_segment_assignments_total",
			Help: "Detailed segments assigned by analyses",
		},
		[]string{"segment"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_http_requests_total",
			Help: "HTTP requests served by route and status",
		},
		[]string{"route", "status"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_memory_cache_lookups_total",
			Help: "Short-term memory lookups by result",
		},
		[]string{"result"},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loyalty_memory_cache_evictions_total",
			Help: "Entries evicted from short-term memory",
		},
	)

	PersistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_memory_persist_failures_total",
			Help: "Failed writes to durable or mirrored memory",
		},
		[]string{"target"},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loyalty_memory_cache_entries",
			Help: "Current number of entries in short-term memory",
		},
	)
)
