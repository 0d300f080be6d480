// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReferencesScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predcheck_references_scored_total",
			Help: "Total number of references scored, by resolved risk level",
		},
		[]string{"risk_level"},
	)

	RegistryLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predcheck_registry_lookups_total",
			Help: "Total retraction registry lookups, by registry and outcome",
		},
		[]string{"registry", "outcome"},
	)

	MatcherCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predcheck_matcher_calls_total",
			Help: "Total semantic matcher calls, by outcome",
		},
		[]string{"outcome"},
	)

	WatchlistLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predcheck_watchlist_lookups_total",
			Help: "Total watchlist category loads, by category and source",
		},
		[]string{"category", "source"},
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "predcheck_analysis_duration_seconds",
			Help:    "End-to-end duration of a full reference analysis run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	BatchesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "predcheck_batches_processed_total",
			Help: "Total reference batches processed",
		},
	)
)
