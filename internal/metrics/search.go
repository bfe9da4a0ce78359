package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "councilsearch"

// Search Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total number of search requests by outcome",
		},
		[]string{"outcome"},
	)

	SearchBranchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_branch_duration_seconds",
			Help:      "Retrieval branch latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"branch", "status"},
	)

	SearchFusedCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_fused_candidates",
			Help:      "Distinct subjects after rank fusion",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000, 3000},
		},
	)

	SearchSegmentsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_segments_dropped_total",
			Help:      "Speaker segments removed from hydrated results",
		},
		[]string{"reason"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchBranchDuration)
	prometheus.MustRegister(SearchFusedCandidates)
	prometheus.MustRegister(SearchSegmentsDroppedTotal)
	searchMetricsRegistered = true
}
