package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Ranking Prometheus metrics.
var (
	RankRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rank_requests_total",
			Help:      "Total number of ranking requests",
		},
		[]string{"operation", "status"},
	)

	RankDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rank_duration_seconds",
			Help:      "Ranking pipeline duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	RankCandidates = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rank_candidates",
			Help:      "Candidates surviving filters per ranking request",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"operation"},
	)

	VectorizeUnmappedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vectorize_unmapped_tags_total",
			Help:      "Tags dropped because the vocabulary has no slot for them",
		},
		[]string{"vocabulary"},
	)

	CatalogItems = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_items",
			Help:      "Items loaded into the ranking index",
		},
	)
)

var registerRanking sync.Once

// RegisterRankingMetrics registers the ranking collectors with the default registry.
// Safe to call more than once.
func RegisterRankingMetrics() {
	registerRanking.Do(func() {
		prometheus.MustRegister(
			RankRequestsTotal,
			RankDuration,
			RankCandidates,
			VectorizeUnmappedTotal,
			CatalogItems,
		)
	})
}

// UnmappedTagObserver counts a dropped tag against its vocabulary.
// The tag itself is not a label to keep cardinality bounded.
func UnmappedTagObserver(vocabulary, _ string) {
	VectorizeUnmappedTotal.WithLabelValues(vocabulary).Inc()
}
