package metrics

import "github.com/prometheus/client_golang/prometheus"

// Core Prometheus metrics.
var (
	GatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragcore",
			Name:      "gateway_requests_total",
			Help:      "Total number of embedding/generation gateway requests",
		},
		[]string{"operation", "model", "status"},
	)

	GatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragcore",
			Name:      "gateway_request_duration_seconds",
			Help:      "Gateway request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation", "model"},
	)

	GatewayTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragcore",
			Name:      "gateway_tokens_total",
			Help:      "Total tokens consumed through the gateway",
		},
		[]string{"operation", "model", "type"},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragcore",
			Name:      "search_requests_total",
			Help:      "Total number of retrieval calls",
		},
		[]string{"strategy", "status"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragcore",
			Name:      "search_duration_seconds",
			Help:      "Retrieval duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"strategy"},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragcore",
			Name:      "cache_total",
			Help:      "Cache hits and misses per cache",
		},
		[]string{"cache", "result"}, // cache: "response"/"embedding"/"analysis", result: "hit"/"miss"
	)

	CacheEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragcore",
			Name:      "cache_evictions_total",
			Help:      "Cache evictions per cache and cause",
		},
		[]string{"cache", "cause"}, // cause: "expired"/"pressure"/"tags"
	)

	ClusteringRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragcore",
			Name:      "clustering_runs_total",
			Help:      "Clustering runs by outcome",
		},
		[]string{"outcome"}, // "completed"/"skipped"/"failed"
	)

	ClusteringDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ragcore",
			Name:      "clustering_duration_seconds",
			Help:      "Full clustering run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)
)

var coreMetricsRegistered bool

// RegisterCoreMetrics registers the core Prometheus metrics. Must be called once from main.
func RegisterCoreMetrics() {
	if coreMetricsRegistered {
		return
	}
	prometheus.MustRegister(GatewayRequestsTotal)
	prometheus.MustRegister(GatewayRequestDuration)
	prometheus.MustRegister(GatewayTokensTotal)
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(CacheTotal)
	prometheus.MustRegister(CacheEvictionsTotal)
	prometheus.MustRegister(ClusteringRunsTotal)
	prometheus.MustRegister(ClusteringDuration)
	coreMetricsRegistered = true
}
