package kb

import "github.com/prometheus/client_golang/prometheus"

var (
	lookupCacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "entity_linker",
			Subsystem: "kb",
			Name:      "cache_ops_total",
			Help:      "Knowledge-base cache lookups by query kind and result.",
		},
		[]string{"query", "result"},
	)
	queryErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "entity_linker",
			Subsystem: "kb",
			Name:      "query_errors_total",
			Help:      "Knowledge-base queries that failed.",
		},
		[]string{"query"},
	)
)

func init() {
	prometheus.MustRegister(lookupCacheOps, queryErrors)
}

// RecordCacheHit records a cache hit for the given query kind
func RecordCacheHit(query string) {
	lookupCacheOps.WithLabelValues(query, "hit").Inc()
}

// RecordCacheMiss records a cache miss for the given query kind
func RecordCacheMiss(query string) {
	lookupCacheOps.WithLabelValues(query, "miss").Inc()
}

// RecordQueryError records a failed knowledge-base query
func RecordQueryError(query string) {
	queryErrors.WithLabelValues(query).Inc()
}
