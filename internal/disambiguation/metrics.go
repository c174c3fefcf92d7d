package disambiguation

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "entity_linker",
			Subsystem: "disambiguation",
			Name:      "runs_total",
			Help:      "Disambiguation runs by outcome.",
		},
		[]string{"outcome"},
	)

	runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "entity_linker",
			Subsystem: "disambiguation",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of disambiguation runs.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 9),
		},
	)

	sweepsPerRun = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "entity_linker",
			Subsystem: "disambiguation",
			Name:      "sweeps",
			Help:      "Optimization sweeps executed per run.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 50, 100},
		},
	)

	scoreCacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "entity_linker",
			Subsystem: "disambiguation",
			Name:      "score_cache_ops_total",
			Help:      "Per-run score cache lookups by cache and result.",
		},
		[]string{"cache", "result"},
	)
)

func init() {
	prometheus.MustRegister(runsTotal, runDuration, sweepsPerRun, scoreCacheOps)
}

func recordCacheStats(cache string, hits, misses int) {
	scoreCacheOps.WithLabelValues(cache, "hit").Add(float64(hits))
	scoreCacheOps.WithLabelValues(cache, "miss").Add(float64(misses))
}
