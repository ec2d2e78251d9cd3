package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_cache_hits_total",
			Help: "Total number of fresh cache hits",
		},
		[]string{"cache"},
	)

	missesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_cache_misses_total",
			Help: "Total number of cache misses requiring a load",
		},
		[]string{"cache"},
	)

	staleServedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_cache_stale_served_total",
			Help: "Total number of stale values served while refreshing",
		},
		[]string{"cache"},
	)

	refreshFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_cache_refresh_failures_total",
			Help: "Total number of background refreshes that failed",
		},
		[]string{"cache"},
	)

	invalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_cache_invalidations_total",
			Help: "Total number of entries marked stale by invalidation",
		},
		[]string{"cache"},
	)

	evictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_cache_evictions_total",
			Help: "Total number of entries evicted by the janitor",
		},
		[]string{"cache"},
	)
)
