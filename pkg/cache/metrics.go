package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HitsTotal tracks cache hits.
	HitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_fleet_cache_hits_total",
		Help: "Total number of market cache hits",
	})

	// MissesTotal tracks cache misses.
	MissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_fleet_cache_misses_total",
		Help: "Total number of market cache misses",
	})

	// SetsTotal tracks cache writes.
	SetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_fleet_cache_sets_total",
		Help: "Total number of market cache writes",
	})
)
