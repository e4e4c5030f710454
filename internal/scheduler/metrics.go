package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IterationsTotal counts completed scan iterations.
	IterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_fleet_scheduler_iterations_total",
		Help: "Total scan loop iterations executed",
	})

	// SignalsTotal counts triggered price signals by winning side.
	SignalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_fleet_scheduler_signals_total",
		Help: "Total price-threshold signals by side",
	}, []string{"side"})
)
