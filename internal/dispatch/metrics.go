package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksTotal counts per-account dispatch outcomes by operation.
	TasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_fleet_dispatch_tasks_total",
		Help: "Total dispatched tasks by operation and result",
	}, []string{"op", "result"})

	// BatchDuration measures whole-batch wall time per operation.
	BatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polymarket_fleet_dispatch_batch_duration_seconds",
		Help:    "Dispatch batch duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)
