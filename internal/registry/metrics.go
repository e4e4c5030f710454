package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ArmedAccounts tracks the number of accounts holding a live trader.
	ArmedAccounts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polymarket_fleet_registry_armed_accounts",
		Help: "Number of currently armed accounts",
	})

	// OrdersMarked counts dedup entries recorded after successful orders.
	OrdersMarked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_fleet_registry_orders_marked_total",
		Help: "Total successful orders recorded in the dedup set",
	})
)
