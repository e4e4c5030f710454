package trader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersTotal counts submitted orders by side and result.
	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_fleet_trader_orders_total",
		Help: "Total orders submitted to the CLOB by side and result",
	}, []string{"side", "result"})

	// RedemptionsTotal counts settled conditions redeemed on-chain.
	RedemptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_fleet_trader_redemptions_total",
		Help: "Total conditions redeemed against the CTF contract",
	})
)
