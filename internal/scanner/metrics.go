package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CandidatesFound tracks how many tradable markets each discovery
	// pass returned.
	CandidatesFound = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_fleet_scanner_candidates_found",
		Help:    "Number of tradable candidate markets found per scan",
		Buckets: []float64{0, 1, 2, 3, 5, 10},
	})

	// DetailLookupsTotal counts market detail resolutions by outcome.
	DetailLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_fleet_scanner_detail_lookups_total",
		Help: "Total market detail lookups by result",
	}, []string{"result"})

	// PriceFallbacksTotal counts which layer of the price chain
	// ultimately served each quote.
	PriceFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_fleet_scanner_price_fallbacks_total",
		Help: "Total price resolutions by serving layer",
	}, []string{"layer"})
)
