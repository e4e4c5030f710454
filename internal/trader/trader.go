package trader

import (
	"context"

	"github.com/mselser95/polymarket-fleet/internal/scanner"
)

// OrderRequest describes one buy order against a market side.
type OrderRequest struct {
	MarketID string
	TokenID  string
	Side     scanner.Side
	Price    float64
	Size     float64
}

// OrderResult is the exchange's acknowledgment of a placed order.
type OrderResult struct {
	OrderID string
	Status  string
}

// SweepResult aggregates a per-position batch action.
type SweepResult struct {
	Succeeded int
	Failed    int
	Total     int
}

// Trader executes exchange operations for one account. Implementations
// hold the account's credentials; every call performs exactly one
// round of blocking external I/O.
type Trader interface {
	AccountID() int64
	PlaceBuyOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
	SellAllPositions(ctx context.Context) (SweepResult, error)
	RedeemPositions(ctx context.Context) (int, error)
	Balance(ctx context.Context) (float64, error)
}
