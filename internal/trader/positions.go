package trader

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// minSellPrice is the exchange's price floor for limit orders.
const minSellPrice = 0.01

// SellAllPositions closes every open position at a marketable limit
// price. Redeemable positions are skipped, they are settled through
// redemption instead of the book.
func (t *AccountTrader) SellAllPositions(ctx context.Context) (SweepResult, error) {
	positions, err := t.walletClient.GetPositions(ctx, t.cfg.DataURL, t.proxy)
	if err != nil {
		return SweepResult{}, fmt.Errorf("get positions: %w", err)
	}

	var res SweepResult
	for _, pos := range positions {
		if pos.Redeemable || pos.TokenID == "" {
			continue
		}
		res.Total++

		price := pos.CurPrice
		if price < minSellPrice {
			price = minSellPrice
		}

		_, err := t.placeSellOrder(ctx, pos.TokenID, pos.Size, price)
		if err != nil {
			res.Failed++
			t.logger.Warn("position-sell-failed",
				zap.String("market", pos.MarketSlug),
				zap.String("outcome", pos.Outcome),
				zap.Error(err))
			continue
		}

		res.Succeeded++
		t.logger.Info("position-sold",
			zap.String("market", pos.MarketSlug),
			zap.String("outcome", pos.Outcome),
			zap.Float64("size", pos.Size),
			zap.Float64("price", price))
	}

	return res, nil
}
