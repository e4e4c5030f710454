package scheduler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-fleet/internal/dispatch"
	"github.com/mselser95/polymarket-fleet/internal/scanner"
)

// RedeemAll runs an immediate redemption sweep over every armed
// account, independent of the periodic schedule.
func (s *Scheduler) RedeemAll(ctx context.Context) (dispatch.Result, error) {
	ids := s.registry.ArmedIDs()
	if len(ids) == 0 {
		return dispatch.Result{}, ErrNoAccounts
	}

	s.mu.Lock()
	s.lastRedeem = s.now()
	s.mu.Unlock()

	return s.dispatcher.Dispatch(ctx, "redeem", ids, s.redeemOp, s.sweepTimeout), nil
}

// SellAll closes every open position across every armed account.
func (s *Scheduler) SellAll(ctx context.Context) (dispatch.Result, error) {
	ids := s.registry.ArmedIDs()
	if len(ids) == 0 {
		return dispatch.Result{}, ErrNoAccounts
	}

	op := func(ctx context.Context, accountID int64) error {
		t, ok := s.registry.Trader(accountID)
		if !ok {
			return fmt.Errorf("account %d no longer armed", accountID)
		}

		res, err := t.SellAllPositions(ctx)
		if err != nil {
			return err
		}
		if res.Total > 0 && res.Succeeded == 0 {
			return fmt.Errorf("all %d sells failed", res.Total)
		}
		return nil
	}

	return s.dispatcher.Dispatch(ctx, "sell", ids, op, s.sweepTimeout), nil
}

// ManualPlaceOrder buys the given side of a market for specific
// accounts (or all armed accounts when ids is empty), bypassing the
// price trigger but not the dedup set.
func (s *Scheduler) ManualPlaceOrder(ctx context.Context, refText string, ids []int64, sideText string) (dispatch.Result, error) {
	ref, ok := scanner.ParseMarketRef(refText)
	if !ok {
		return dispatch.Result{}, fmt.Errorf("unrecognized market reference %q", refText)
	}

	side, ok := scanner.ParseSide(sideText)
	if !ok {
		return dispatch.Result{}, fmt.Errorf("unrecognized side %q", sideText)
	}

	if len(ids) == 0 {
		ids = s.registry.ArmedIDs()
	} else {
		armed := ids[:0]
		for _, id := range ids {
			if s.registry.IsArmed(id) {
				armed = append(armed, id)
			}
		}
		ids = armed
	}
	if len(ids) == 0 {
		return dispatch.Result{}, ErrNoAccounts
	}

	market, err := s.markets.MarketDetail(ctx, ref)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("resolve market: %w", err)
	}

	quotes, err := s.markets.SideQuotes(ctx, market)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("resolve prices: %w", err)
	}

	quote := quotes.Up
	if side == scanner.SideDown {
		quote = quotes.Down
	}
	if quote.Price <= 0 || quote.TokenID == "" {
		return dispatch.Result{}, fmt.Errorf("no price for side %s of market %s", side, market.ID)
	}

	cfg := s.StrategyConfig()
	size := cfg.OrderAmountUSD / quote.Price

	s.logger.Info("manual-order-dispatching",
		zap.String("market", market.ID),
		zap.String("side", string(side)),
		zap.Float64("price", quote.Price),
		zap.Int("accounts", len(ids)))

	op := s.buyOp(market.ID, quote.TokenID, side, quote.Price, size)
	return s.dispatcher.Dispatch(ctx, "manual-order", ids, op, s.orderTimeout), nil
}
