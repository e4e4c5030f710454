package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-fleet/internal/dispatch"
	"github.com/mselser95/polymarket-fleet/internal/registry"
	"github.com/mselser95/polymarket-fleet/internal/scanner"
	"github.com/mselser95/polymarket-fleet/internal/trader"
)

// State names the scheduler's lifecycle phase.
type State string

const (
	// StateStopped means no loop is running.
	StateStopped State = "stopped"
	// StateIdle means the loop is alive but no accounts are armed, so
	// scans are skipped.
	StateIdle State = "idle"
	// StateScanning is normal operation.
	StateScanning State = "scanning"
)

// ErrNoAccounts is returned by batch actions that found zero armed
// accounts to act on, as opposed to a batch that ran and failed.
var ErrNoAccounts = errors.New("no armed accounts")

// StrategyConfig is the mutable trading strategy. Read at the top of
// every loop iteration; replaced wholesale via SetStrategyConfig.
// Values are accepted as given, callers own their sanity.
type StrategyConfig struct {
	OrderAmountUSD  float64
	PriceThreshold  float64
	CheckWindow     time.Duration
	MonitorInterval time.Duration
	RedeemInterval  time.Duration
}

// MarketSource is the market data surface the loop consumes.
type MarketSource interface {
	CandidateMarkets(ctx context.Context) ([]scanner.Market, error)
	MarketDetail(ctx context.Context, ref scanner.MarketRef) (*scanner.Market, error)
	RemainingSeconds(m *scanner.Market) (float64, bool)
	SideQuotes(ctx context.Context, m *scanner.Market) (*scanner.Quotes, error)
}

// Status is a point-in-time snapshot for the control API.
type Status struct {
	State          State          `json:"state"`
	ArmedAccounts  []int64        `json:"armed_accounts"`
	LastRedeemRun  time.Time      `json:"last_redeem_run"`
	StrategyConfig StrategyConfig `json:"strategy_config"`
}

// Scheduler owns the single polling loop: scan candidate markets,
// evaluate the price trigger, fan orders out to every eligible
// account, and periodically sweep redemptions.
type Scheduler struct {
	registry   *registry.Registry
	markets    MarketSource
	dispatcher *dispatch.Dispatcher
	logger     *zap.Logger
	now        func() time.Time

	orderTimeout time.Duration
	sweepTimeout time.Duration

	mu         sync.Mutex
	cfg        StrategyConfig
	running    bool
	stopCh     chan struct{}
	doneCh     chan struct{}
	lastRedeem time.Time
}

// New creates a stopped scheduler.
func New(
	reg *registry.Registry,
	markets MarketSource,
	dispatcher *dispatch.Dispatcher,
	cfg StrategyConfig,
	orderTimeout, sweepTimeout time.Duration,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		registry:     reg,
		markets:      markets,
		dispatcher:   dispatcher,
		cfg:          cfg,
		orderTimeout: orderTimeout,
		sweepTimeout: sweepTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// StartAccount arms one account for trading.
func (s *Scheduler) StartAccount(ctx context.Context, id int64) error {
	return s.registry.Arm(ctx, id)
}

// StopAccount disarms one account. In-flight dispatch tasks for the
// account are not cancelled; their dedup marks no-op once it is gone.
func (s *Scheduler) StopAccount(id int64) error {
	return s.registry.Disarm(id)
}

// RunningAccounts lists the armed account ids.
func (s *Scheduler) RunningAccounts() []int64 {
	return s.registry.ArmedIDs()
}

// AccountArmed reports whether one account is armed.
func (s *Scheduler) AccountArmed(id int64) bool {
	return s.registry.IsArmed(id)
}

// StartAutoMonitoring starts the polling loop. Starting an already
// running loop is a no-op that reports success.
func (s *Scheduler) StartAutoMonitoring() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	s.running = true
	s.lastRedeem = s.now()
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.run(s.stopCh, s.doneCh)

	s.logger.Info("scheduler-loop-starting",
		zap.Int("armed_accounts", s.registry.ArmedCount()))
}

// StopAutoMonitoring signals the loop to exit and waits for it.
func (s *Scheduler) StopAutoMonitoring() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	<-done
	s.logger.Info("scheduler-loop-stopped")
}

// CurrentState derives the lifecycle phase from the loop flag and the
// armed-account count.
func (s *Scheduler) CurrentState() State {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	if !running {
		return StateStopped
	}
	if s.registry.ArmedCount() == 0 {
		return StateIdle
	}
	return StateScanning
}

// Status snapshots the scheduler for the control API.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	lastRedeem := s.lastRedeem
	cfg := s.cfg
	s.mu.Unlock()

	return Status{
		State:          s.CurrentState(),
		ArmedAccounts:  s.registry.ArmedIDs(),
		LastRedeemRun:  lastRedeem,
		StrategyConfig: cfg,
	}
}

// StrategyConfig returns the current strategy.
func (s *Scheduler) StrategyConfig() StrategyConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetStrategyConfig replaces the strategy. Takes effect at the next
// loop iteration.
func (s *Scheduler) SetStrategyConfig(cfg StrategyConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	s.logger.Info("strategy-config-updated",
		zap.Float64("order_amount_usd", cfg.OrderAmountUSD),
		zap.Float64("price_threshold", cfg.PriceThreshold),
		zap.Duration("check_window", cfg.CheckWindow),
		zap.Duration("monitor_interval", cfg.MonitorInterval),
		zap.Duration("redeem_interval", cfg.RedeemInterval))
}

func (s *Scheduler) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		start := s.now()
		cfg := s.StrategyConfig()

		if s.registry.ArmedCount() > 0 {
			s.iterate(cfg)
			IterationsTotal.Inc()
		}

		if !s.pace(start, cfg.MonitorInterval, stopCh) {
			return
		}
	}
}

// pace sleeps out the remainder of the monitor interval so iterations
// keep a steady cadence regardless of how long the scan work took.
// Returns false when the stop signal arrived during the sleep.
func (s *Scheduler) pace(start time.Time, interval time.Duration, stopCh chan struct{}) bool {
	remaining := interval - time.Since(start)
	if remaining < 0 {
		remaining = 0
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-stopCh:
		return false
	case <-timer.C:
		return true
	}
}

// iterate runs one scan pass. Nothing raised in here may kill the
// loop; per-market failures skip to the next market and anything else
// is logged and retried at the next tick.
func (s *Scheduler) iterate(cfg StrategyConfig) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scan-iteration-panicked", zap.Any("panic", r))
		}
	}()

	ctx := context.Background()

	s.maybeRedeem(ctx, cfg)

	markets, err := s.markets.CandidateMarkets(ctx)
	if err != nil {
		s.logger.Warn("candidate-scan-failed", zap.Error(err))
		return
	}
	if len(markets) == 0 {
		s.logger.Debug("no-candidate-markets")
		return
	}

	for i := range markets {
		s.evaluateMarket(ctx, markets[i].ID, cfg)
	}
}

// maybeRedeem runs the periodic redemption sweep. The timestamp moves
// forward whether or not the sweep succeeded.
func (s *Scheduler) maybeRedeem(ctx context.Context, cfg StrategyConfig) {
	s.mu.Lock()
	due := s.now().Sub(s.lastRedeem) >= cfg.RedeemInterval
	if due {
		s.lastRedeem = s.now()
	}
	s.mu.Unlock()

	if !due {
		return
	}

	ids := s.registry.ArmedIDs()
	if len(ids) == 0 {
		return
	}

	s.logger.Info("redeem-sweep-starting", zap.Int("accounts", len(ids)))
	res := s.dispatcher.Dispatch(ctx, "redeem", ids, s.redeemOp, s.sweepTimeout)
	s.logger.Info("redeem-sweep-finished",
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
		zap.Int("timed_out", res.TimedOut))
}

func (s *Scheduler) evaluateMarket(ctx context.Context, marketID string, cfg StrategyConfig) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("market-evaluation-panicked",
				zap.String("market", marketID),
				zap.Any("panic", r))
		}
	}()

	market, err := s.markets.MarketDetail(ctx, scanner.MarketRef{Kind: scanner.RefID, Value: marketID})
	if err != nil {
		s.logger.Warn("market-detail-failed",
			zap.String("market", marketID),
			zap.Error(err))
		return
	}

	remaining, known := s.markets.RemainingSeconds(market)
	if !known || remaining <= 0 {
		s.logger.Debug("market-expiry-unknown-or-past", zap.String("market", marketID))
		return
	}

	if remaining > cfg.CheckWindow.Seconds() {
		s.logger.Debug("market-outside-window",
			zap.String("market", marketID),
			zap.Float64("remaining_seconds", remaining))
		return
	}

	quotes, err := s.markets.SideQuotes(ctx, market)
	if err != nil {
		s.logger.Warn("side-quotes-failed",
			zap.String("market", marketID),
			zap.Error(err))
		return
	}
	if quotes.Up.Price <= 0 || quotes.Down.Price <= 0 {
		s.logger.Debug("side-price-unresolved",
			zap.String("market", marketID),
			zap.Float64("up", quotes.Up.Price),
			zap.Float64("down", quotes.Down.Price))
		return
	}

	// UP is evaluated first; on a tie both sides crossing, UP wins.
	var winning scanner.SideQuote
	var side scanner.Side
	switch {
	case quotes.Up.Price >= cfg.PriceThreshold:
		winning, side = quotes.Up, scanner.SideUp
	case quotes.Down.Price >= cfg.PriceThreshold:
		winning, side = quotes.Down, scanner.SideDown
	default:
		s.logger.Debug("no-signal",
			zap.String("market", marketID),
			zap.Float64("up", quotes.Up.Price),
			zap.Float64("down", quotes.Down.Price),
			zap.Float64("threshold", cfg.PriceThreshold))
		return
	}

	eligible := s.registry.Eligible(marketID)
	if len(eligible) == 0 {
		s.logger.Debug("market-fully-serviced", zap.String("market", marketID))
		return
	}

	SignalsTotal.WithLabelValues(string(side)).Inc()
	s.logger.Info("signal-triggered",
		zap.String("market", marketID),
		zap.String("question", market.Question),
		zap.String("side", string(side)),
		zap.Float64("price", winning.Price),
		zap.Int("eligible_accounts", len(eligible)))

	size := cfg.OrderAmountUSD / winning.Price
	op := s.buyOp(marketID, winning.TokenID, side, winning.Price, size)

	res := s.dispatcher.Dispatch(ctx, "order", eligible, op, s.orderTimeout)
	s.logger.Info("order-fanout-finished",
		zap.String("market", marketID),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
		zap.Int("timed_out", res.TimedOut))
}

// buyOp returns the per-account dispatch operation for one signal.
// The dedup mark is recorded only after the order succeeded.
func (s *Scheduler) buyOp(marketID, tokenID string, side scanner.Side, price, size float64) dispatch.Op {
	return func(ctx context.Context, accountID int64) error {
		t, ok := s.registry.Trader(accountID)
		if !ok {
			return fmt.Errorf("account %d no longer armed", accountID)
		}

		_, err := t.PlaceBuyOrder(ctx, trader.OrderRequest{
			MarketID: marketID,
			TokenID:  tokenID,
			Side:     side,
			Price:    price,
			Size:     size,
		})
		if err != nil {
			return err
		}

		s.registry.MarkOrdered(marketID, accountID)
		return nil
	}
}

func (s *Scheduler) redeemOp(ctx context.Context, accountID int64) error {
	t, ok := s.registry.Trader(accountID)
	if !ok {
		return fmt.Errorf("account %d no longer armed", accountID)
	}

	_, err := t.RedeemPositions(ctx)
	return err
}
