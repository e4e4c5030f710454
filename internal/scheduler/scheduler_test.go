package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-fleet/internal/accounts"
	"github.com/mselser95/polymarket-fleet/internal/dispatch"
	"github.com/mselser95/polymarket-fleet/internal/registry"
	"github.com/mselser95/polymarket-fleet/internal/scanner"
	"github.com/mselser95/polymarket-fleet/internal/testutil"
	"github.com/mselser95/polymarket-fleet/internal/trader"
)

type fakeSource struct {
	mu        sync.Mutex
	markets   []scanner.Market
	remaining map[string]float64
	quotes    map[string]*scanner.Quotes

	candidateCalls int
}

func (f *fakeSource) CandidateMarkets(context.Context) ([]scanner.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candidateCalls++
	out := make([]scanner.Market, len(f.markets))
	copy(out, f.markets)
	return out, nil
}

func (f *fakeSource) MarketDetail(_ context.Context, ref scanner.MarketRef) (*scanner.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.markets {
		if f.markets[i].ID == ref.Value || f.markets[i].Slug == ref.Value {
			m := f.markets[i]
			return &m, nil
		}
	}
	return nil, scanner.ErrMarketNotFound
}

func (f *fakeSource) RemainingSeconds(m *scanner.Market) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.remaining[m.ID]
	return r, ok
}

func (f *fakeSource) SideQuotes(_ context.Context, m *scanner.Market) (*scanner.Quotes, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotes[m.ID]
	if !ok {
		return &scanner.Quotes{}, nil
	}
	return q, nil
}

func (f *fakeSource) CandidateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.candidateCalls
}

func triggeringSource() *fakeSource {
	return &fakeSource{
		markets: []scanner.Market{{ID: "m1", Slug: "eth-updown-15m-1", Question: "ETH up?"}},
		remaining: map[string]float64{
			"m1": 150,
		},
		quotes: map[string]*scanner.Quotes{
			"m1": {
				Up:   scanner.SideQuote{TokenID: "tok-up", Price: 0.90},
				Down: scanner.SideQuote{TokenID: "tok-down", Price: 0.10},
			},
		},
	}
}

func defaultStrategy() StrategyConfig {
	return StrategyConfig{
		OrderAmountUSD:  2.0,
		PriceThreshold:  0.85,
		CheckWindow:     2 * time.Minute,
		MonitorInterval: 10 * time.Millisecond,
		RedeemInterval:  time.Hour,
	}
}

type fixture struct {
	sched   *Scheduler
	reg     *registry.Registry
	source  *fakeSource
	traders map[int64]*testutil.FakeTrader
}

func newFixture(t *testing.T, source *fakeSource, armed int) *fixture {
	t.Helper()

	seed := make([]accounts.Account, 0, armed)
	for i := 1; i <= armed; i++ {
		seed = append(seed, testutil.ActiveAccount(int64(i), "acct"))
	}

	traders := make(map[int64]*testutil.FakeTrader)
	var mu sync.Mutex
	factory := func(a accounts.Account) (trader.Trader, error) {
		ft := &testutil.FakeTrader{ID: a.ID}
		mu.Lock()
		traders[a.ID] = ft
		mu.Unlock()
		return ft, nil
	}

	reg := registry.New(testutil.NewMemStore(seed...), factory, zap.NewNop())
	for i := 1; i <= armed; i++ {
		require.NoError(t, reg.Arm(context.Background(), int64(i)))
	}

	sched := New(reg, source, dispatch.New(10, zap.NewNop()), defaultStrategy(),
		time.Second, time.Second, zap.NewNop())

	return &fixture{sched: sched, reg: reg, source: source, traders: traders}
}

func TestEvaluateMarket_TriggersUpSignal(t *testing.T) {
	f := newFixture(t, triggeringSource(), 3)

	f.sched.evaluateMarket(context.Background(), "m1", f.sched.StrategyConfig())

	for id, ft := range f.traders {
		orders := ft.BuyOrders()
		require.Len(t, orders, 1, "account %d", id)
		require.Equal(t, "tok-up", orders[0].TokenID)
		require.Equal(t, scanner.SideUp, orders[0].Side)
		require.InDelta(t, 0.90, orders[0].Price, 0.001)
		require.InDelta(t, 2.0/0.90, orders[0].Size, 0.001)
		require.True(t, f.reg.HasOrdered("m1", id))
	}
}

func TestEvaluateMarket_SecondPassFullyServiced(t *testing.T) {
	f := newFixture(t, triggeringSource(), 2)
	cfg := f.sched.StrategyConfig()

	f.sched.evaluateMarket(context.Background(), "m1", cfg)
	f.sched.evaluateMarket(context.Background(), "m1", cfg)

	for _, ft := range f.traders {
		require.Len(t, ft.BuyOrders(), 1)
	}
}

func TestEvaluateMarket_OutsideWindow(t *testing.T) {
	source := triggeringSource()
	source.remaining["m1"] = 1000
	f := newFixture(t, source, 2)

	f.sched.evaluateMarket(context.Background(), "m1", f.sched.StrategyConfig())

	for _, ft := range f.traders {
		require.Empty(t, ft.BuyOrders())
	}
}

func TestEvaluateMarket_UnknownExpiry(t *testing.T) {
	source := triggeringSource()
	delete(source.remaining, "m1")
	f := newFixture(t, source, 1)

	f.sched.evaluateMarket(context.Background(), "m1", f.sched.StrategyConfig())
	require.Empty(t, f.traders[1].BuyOrders())
}

func TestEvaluateMarket_NoSignal(t *testing.T) {
	source := triggeringSource()
	source.quotes["m1"] = &scanner.Quotes{
		Up:   scanner.SideQuote{TokenID: "tok-up", Price: 0.60},
		Down: scanner.SideQuote{TokenID: "tok-down", Price: 0.40},
	}
	f := newFixture(t, source, 2)

	f.sched.evaluateMarket(context.Background(), "m1", f.sched.StrategyConfig())

	for _, ft := range f.traders {
		require.Empty(t, ft.BuyOrders())
	}
}

func TestEvaluateMarket_DownSignal(t *testing.T) {
	source := triggeringSource()
	source.quotes["m1"] = &scanner.Quotes{
		Up:   scanner.SideQuote{TokenID: "tok-up", Price: 0.08},
		Down: scanner.SideQuote{TokenID: "tok-down", Price: 0.92},
	}
	f := newFixture(t, source, 1)

	f.sched.evaluateMarket(context.Background(), "m1", f.sched.StrategyConfig())

	orders := f.traders[1].BuyOrders()
	require.Len(t, orders, 1)
	require.Equal(t, scanner.SideDown, orders[0].Side)
	require.Equal(t, "tok-down", orders[0].TokenID)
}

func TestEvaluateMarket_TiePrefersUp(t *testing.T) {
	source := triggeringSource()
	source.quotes["m1"] = &scanner.Quotes{
		Up:   scanner.SideQuote{TokenID: "tok-up", Price: 0.90},
		Down: scanner.SideQuote{TokenID: "tok-down", Price: 0.90},
	}
	f := newFixture(t, source, 1)

	f.sched.evaluateMarket(context.Background(), "m1", f.sched.StrategyConfig())

	orders := f.traders[1].BuyOrders()
	require.Len(t, orders, 1)
	require.Equal(t, scanner.SideUp, orders[0].Side)
}

func TestEvaluateMarket_UnresolvedPriceSkips(t *testing.T) {
	source := triggeringSource()
	source.quotes["m1"] = &scanner.Quotes{
		Up: scanner.SideQuote{TokenID: "tok-up", Price: 0.95},
	}
	f := newFixture(t, source, 1)

	f.sched.evaluateMarket(context.Background(), "m1", f.sched.StrategyConfig())
	require.Empty(t, f.traders[1].BuyOrders())
}

func TestStateMachine(t *testing.T) {
	f := newFixture(t, triggeringSource(), 0)
	require.Equal(t, StateStopped, f.sched.CurrentState())

	f.sched.StartAutoMonitoring()
	require.Equal(t, StateIdle, f.sched.CurrentState())

	// Starting twice is a no-op.
	f.sched.StartAutoMonitoring()
	require.Equal(t, StateIdle, f.sched.CurrentState())

	f.sched.StopAutoMonitoring()
	require.Equal(t, StateStopped, f.sched.CurrentState())

	// Stopping an already stopped scheduler is a no-op.
	f.sched.StopAutoMonitoring()
}

func TestStateMachine_LastAccountStoppedGoesIdle(t *testing.T) {
	f := newFixture(t, triggeringSource(), 1)
	f.sched.StartAutoMonitoring()
	defer f.sched.StopAutoMonitoring()

	require.Equal(t, StateScanning, f.sched.CurrentState())

	require.NoError(t, f.sched.StopAccount(1))
	require.Equal(t, StateIdle, f.sched.CurrentState())

	require.NoError(t, f.sched.StartAccount(context.Background(), 1))
	require.Equal(t, StateScanning, f.sched.CurrentState())
}

func TestLoop_DedupAcrossIterations(t *testing.T) {
	f := newFixture(t, triggeringSource(), 2)

	f.sched.StartAutoMonitoring()
	time.Sleep(100 * time.Millisecond)
	f.sched.StopAutoMonitoring()

	require.Greater(t, f.source.CandidateCalls(), 1)
	for _, ft := range f.traders {
		require.Len(t, ft.BuyOrders(), 1)
	}
}

func TestLoop_IdleSkipsScanning(t *testing.T) {
	f := newFixture(t, triggeringSource(), 0)

	f.sched.StartAutoMonitoring()
	time.Sleep(60 * time.Millisecond)
	f.sched.StopAutoMonitoring()

	require.Zero(t, f.source.CandidateCalls())
}

func TestLoop_PeriodicRedeem(t *testing.T) {
	f := newFixture(t, triggeringSource(), 1)
	cfg := defaultStrategy()
	cfg.RedeemInterval = 20 * time.Millisecond
	f.sched.SetStrategyConfig(cfg)

	f.sched.StartAutoMonitoring()
	time.Sleep(120 * time.Millisecond)
	f.sched.StopAutoMonitoring()

	require.GreaterOrEqual(t, f.traders[1].RedeemCalls(), 1)
}

func TestRedeemAll(t *testing.T) {
	f := newFixture(t, triggeringSource(), 2)

	res, err := f.sched.RedeemAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, res.Succeeded)

	for _, ft := range f.traders {
		require.Equal(t, 1, ft.RedeemCalls())
	}
}

func TestRedeemAll_NoAccounts(t *testing.T) {
	f := newFixture(t, triggeringSource(), 0)

	_, err := f.sched.RedeemAll(context.Background())
	require.ErrorIs(t, err, ErrNoAccounts)
}

func TestSellAll(t *testing.T) {
	f := newFixture(t, triggeringSource(), 3)

	res, err := f.sched.SellAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, res.Succeeded)

	for _, ft := range f.traders {
		require.Equal(t, 1, ft.SellCalls())
	}
}

func TestManualPlaceOrder(t *testing.T) {
	f := newFixture(t, triggeringSource(), 3)

	res, err := f.sched.ManualPlaceOrder(context.Background(), "m1", []int64{1, 3}, "DOWN")
	require.NoError(t, err)
	require.Equal(t, 2, res.Succeeded)

	require.Len(t, f.traders[1].BuyOrders(), 1)
	require.Empty(t, f.traders[2].BuyOrders())
	require.Len(t, f.traders[3].BuyOrders(), 1)
	require.Equal(t, "tok-down", f.traders[1].BuyOrders()[0].TokenID)
}

func TestManualPlaceOrder_AllArmedWhenNoIDs(t *testing.T) {
	f := newFixture(t, triggeringSource(), 2)

	res, err := f.sched.ManualPlaceOrder(context.Background(), "m1", nil, "up")
	require.NoError(t, err)
	require.Equal(t, 2, res.Succeeded)
}

func TestManualPlaceOrder_NoAccounts(t *testing.T) {
	f := newFixture(t, triggeringSource(), 0)

	_, err := f.sched.ManualPlaceOrder(context.Background(), "m1", nil, "up")
	require.ErrorIs(t, err, ErrNoAccounts)
}

func TestManualPlaceOrder_BadSide(t *testing.T) {
	f := newFixture(t, triggeringSource(), 1)

	_, err := f.sched.ManualPlaceOrder(context.Background(), "m1", nil, "sideways")
	require.Error(t, err)
}

func TestManualPlaceOrder_RespectsDedup(t *testing.T) {
	f := newFixture(t, triggeringSource(), 1)

	_, err := f.sched.ManualPlaceOrder(context.Background(), "m1", nil, "up")
	require.NoError(t, err)
	require.True(t, f.reg.HasOrdered("m1", 1))
}

func TestSetStrategyConfig(t *testing.T) {
	f := newFixture(t, triggeringSource(), 0)

	cfg := defaultStrategy()
	cfg.PriceThreshold = 0.95
	f.sched.SetStrategyConfig(cfg)

	require.InDelta(t, 0.95, f.sched.StrategyConfig().PriceThreshold, 0.0001)
}

func TestStatusSnapshot(t *testing.T) {
	f := newFixture(t, triggeringSource(), 2)

	st := f.sched.Status()
	require.Equal(t, StateStopped, st.State)
	require.Equal(t, []int64{1, 2}, st.ArmedAccounts)
	require.InDelta(t, 0.85, st.StrategyConfig.PriceThreshold, 0.0001)
}
