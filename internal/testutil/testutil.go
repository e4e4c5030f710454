// Package testutil provides in-memory fakes shared across package tests.
package testutil

import (
	"context"
	"sync"

	"github.com/mselser95/polymarket-fleet/internal/accounts"
	"github.com/mselser95/polymarket-fleet/internal/trader"
)

// MemStore is an in-memory accounts.Store.
type MemStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]accounts.Account
}

// NewMemStore creates a store pre-loaded with the given accounts.
func NewMemStore(seed ...accounts.Account) *MemStore {
	s := &MemStore{
		nextID: 1,
		byID:   make(map[int64]accounts.Account),
	}
	for _, a := range seed {
		if a.ID == 0 {
			a.ID = s.nextID
		}
		s.byID[a.ID] = a
		if a.ID >= s.nextID {
			s.nextID = a.ID + 1
		}
	}
	return s
}

func (s *MemStore) List(_ context.Context) ([]accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]accounts.Account, 0, len(s.byID))
	for _, a := range s.byID {
		out = append(out, a)
	}
	return out, nil
}

func (s *MemStore) ListActive(ctx context.Context) ([]accounts.Account, error) {
	all, _ := s.List(ctx)
	out := all[:0]
	for _, a := range all {
		if a.Status == accounts.StatusActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemStore) Get(_ context.Context, id int64) (*accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, accounts.ErrNotFound
	}
	return &a, nil
}

func (s *MemStore) Add(_ context.Context, a accounts.Account) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = s.nextID
	s.nextID++
	s.byID[a.ID] = a
	return a.ID, nil
}

func (s *MemStore) Update(_ context.Context, a accounts.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[a.ID]; !ok {
		return accounts.ErrNotFound
	}
	s.byID[a.ID] = a
	return nil
}

func (s *MemStore) UpdateStatus(_ context.Context, id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return accounts.ErrNotFound
	}
	a.Status = status
	s.byID[id] = a
	return nil
}

func (s *MemStore) UpdateBalance(_ context.Context, id int64, balance float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return accounts.ErrNotFound
	}
	a.BalanceUSDC = balance
	s.byID[id] = a
	return nil
}

func (s *MemStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return accounts.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *MemStore) Close() error { return nil }

// ActiveAccount is a convenience constructor for seeding stores.
func ActiveAccount(id int64, name string) accounts.Account {
	return accounts.Account{
		ID:     id,
		Name:   name,
		Status: accounts.StatusActive,
	}
}

// FakeTrader is a configurable trader.Trader. Zero-value behavior:
// every operation succeeds.
type FakeTrader struct {
	ID int64

	mu          sync.Mutex
	buyOrders   []trader.OrderRequest
	sellCalls   int
	redeemCalls int

	BuyErr    error
	BuyDelay  func() // invoked inside PlaceBuyOrder before returning
	SellErr   error
	RedeemErr error
	BalanceV  float64
}

func (f *FakeTrader) AccountID() int64 { return f.ID }

func (f *FakeTrader) PlaceBuyOrder(_ context.Context, req trader.OrderRequest) (*trader.OrderResult, error) {
	if f.BuyDelay != nil {
		f.BuyDelay()
	}
	if f.BuyErr != nil {
		return nil, f.BuyErr
	}

	f.mu.Lock()
	f.buyOrders = append(f.buyOrders, req)
	f.mu.Unlock()

	return &trader.OrderResult{OrderID: "ord-1", Status: "matched"}, nil
}

func (f *FakeTrader) SellAllPositions(_ context.Context) (trader.SweepResult, error) {
	f.mu.Lock()
	f.sellCalls++
	f.mu.Unlock()

	if f.SellErr != nil {
		return trader.SweepResult{}, f.SellErr
	}
	return trader.SweepResult{Succeeded: 1, Total: 1}, nil
}

func (f *FakeTrader) RedeemPositions(_ context.Context) (int, error) {
	f.mu.Lock()
	f.redeemCalls++
	f.mu.Unlock()

	if f.RedeemErr != nil {
		return 0, f.RedeemErr
	}
	return 1, nil
}

func (f *FakeTrader) Balance(_ context.Context) (float64, error) {
	return f.BalanceV, nil
}

// BuyOrders returns a snapshot of the orders placed so far.
func (f *FakeTrader) BuyOrders() []trader.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]trader.OrderRequest, len(f.buyOrders))
	copy(out, f.buyOrders)
	return out
}

// SellCalls returns how many sell sweeps ran.
func (f *FakeTrader) SellCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sellCalls
}

// RedeemCalls returns how many redemption sweeps ran.
func (f *FakeTrader) RedeemCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.redeemCalls
}
