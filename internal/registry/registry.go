package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-fleet/internal/accounts"
	"github.com/mselser95/polymarket-fleet/internal/trader"
)

var (
	// ErrNotArmed is returned when an operation targets an account
	// that holds no live trader.
	ErrNotArmed = errors.New("account not armed")

	// ErrNotActive is returned when arming an account whose stored
	// status is not active.
	ErrNotActive = errors.New("account not active")
)

// TraderFactory builds a live trader bound to one account's credentials.
type TraderFactory func(account accounts.Account) (trader.Trader, error)

// Registry tracks armed accounts and their per-market order history.
// All mutable state lives behind one mutex; dispatch workers, the
// scheduler loop and external control calls all funnel through it.
type Registry struct {
	mu      sync.Mutex
	store   accounts.Store
	factory TraderFactory
	logger  *zap.Logger

	armed   map[int64]trader.Trader
	ordered map[string]map[int64]struct{}
}

// New creates an empty registry.
func New(store accounts.Store, factory TraderFactory, logger *zap.Logger) *Registry {
	return &Registry{
		store:   store,
		factory: factory,
		logger:  logger,
		armed:   make(map[int64]trader.Trader),
		ordered: make(map[string]map[int64]struct{}),
	}
}

// Arm creates a live trader for the account. Arming an already armed
// account succeeds without creating a second trader.
func (r *Registry) Arm(ctx context.Context, id int64) error {
	account, err := r.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load account %d: %w", id, err)
	}

	if account.Status != accounts.StatusActive {
		return fmt.Errorf("account %d: %w", id, ErrNotActive)
	}

	r.mu.Lock()
	if _, ok := r.armed[id]; ok {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	// The factory may dial out; build the trader outside the lock.
	t, err := r.factory(*account)
	if err != nil {
		return fmt.Errorf("create trader for account %d: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.armed[id]; ok {
		// Lost the race to a concurrent Arm; keep the first trader.
		return nil
	}

	r.armed[id] = t
	ArmedAccounts.Set(float64(len(r.armed)))

	r.logger.Info("account-armed",
		zap.Int64("account_id", id),
		zap.String("name", account.Name))

	return nil
}

// Disarm removes the account's trader and purges it from every
// market's order history. Markets left with no entries are dropped.
func (r *Registry) Disarm(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.armed[id]; !ok {
		return fmt.Errorf("account %d: %w", id, ErrNotArmed)
	}

	delete(r.armed, id)
	for marketID, set := range r.ordered {
		delete(set, id)
		if len(set) == 0 {
			delete(r.ordered, marketID)
		}
	}

	ArmedAccounts.Set(float64(len(r.armed)))
	r.logger.Info("account-disarmed", zap.Int64("account_id", id))

	return nil
}

// IsArmed reports whether the account holds a live trader.
func (r *Registry) IsArmed(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.armed[id]
	return ok
}

// ArmedIDs returns the armed account ids in ascending order.
func (r *Registry) ArmedIDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int64, 0, len(r.armed))
	for id := range r.armed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// ArmedCount returns the number of armed accounts.
func (r *Registry) ArmedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.armed)
}

// Trader returns the live trader for an armed account.
func (r *Registry) Trader(id int64) (trader.Trader, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.armed[id]
	return t, ok
}

// HasOrdered reports whether the account already received an order for
// the market during its current arming period.
func (r *Registry) HasOrdered(marketID string, id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.ordered[marketID]
	if !ok {
		return false
	}
	_, ok = set[id]
	return ok
}

// MarkOrdered records a successful order. A mark for an account that
// was disarmed mid-flight is dropped rather than resurrecting a stale
// entry.
func (r *Registry) MarkOrdered(marketID string, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.armed[id]; !ok {
		return
	}

	set, ok := r.ordered[marketID]
	if !ok {
		set = make(map[int64]struct{})
		r.ordered[marketID] = set
	}
	set[id] = struct{}{}
	OrdersMarked.Inc()
}

// Eligible returns the armed accounts that have not yet ordered on the
// market, in ascending id order.
func (r *Registry) Eligible(marketID string) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.ordered[marketID]

	ids := make([]int64, 0, len(r.armed))
	for id := range r.armed {
		if _, done := set[id]; done {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}
