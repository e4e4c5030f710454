package accounts

import (
	"context"
	"errors"
	"time"
)

// Account status values.
const (
	StatusActive = "active"
	StatusPaused = "paused"
	StatusError  = "error"
)

// ErrNotFound is returned when an account id does not exist in the store.
var ErrNotFound = errors.New("account not found")

// Account is a trading account record. Credentials are opaque to the
// scheduler core; only the Trader binds them.
type Account struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	PrivateKey    string    `json:"private_key"`
	ProxyWallet   string    `json:"proxy_wallet_address"`
	APIKey        string    `json:"api_key"`
	APISecret     string    `json:"api_secret"`
	APIPassphrase string    `json:"api_passphrase"`
	Notes         string    `json:"notes"`
	Status        string    `json:"status"`
	BalanceUSDC   float64   `json:"balance_usdc"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store persists trading accounts.
type Store interface {
	// List returns all accounts.
	List(ctx context.Context) ([]Account, error)

	// ListActive returns accounts whose status is "active".
	ListActive(ctx context.Context) ([]Account, error)

	// Get returns the account with the given id or ErrNotFound.
	Get(ctx context.Context, id int64) (*Account, error)

	// Add inserts a new account and returns its assigned id.
	Add(ctx context.Context, acc Account) (int64, error)

	// Update replaces the mutable fields of an account.
	Update(ctx context.Context, acc Account) error

	// UpdateStatus sets the status of an account.
	UpdateStatus(ctx context.Context, id int64, status string) error

	// UpdateBalance stores the last known USDC balance of an account.
	UpdateBalance(ctx context.Context, id int64, balance float64) error

	// Delete removes an account.
	Delete(ctx context.Context, id int64) error

	// Close releases store resources.
	Close() error
}
