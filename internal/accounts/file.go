package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FileStore implements Store on a single JSON file. Writes rewrite the
// whole file; a mutex serializes access so HTTP handlers and the scheduler
// can share one instance.
type FileStore struct {
	path     string
	logger   *zap.Logger
	mu       sync.Mutex
	accounts []Account
}

// NewFileStore loads (or creates) the accounts file at path.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	s := &FileStore{
		path:   path,
		logger: logger,
	}

	err := s.load()
	if err != nil {
		return nil, fmt.Errorf("load accounts file: %w", err)
	}

	logger.Info("file-store-loaded",
		zap.String("path", path),
		zap.Int("accounts", len(s.accounts)))

	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.accounts = []Account{}
		return s.flush()
	}
	if err != nil {
		return err
	}

	err = json.Unmarshal(data, &s.accounts)
	if err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}

	return nil
}

// flush writes the account list back to disk. Caller holds s.mu.
func (s *FileStore) flush() error {
	err := os.MkdirAll(filepath.Dir(s.path), 0o755)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.accounts, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o600)
}

// List returns all accounts.
func (s *FileStore) List(ctx context.Context) ([]Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Account, len(s.accounts))
	copy(out, s.accounts)
	return out, nil
}

// ListActive returns accounts whose status is "active".
func (s *FileStore) ListActive(ctx context.Context) ([]Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Account
	for _, acc := range s.accounts {
		if acc.Status == StatusActive {
			out = append(out, acc)
		}
	}
	return out, nil
}

// Get returns the account with the given id or ErrNotFound.
func (s *FileStore) Get(ctx context.Context, id int64) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.accounts {
		if s.accounts[i].ID == id {
			acc := s.accounts[i]
			return &acc, nil
		}
	}
	return nil, ErrNotFound
}

// Add inserts a new account and returns its assigned id. Ids are assigned
// max(existing)+1 so deleted ids are never reused within a file's history.
func (s *FileStore) Add(ctx context.Context, acc Account) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var maxID int64
	for i := range s.accounts {
		if s.accounts[i].ID > maxID {
			maxID = s.accounts[i].ID
		}
	}

	acc.ID = maxID + 1
	if acc.Status == "" {
		acc.Status = StatusActive
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now().UTC()
	}

	s.accounts = append(s.accounts, acc)

	err := s.flush()
	if err != nil {
		s.accounts = s.accounts[:len(s.accounts)-1]
		return 0, fmt.Errorf("persist account: %w", err)
	}

	return acc.ID, nil
}

// Update replaces the mutable fields of an account.
func (s *FileStore) Update(ctx context.Context, acc Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.accounts {
		if s.accounts[i].ID == acc.ID {
			// Id and creation time are immutable.
			acc.CreatedAt = s.accounts[i].CreatedAt
			s.accounts[i] = acc
			return s.flush()
		}
	}
	return ErrNotFound
}

// UpdateStatus sets the status of an account.
func (s *FileStore) UpdateStatus(ctx context.Context, id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.accounts {
		if s.accounts[i].ID == id {
			s.accounts[i].Status = status
			return s.flush()
		}
	}
	return ErrNotFound
}

// UpdateBalance stores the last known USDC balance of an account.
func (s *FileStore) UpdateBalance(ctx context.Context, id int64, balance float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.accounts {
		if s.accounts[i].ID == id {
			s.accounts[i].BalanceUSDC = balance
			return s.flush()
		}
	}
	return ErrNotFound
}

// Delete removes an account.
func (s *FileStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.accounts {
		if s.accounts[i].ID == id {
			s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
			return s.flush()
		}
	}
	return ErrNotFound
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	s.logger.Debug("file-store-closed")
	return nil
}
