package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStore creates a new PostgreSQL-backed account store.
func NewPostgresStore(cfg *PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-store-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStore{db: db, logger: cfg.Logger}, nil
}

// newPostgresStoreWithDB wires an existing handle; used by tests.
func newPostgresStoreWithDB(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

const accountColumns = `id, name, private_key, proxy_wallet, api_key, api_secret, api_passphrase, notes, status, balance_usdc, created_at`

// List returns all accounts.
func (p *PostgresStore) List(ctx context.Context) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY id`
	return p.queryAccounts(ctx, query)
}

// ListActive returns accounts whose status is "active".
func (p *PostgresStore) ListActive(ctx context.Context) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE status = 'active' ORDER BY id`
	return p.queryAccounts(ctx, query)
}

func (p *PostgresStore) queryAccounts(ctx context.Context, query string, args ...interface{}) ([]Account, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var acc Account
		err = rows.Scan(
			&acc.ID, &acc.Name, &acc.PrivateKey, &acc.ProxyWallet,
			&acc.APIKey, &acc.APISecret, &acc.APIPassphrase,
			&acc.Notes, &acc.Status, &acc.BalanceUSDC, &acc.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}

	return accounts, rows.Err()
}

// Get returns the account with the given id or ErrNotFound.
func (p *PostgresStore) Get(ctx context.Context, id int64) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	var acc Account
	err := p.db.QueryRowContext(ctx, query, id).Scan(
		&acc.ID, &acc.Name, &acc.PrivateKey, &acc.ProxyWallet,
		&acc.APIKey, &acc.APISecret, &acc.APIPassphrase,
		&acc.Notes, &acc.Status, &acc.BalanceUSDC, &acc.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}

	return &acc, nil
}

// Add inserts a new account and returns its assigned id.
func (p *PostgresStore) Add(ctx context.Context, acc Account) (int64, error) {
	if acc.Status == "" {
		acc.Status = StatusActive
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO accounts (
			name, private_key, proxy_wallet, api_key, api_secret,
			api_passphrase, notes, status, balance_usdc, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	var id int64
	err := p.db.QueryRowContext(ctx, query,
		acc.Name, acc.PrivateKey, acc.ProxyWallet, acc.APIKey, acc.APISecret,
		acc.APIPassphrase, acc.Notes, acc.Status, acc.BalanceUSDC, acc.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert account: %w", err)
	}

	p.logger.Debug("account-inserted", zap.Int64("account-id", id))

	return id, nil
}

// Update replaces the mutable fields of an account.
func (p *PostgresStore) Update(ctx context.Context, acc Account) error {
	query := `
		UPDATE accounts SET
			name = $2, private_key = $3, proxy_wallet = $4, api_key = $5,
			api_secret = $6, api_passphrase = $7, notes = $8, status = $9
		WHERE id = $1
	`

	result, err := p.db.ExecContext(ctx, query,
		acc.ID, acc.Name, acc.PrivateKey, acc.ProxyWallet, acc.APIKey,
		acc.APISecret, acc.APIPassphrase, acc.Notes, acc.Status,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}

	return checkAffected(result)
}

// UpdateStatus sets the status of an account.
func (p *PostgresStore) UpdateStatus(ctx context.Context, id int64, status string) error {
	result, err := p.db.ExecContext(ctx, `UPDATE accounts SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return checkAffected(result)
}

// UpdateBalance stores the last known USDC balance of an account.
func (p *PostgresStore) UpdateBalance(ctx context.Context, id int64, balance float64) error {
	result, err := p.db.ExecContext(ctx, `UPDATE accounts SET balance_usdc = $2 WHERE id = $1`, id, balance)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return checkAffected(result)
}

// Delete removes an account.
func (p *PostgresStore) Delete(ctx context.Context, id int64) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return checkAffected(result)
}

func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database connection.
func (p *PostgresStore) Close() error {
	p.logger.Info("closing-postgres-store")
	return p.db.Close()
}
