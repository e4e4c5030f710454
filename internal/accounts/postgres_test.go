package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return newPostgresStoreWithDB(db, zap.NewNop()), mock
}

func accountRows(accs ...Account) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "name", "private_key", "proxy_wallet", "api_key", "api_secret",
		"api_passphrase", "notes", "status", "balance_usdc", "created_at",
	})
	for _, a := range accs {
		rows.AddRow(a.ID, a.Name, a.PrivateKey, a.ProxyWallet, a.APIKey,
			a.APISecret, a.APIPassphrase, a.Notes, a.Status, a.BalanceUSDC, a.CreatedAt)
	}
	return rows
}

func TestPostgresStore_ListActive(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE status = 'active'").
		WillReturnRows(accountRows(
			Account{ID: 1, Name: "alpha", Status: StatusActive, CreatedAt: now},
			Account{ID: 3, Name: "gamma", Status: StatusActive, CreatedAt: now},
		))

	accs, err := store.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, accs, 2)
	require.Equal(t, int64(1), accs[0].ID)
	require.Equal(t, "gamma", accs[1].Name)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id").
		WithArgs(int64(42)).
		WillReturnRows(accountRows())

	_, err := store.Get(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_Add(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO accounts").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := store.Add(context.Background(), Account{Name: "delta"})
	require.NoError(t, err)
	require.Equal(t, int64(7), id)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateStatus_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE accounts SET status").
		WithArgs(int64(9), StatusPaused).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateStatus(context.Background(), 9, StatusPaused)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_Delete(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM accounts WHERE id").
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Delete(context.Background(), 2)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
