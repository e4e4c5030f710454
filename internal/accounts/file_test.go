package accounts

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTempFileStore(t *testing.T) *FileStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "accounts.json")
	store, err := NewFileStore(path, zap.NewNop())
	require.NoError(t, err)

	return store
}

func TestFileStore_AddAssignsSequentialIDs(t *testing.T) {
	store := newTempFileStore(t)
	ctx := context.Background()

	id1, err := store.Add(ctx, Account{Name: "alpha"})
	require.NoError(t, err)
	require.Equal(t, int64(1), id1)

	id2, err := store.Add(ctx, Account{Name: "beta"})
	require.NoError(t, err)
	require.Equal(t, int64(2), id2)

	// Deleting the highest id then adding again reuses it, matching
	// max+1 assignment over the remaining records.
	require.NoError(t, store.Delete(ctx, id2))

	id3, err := store.Add(ctx, Account{Name: "gamma"})
	require.NoError(t, err)
	require.Equal(t, int64(2), id3)
}

func TestFileStore_ListActiveFiltersStatus(t *testing.T) {
	store := newTempFileStore(t)
	ctx := context.Background()

	id1, _ := store.Add(ctx, Account{Name: "alpha"})
	store.Add(ctx, Account{Name: "beta"})

	require.NoError(t, store.UpdateStatus(ctx, id1, StatusPaused))

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "beta", active[0].Name)
}

func TestFileStore_PersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	ctx := context.Background()

	store, err := NewFileStore(path, zap.NewNop())
	require.NoError(t, err)

	id, err := store.Add(ctx, Account{Name: "alpha", APIKey: "key"})
	require.NoError(t, err)
	require.NoError(t, store.UpdateBalance(ctx, id, 12.5))

	reloaded, err := NewFileStore(path, zap.NewNop())
	require.NoError(t, err)

	acc, err := reloaded.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "alpha", acc.Name)
	require.Equal(t, 12.5, acc.BalanceUSDC)
	require.Equal(t, StatusActive, acc.Status)
}

func TestFileStore_GetMissing(t *testing.T) {
	store := newTempFileStore(t)

	_, err := store.Get(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_UpdatePreservesCreatedAt(t *testing.T) {
	store := newTempFileStore(t)
	ctx := context.Background()

	id, _ := store.Add(ctx, Account{Name: "alpha"})
	orig, _ := store.Get(ctx, id)

	err := store.Update(ctx, Account{ID: id, Name: "renamed", Status: StatusActive})
	require.NoError(t, err)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "renamed", got.Name)
	require.Equal(t, orig.CreatedAt, got.CreatedAt)
}
