package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/turing/pkg/adapters/sqlite"
	"github.com/aretw0/turing/pkg/domain"
	"github.com/aretw0/turing/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.MachineStore = (*sqlite.Store)(nil)

func openStore(t *testing.T) (*sqlite.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "machines.db")
	store, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestSQLiteStore_Contract(t *testing.T) {
	store, _ := openStore(t)
	ports.RunMachineStoreContract(t, store)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	store, path := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "kept", &domain.Snapshot{Tape: "abab"}))
	require.NoError(t, store.Close())

	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	snap, err := reopened.Load(ctx, "kept")
	require.NoError(t, err)
	assert.Equal(t, "abab", snap.Tape)
}

func TestSQLiteStore_ListOrder(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "first", &domain.Snapshot{}))
	require.NoError(t, store.Save(ctx, "second", &domain.Snapshot{}))
	require.NoError(t, store.Save(ctx, "first", &domain.Snapshot{Tape: "a"}))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, ids)
}
