package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hupe1980/covertree/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshots.db")
	store, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestStore_Lifecycle(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "trees/a.cvt", []byte("first")))
	require.NoError(t, store.Put(ctx, "trees/b.cvt", []byte("second")))
	require.NoError(t, store.Put(ctx, "other.cvt", []byte("third")))

	got, err := store.Get(ctx, "trees/a.cvt")
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"other.cvt", "trees/a.cvt", "trees/b.cvt"}, names)

	names, err = store.List(ctx, "trees/")
	require.NoError(t, err)
	assert.Equal(t, []string{"trees/a.cvt", "trees/b.cvt"}, names)

	require.NoError(t, store.Put(ctx, "trees/a.cvt", []byte("replaced")))
	got, err = store.Get(ctx, "trees/a.cvt")
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(got))

	require.NoError(t, store.Delete(ctx, "trees/a.cvt"))
	require.NoError(t, store.Delete(ctx, "trees/a.cvt"))

	_, err = store.Get(ctx, "trees/a.cvt")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	ctx := context.Background()

	store, err := Open(path, WithBucket("trees"))
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "tree.cvt", []byte("persisted")))
	require.NoError(t, store.Close())

	store, err = Open(path, WithBucket("trees"))
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(ctx, "tree.cvt")
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(got))
}

func TestStore_Validation(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.Put(ctx, "../x", []byte("x")), blobstore.ErrInvalidName)
	_, err := store.Get(ctx, "")
	assert.ErrorIs(t, err, blobstore.ErrInvalidName)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, store.Put(canceled, "x", []byte("x")), context.Canceled)

	_, err = Open(filepath.Join(t.TempDir(), "x.db"), WithBucket(""))
	assert.Error(t, err)
}
