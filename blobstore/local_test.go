package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	testStoreLifecycle(t, NewLocalStore(t.TempDir()))
}

func TestLocalStore_InvalidNames(t *testing.T) {
	testInvalidNames(t, NewLocalStore(t.TempDir()))
}

func TestLocalStore_Layout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "snapshots")
	store := NewLocalStore(root)
	ctx := context.Background()

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names, "missing root lists as empty")

	require.NoError(t, store.Put(ctx, "nested/tree.cvt", []byte("data")))

	onDisk, err := os.ReadFile(filepath.Join(root, "nested", "tree.cvt"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(onDisk))

	require.NoError(t, os.WriteFile(filepath.Join(root, "nested", "tree.cvt.tmp-123"), []byte("partial"), 0o600))

	names, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"nested/tree.cvt"}, names)
}

func TestLocalStore_OpenIsMapped(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "tree.cvt", []byte("mapped")))

	blob, err := store.Open(ctx, "tree.cvt")
	require.NoError(t, err)
	defer blob.Close()

	m, ok := blob.(Mappable)
	require.True(t, ok)
	data, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "mapped", string(data))
}

func TestLocalStore_CanceledContext(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Put(ctx, "tree.cvt", []byte("x")), context.Canceled)
	_, err := store.Get(ctx, "tree.cvt")
	assert.ErrorIs(t, err, context.Canceled)
}
