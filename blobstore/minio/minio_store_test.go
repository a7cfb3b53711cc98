package minio

import (
	"context"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/hupe1980/covertree/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_InvalidName(t *testing.T) {
	store := NewStore(nil, "bucket", "prefix/")
	ctx := context.Background()

	assert.ErrorIs(t, store.Put(ctx, "../x", nil), blobstore.ErrInvalidName)
	_, err := store.Get(ctx, "")
	assert.ErrorIs(t, err, blobstore.ErrInvalidName)
	_, err = store.Open(ctx, "/abs")
	assert.ErrorIs(t, err, blobstore.ErrInvalidName)
	assert.ErrorIs(t, store.Delete(ctx, "a/../../b"), blobstore.ErrInvalidName)
}

func TestStore_Key(t *testing.T) {
	assert.Equal(t, "prefix/tree.cvt", NewStore(nil, "b", "prefix/").key("tree.cvt"))
	assert.Equal(t, "tree.cvt", NewStore(nil, "b", "").key("tree.cvt"))
}

// TestMinioStore_Integration requires a running MinIO instance.
// Set MINIO_ENDPOINT (e.g. localhost:9000) to enable it.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("Skipping MinIO integration test: MINIO_ENDPOINT not set")
	}
	accessKey := envOr("MINIO_ACCESS_KEY", "minioadmin")
	secretKey := envOr("MINIO_SECRET_KEY", "minioadmin")
	bucket := "test-covertree"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		t.Skipf("MinIO not available: %v", err)
	}
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, fmt.Sprintf("run-%d/", time.Now().UnixNano()))

	data := []byte("hello minio snapshot")
	require.NoError(t, store.Put(ctx, "tree.cvt", data))
	t.Cleanup(func() { _ = store.Delete(context.Background(), "tree.cvt") })

	got, err := store.Get(ctx, "tree.cvt")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	blob, err := store.Open(ctx, "tree.cvt")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	n, err = blob.ReadAt(buf, int64(len(data)-3))
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "hot", string(buf[:n]))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"tree.cvt"}, names)

	require.NoError(t, store.Delete(ctx, "tree.cvt"))
	require.NoError(t, store.Delete(ctx, "tree.cvt"))

	_, err = store.Get(ctx, "tree.cvt")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
	_, err = store.Open(ctx, "tree.cvt")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
