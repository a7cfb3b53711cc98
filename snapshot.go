package covertree

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/covertree/blobstore"
	"github.com/hupe1980/covertree/internal/tree"
	"github.com/hupe1980/covertree/persistence"
)

// MarshalBinary returns a self-contained snapshot of the tree: points,
// tombstones and structure inside a checksummed envelope. Identical trees
// produce identical bytes.
func (t *Tree) MarshalBinary() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return nil, ErrClosed
	}
	return t.marshal()
}

func (t *Tree) marshal() ([]byte, error) {
	payload, err := t.t.Encode()
	if err != nil {
		return nil, err
	}
	return persistence.Seal(payload, t.opts.compression)
}

// Decode restores a tree from MarshalBinary output. The result shares
// nothing with data. Any structural problem yields ErrCorruptData and no
// tree.
func Decode(data []byte, optFns ...Option) (*Tree, error) {
	start := time.Now()
	ctx := context.Background()

	opts, err := applyOptions(optFns)
	if err != nil {
		return nil, err
	}

	t, err := decodeTree(data)
	points, trunc := 0, 0
	if t != nil {
		points, trunc = t.Len(), t.Truncation()
	}
	opts.metricsCollector.RecordBuild(points, time.Since(start), err)
	opts.logger.LogBuild(ctx, "decode", points, trunc, err)
	if err != nil {
		return nil, err
	}
	return newTree(t, opts), nil
}

func decodeTree(data []byte) (*tree.Tree, error) {
	payload, _, err := persistence.Open(data)
	if err != nil {
		return nil, translateError(err)
	}
	t, err := tree.Decode(payload)
	if err != nil {
		return nil, translateError(err)
	}
	return t, nil
}

// Save writes a snapshot to store under name.
func (t *Tree) Save(ctx context.Context, store blobstore.BlobStore, name string) error {
	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		return ErrClosed
	}
	data, err := t.marshal()
	t.mu.RUnlock()

	if err == nil {
		err = store.Put(ctx, name, data)
	}
	t.logger.LogSnapshot(ctx, "save", name, len(data), err)
	return err
}

// Load reads a snapshot from store and decodes it. Stores implementing
// blobstore.Opener are read through a blob handle, which avoids a copy for
// memory-mapped blobs. Missing snapshots yield ErrNotFound.
func Load(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (*Tree, error) {
	start := time.Now()

	opts, err := applyOptions(optFns)
	if err != nil {
		return nil, err
	}

	var (
		t    *tree.Tree
		size int
	)
	err = withSnapshot(ctx, store, name, func(data []byte) error {
		size = len(data)
		var derr error
		t, derr = decodeTree(data)
		return derr
	})
	if errors.Is(err, blobstore.ErrNotFound) {
		err = fmt.Errorf("%w: snapshot %q: %w", ErrNotFound, name, err)
	}

	points := 0
	if t != nil {
		points = t.Len()
	}
	opts.metricsCollector.RecordBuild(points, time.Since(start), err)
	opts.logger.LogSnapshot(ctx, "load", name, size, err)
	if err != nil {
		return nil, err
	}
	return newTree(t, opts), nil
}

// withSnapshot hands fn the snapshot bytes. The slice is only valid during fn.
func withSnapshot(ctx context.Context, store blobstore.BlobStore, name string, fn func([]byte) error) error {
	if opener, ok := store.(blobstore.Opener); ok {
		blob, err := opener.Open(ctx, name)
		if err != nil {
			return err
		}
		defer func() { _ = blob.Close() }()

		if m, ok := blob.(blobstore.Mappable); ok {
			data, err := m.Bytes()
			if err != nil {
				return err
			}
			return fn(data)
		}
		data, err := blobstore.ReadAll(blob)
		if err != nil {
			return err
		}
		return fn(data)
	}

	data, err := store.Get(ctx, name)
	if err != nil {
		return err
	}
	return fn(data)
}
