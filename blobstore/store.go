package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error that satisfies errors.Is(err, ErrNotFound).
var ErrNotFound = os.ErrNotExist

// ErrInvalidName is returned for blob names that are not valid fs paths.
var ErrInvalidName = errors.New("blobstore: invalid blob name")

// BlobStore holds named snapshot blobs. Implementations must be safe for
// concurrent use.
type BlobStore interface {
	// Put stores data under name, replacing any previous blob atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Get returns a copy of the named blob.
	Get(ctx context.Context, name string) ([]byte, error)
	// Delete removes the named blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the names starting with prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Opener is implemented by stores that can hand out a read-only handle
// instead of a copy.
type Opener interface {
	Open(ctx context.Context, name string) (Blob, error)
}

// Blob is a read-only handle to a stored blob.
type Blob interface {
	io.ReaderAt
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// Mappable is an optional interface for Blobs backed by memory.
type Mappable interface {
	// Bytes returns the blob contents without copying.
	// The slice is valid until the Blob is closed.
	Bytes() ([]byte, error)
}

// ValidateName reports whether name can be used as a blob name.
func ValidateName(name string) error {
	if name == "" || name == "." || !fs.ValidPath(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// ReadAll reads a whole blob through its ReaderAt.
func ReadAll(b Blob) ([]byte, error) {
	if m, ok := b.(Mappable); ok {
		data, err := m.Bytes()
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}

	size := b.Size()
	if size < 0 {
		return nil, fmt.Errorf("blobstore: invalid blob size %d", size)
	}
	buf := make([]byte, size)
	n, err := b.ReadAt(buf, 0)
	if err != nil && !(errors.Is(err, io.EOF) && int64(n) == size) {
		return nil, err
	}
	return buf[:n], nil
}
