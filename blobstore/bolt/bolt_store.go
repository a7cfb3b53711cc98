package bolt

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/covertree/blobstore"
	"go.etcd.io/bbolt"
)

var defaultBucket = []byte("snapshots")

// Store implements blobstore.BlobStore on top of a bbolt database.
type Store struct {
	db     *bbolt.DB
	bucket []byte
}

var _ blobstore.BlobStore = (*Store)(nil)

type options struct {
	bucket  string
	timeout time.Duration
}

// Option configures Open.
type Option func(*options)

// WithBucket sets the bbolt bucket snapshots are stored in.
func WithBucket(name string) Option {
	return func(o *options) {
		o.bucket = name
	}
}

// WithTimeout bounds how long Open waits for the file lock.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// Open opens or creates the database file at path.
func Open(path string, optFns ...Option) (*Store, error) {
	opts := options{bucket: string(defaultBucket), timeout: time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.bucket == "" {
		return nil, fmt.Errorf("bolt: empty bucket name")
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: opts.timeout})
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", path, err)
	}

	bucket := []byte(opts.bucket)
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
			return fmt.Errorf("bolt: create bucket %s: %w", bucket, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, bucket: bucket}, nil
}

// Close closes the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores data under name in one write transaction.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	if err := blobstore.ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(name), data)
	})
}

// Get copies the value out of the read transaction.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	if err := blobstore.ValidateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(name))
		if v == nil {
			return blobstore.ErrNotFound
		}
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a blob. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := blobstore.ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(name))
	})
}

// List seeks to prefix and walks keys in byte order.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var names []string
	p := []byte(prefix)
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			names = append(names, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}
