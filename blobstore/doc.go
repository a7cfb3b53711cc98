// Package blobstore stores cover tree snapshots as named, immutable blobs.
//
// A snapshot is written once with Put and read back whole with Get.
// Stores that can expose a blob without copying it also implement Opener;
// the returned Blob may implement Mappable.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, atomic writes, mmap reads
//   - MemoryStore: process memory, for tests and ephemeral use
//   - s3.Store: Amazon S3 (package blobstore/s3)
//   - minio.Store: MinIO and other S3-compatible services (package blobstore/minio)
//   - bolt.Store: a single bbolt database file (package blobstore/bolt)
//
// Names use forward slashes, as in io/fs. Empty names, absolute names and
// names containing ".." elements are rejected with ErrInvalidName.
package blobstore
