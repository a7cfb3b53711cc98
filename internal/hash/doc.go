// Package hash provides the CRC32-Castagnoli checksums attached to object
// storage uploads. Go's crc32 package uses SSE4.2 or the ARM CRC extension
// when available.
//
// Snapshot envelopes keep their own CRC32-IEEE trailer; see package
// persistence.
package hash
