// Package persistence provides the binary snapshot envelope for cover trees.
//
// A snapshot is a little-endian byte stream:
//
//	offset size field
//	0      4    magic "CVT1"
//	4      2    format version
//	6      1    compression (0 none, 1 lz4, 2 zstd)
//	7      1    reserved
//	8      8    raw payload length
//	16     8    body length
//	24     n    body
//	24+n   4    CRC32 (IEEE) of everything before it
//
// The payload itself is produced by the tree with Writer and consumed with
// Reader. Every decoding failure wraps ErrCorrupt.
package persistence
