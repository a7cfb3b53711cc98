package persistence

import (
	"errors"
	"fmt"
	"hash/crc32"
)

// CRC32 (IEEE) guards snapshots against accidental corruption. It is not a
// tamper check.

// CRC32Table is the IEEE polynomial table for checksum computation.
var CRC32Table = crc32.MakeTable(crc32.IEEE)

// CalculateChecksum calculates CRC32 checksum of data.
func CalculateChecksum(data []byte) uint32 {
	return crc32.Checksum(data, CRC32Table)
}

// ChecksumMismatchError is returned when checksum verification fails.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// Unwrap makes checksum failures match ErrCorrupt.
func (e *ChecksumMismatchError) Unwrap() error { return ErrCorrupt }

// IsChecksumMismatch returns true if err is a checksum mismatch error.
func IsChecksumMismatch(err error) bool {
	var target *ChecksumMismatchError
	return errors.As(err, &target)
}
