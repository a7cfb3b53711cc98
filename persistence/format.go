package persistence

import (
	"errors"
	"fmt"
)

const (
	// MagicNumber identifies cover tree snapshots (ASCII: "CVT1").
	MagicNumber = 0x31545643
	// Version is the current snapshot format version.
	Version = 1

	// HeaderSize is the encoded size of Header.
	HeaderSize = 24
	// TrailerSize is the size of the CRC32 trailer.
	TrailerSize = 4
)

var (
	// ErrCorrupt is the root of every decoding error in this package.
	ErrCorrupt = errors.New("corrupt snapshot")

	ErrInvalidMagic       = fmt.Errorf("%w: invalid magic number", ErrCorrupt)
	ErrInvalidVersion     = fmt.Errorf("%w: unsupported version", ErrCorrupt)
	ErrInvalidCompression = fmt.Errorf("%w: unknown compression", ErrCorrupt)
	ErrInvalidHeader      = fmt.Errorf("%w: invalid header", ErrCorrupt)
	ErrTruncated          = fmt.Errorf("%w: unexpected end of data", ErrCorrupt)
	ErrTrailingData       = fmt.Errorf("%w: trailing bytes", ErrCorrupt)
	ErrSizeMismatch       = fmt.Errorf("%w: payload size mismatch", ErrCorrupt)
)

// Compression selects how the snapshot body is stored.
type Compression uint8

const (
	// CompressionNone stores the payload as is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses zstd (better ratio).
	CompressionZSTD Compression = 2
)

// Valid reports whether c is a known compression kind.
func (c Compression) Valid() bool {
	return c <= CompressionZSTD
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// Header is the fixed-size prefix of every snapshot.
type Header struct {
	Magic       uint32
	Version     uint16
	Compression Compression
	Reserved    uint8
	RawLength   uint64 // Payload length before compression
	BodyLength  uint64 // Stored body length
}
