package persistence

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// compress encodes data with c. A nil result with a nil error means the data
// did not compress and should be stored as is.
func compress(data []byte, c Compression) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	switch c {
	case CompressionNone:
		return nil, nil
	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, err
		}
		if n == 0 || n >= len(data) {
			return nil, nil // Incompressible
		}
		return dst[:n], nil
	case CompressionZSTD:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, err
		}
		defer putZstdEncoder(enc)

		out := enc.EncodeAll(data, nil)
		if len(out) >= len(data) {
			return nil, nil
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidCompression, uint8(c))
	}
}

// decompress restores a body of rawLen bytes.
func decompress(body []byte, c Compression, rawLen uint64) ([]byte, error) {
	switch c {
	case CompressionNone:
		if uint64(len(body)) != rawLen {
			return nil, fmt.Errorf("%w: stored %d, declared %d", ErrSizeMismatch, len(body), rawLen)
		}
		return body, nil
	case CompressionLZ4:
		// LZ4 cannot expand input by more than 255x.
		if rawLen > uint64(len(body))*255+16 {
			return nil, fmt.Errorf("%w: declared %d for %d lz4 bytes", ErrSizeMismatch, rawLen, len(body))
		}
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrCorrupt, err)
		}
		if uint64(n) != rawLen {
			return nil, fmt.Errorf("%w: decoded %d, declared %d", ErrSizeMismatch, n, rawLen)
		}
		return out, nil
	case CompressionZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer putZstdDecoder(dec)

		return decompressZstd(dec, body, rawLen)
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidCompression, uint8(c))
	}
}

// decompressZstd never produces more than rawLen+1 bytes, whatever the frames
// claim.
func decompressZstd(dec *zstd.Decoder, body []byte, rawLen uint64) ([]byte, error) {
	var fh zstd.Header
	if err := fh.Decode(body); err != nil {
		return nil, fmt.Errorf("%w: zstd header: %v", ErrCorrupt, err)
	}
	if rawLen >= math.MaxInt64 {
		return nil, fmt.Errorf("%w: declared %d", ErrSizeMismatch, rawLen)
	}
	if fh.HasFCS && fh.FrameContentSize > rawLen {
		return nil, fmt.Errorf("%w: frame holds %d, declared %d", ErrSizeMismatch, fh.FrameContentSize, rawLen)
	}

	if err := dec.Reset(bytes.NewReader(body)); err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
	}
	defer func() { _ = dec.Reset(nil) }()

	out, err := io.ReadAll(io.LimitReader(dec, int64(rawLen)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
	}
	if uint64(len(out)) != rawLen {
		if uint64(len(out)) > rawLen {
			return nil, fmt.Errorf("%w: decoded more than declared %d", ErrSizeMismatch, rawLen)
		}
		return nil, fmt.Errorf("%w: decoded %d, declared %d", ErrSizeMismatch, len(out), rawLen)
	}
	return out, nil
}
