package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"runtime"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repetitivePayload() []byte {
	return bytes.Repeat([]byte("cover tree snapshot payload "), 256)
}

func TestSealOpen(t *testing.T) {
	tests := []struct {
		name        string
		compression Compression
		payload     []byte
		stored      Compression
	}{
		{"none", CompressionNone, repetitivePayload(), CompressionNone},
		{"lz4", CompressionLZ4, repetitivePayload(), CompressionLZ4},
		{"zstd", CompressionZSTD, repetitivePayload(), CompressionZSTD},
		{"empty", CompressionZSTD, []byte{}, CompressionNone},
		{"incompressible", CompressionLZ4, []byte{1, 2, 3}, CompressionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Seal(tt.payload, tt.compression)
			require.NoError(t, err)

			payload, h, err := Open(data)
			require.NoError(t, err)
			assert.Equal(t, tt.stored, h.Compression)
			assert.Equal(t, uint64(len(tt.payload)), h.RawLength)
			assert.True(t, bytes.Equal(tt.payload, payload))
		})
	}
}

func TestSealDeterministic(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		a, err := Seal(repetitivePayload(), c)
		require.NoError(t, err)
		b, err := Seal(repetitivePayload(), c)
		require.NoError(t, err)
		assert.Equal(t, a, b, c.String())
	}
}

func TestSealInvalidCompression(t *testing.T) {
	_, err := Seal([]byte("x"), Compression(9))
	assert.ErrorIs(t, err, ErrInvalidCompression)
}

func TestOpenCorrupt(t *testing.T) {
	good, err := Seal(repetitivePayload(), CompressionZSTD)
	require.NoError(t, err)

	mutate := func(f func([]byte) []byte) []byte {
		c := append([]byte(nil), good...)
		return f(c)
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"short header", good[:10], ErrTruncated},
		{"magic", mutate(func(b []byte) []byte { b[0] ^= 0xff; return b }), ErrInvalidMagic},
		{"version", mutate(func(b []byte) []byte { binary.LittleEndian.PutUint16(b[4:], 7); return b }), ErrInvalidVersion},
		{"compression", mutate(func(b []byte) []byte { b[6] = 5; return b }), ErrInvalidCompression},
		{"reserved", mutate(func(b []byte) []byte { b[7] = 1; return b }), ErrInvalidHeader},
		{"truncated body", good[:len(good)-8], ErrTruncated},
		{"trailing", append(append([]byte(nil), good...), 0), ErrTrailingData},
		{"body bit flip", mutate(func(b []byte) []byte { b[HeaderSize+3] ^= 0x01; return b }), ErrCorrupt},
		{"crc", mutate(func(b []byte) []byte { b[len(b)-1] ^= 0x01; return b }), ErrCorrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Open(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestOpenChecksumMismatch(t *testing.T) {
	data, err := Seal([]byte("payload"), CompressionNone)
	require.NoError(t, err)
	data[HeaderSize] ^= 0x80

	_, _, err = Open(data)
	require.Error(t, err)
	assert.True(t, IsChecksumMismatch(err))

	var mismatch *ChecksumMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.NotEqual(t, mismatch.Expected, mismatch.Actual)
}

func TestOpenDeclaredSizeMismatch(t *testing.T) {
	data, err := Seal([]byte("payload"), CompressionNone)
	require.NoError(t, err)

	// Lie about the raw length and fix up the checksum.
	binary.LittleEndian.PutUint64(data[8:], 99)
	end := len(data) - TrailerSize
	binary.LittleEndian.PutUint32(data[end:], CalculateChecksum(data[:end]))

	_, _, err = Open(data)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

// sealRaw frames an already compressed body with a lying raw length.
func sealRaw(body []byte, c Compression, rawLen uint64) []byte {
	data := make([]byte, HeaderSize, HeaderSize+len(body)+TrailerSize)
	binary.LittleEndian.PutUint32(data[0:], MagicNumber)
	binary.LittleEndian.PutUint16(data[4:], Version)
	data[6] = byte(c)
	binary.LittleEndian.PutUint64(data[8:], rawLen)
	binary.LittleEndian.PutUint64(data[16:], uint64(len(body)))
	data = append(data, body...)
	return binary.LittleEndian.AppendUint32(data, CalculateChecksum(data))
}

func allocatedDuring(f func()) uint64 {
	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	f()
	runtime.ReadMemStats(&after)
	return after.TotalAlloc - before.TotalAlloc
}

func TestOpenZstdBombBounded(t *testing.T) {
	zeros := make([]byte, 64<<20)

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	sized := enc.EncodeAll(zeros, nil)
	require.NoError(t, enc.Close())

	var buf bytes.Buffer
	stream, err := zstd.NewWriter(&buf, zstd.WithWindowSize(1<<17))
	require.NoError(t, err)
	_, err = stream.Write(zeros)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	unsized := buf.Bytes()

	tests := []struct {
		name string
		body []byte
	}{
		{"frame content size", sized},
		{"streamed frame", unsized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Less(t, len(tt.body), 1<<20)
			data := sealRaw(tt.body, CompressionZSTD, 64)

			var openErr error
			allocated := allocatedDuring(func() {
				_, _, openErr = Open(data)
			})
			assert.ErrorIs(t, openErr, ErrSizeMismatch)
			assert.ErrorIs(t, openErr, ErrCorrupt)
			assert.Less(t, allocated, uint64(16<<20))
		})
	}
}

func TestOpenZstdShortBody(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	body := enc.EncodeAll(repetitivePayload(), nil)
	require.NoError(t, enc.Close())

	// The frame decodes fine but yields less than declared.
	_, _, err = Open(sealRaw(body, CompressionZSTD, uint64(len(repetitivePayload())+10)))
	assert.ErrorIs(t, err, ErrSizeMismatch)

	payload, _, err := Open(sealRaw(body, CompressionZSTD, uint64(len(repetitivePayload()))))
	require.NoError(t, err)
	assert.Equal(t, repetitivePayload(), payload)
}
