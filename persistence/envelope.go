package persistence

import (
	"encoding/binary"
	"fmt"
)

// Seal wraps payload in a snapshot envelope. The requested compression is
// downgraded to CompressionNone when it would not shrink the payload, so the
// header always describes what is actually stored.
func Seal(payload []byte, c Compression) ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCompression, uint8(c))
	}

	body, err := compress(payload, c)
	if err != nil {
		return nil, err
	}
	if body == nil {
		body = payload
		c = CompressionNone
	}

	out := make([]byte, HeaderSize, HeaderSize+len(body)+TrailerSize)
	binary.LittleEndian.PutUint32(out[0:], MagicNumber)
	binary.LittleEndian.PutUint16(out[4:], Version)
	out[6] = byte(c)
	out[7] = 0
	binary.LittleEndian.PutUint64(out[8:], uint64(len(payload)))
	binary.LittleEndian.PutUint64(out[16:], uint64(len(body)))
	out = append(out, body...)
	out = binary.LittleEndian.AppendUint32(out, CalculateChecksum(out))
	return out, nil
}

// ReadHeader decodes and validates the envelope header without touching the body.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}

	h := Header{
		Magic:       binary.LittleEndian.Uint32(data[0:]),
		Version:     binary.LittleEndian.Uint16(data[4:]),
		Compression: Compression(data[6]),
		Reserved:    data[7],
		RawLength:   binary.LittleEndian.Uint64(data[8:]),
		BodyLength:  binary.LittleEndian.Uint64(data[16:]),
	}

	if h.Magic != MagicNumber {
		return h, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.Version != Version {
		return h, fmt.Errorf("%w: got %d", ErrInvalidVersion, h.Version)
	}
	if !h.Compression.Valid() {
		return h, fmt.Errorf("%w: %d", ErrInvalidCompression, uint8(h.Compression))
	}
	if h.Reserved != 0 {
		return h, fmt.Errorf("%w: reserved byte 0x%02x", ErrInvalidHeader, h.Reserved)
	}
	return h, nil
}

// Open validates a snapshot envelope and returns its decompressed payload.
func Open(data []byte) ([]byte, Header, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, h, err
	}

	avail := uint64(len(data) - HeaderSize)
	switch {
	case avail < TrailerSize || h.BodyLength > avail-TrailerSize:
		return nil, h, fmt.Errorf("%w: body of %d bytes declared, %d available", ErrTruncated, h.BodyLength, avail)
	case h.BodyLength < avail-TrailerSize:
		return nil, h, fmt.Errorf("%w: %d bytes after body", ErrTrailingData, avail-TrailerSize-h.BodyLength)
	}

	end := HeaderSize + int(h.BodyLength)
	expected := binary.LittleEndian.Uint32(data[end:])
	if actual := CalculateChecksum(data[:end]); actual != expected {
		return nil, h, &ChecksumMismatchError{Expected: expected, Actual: actual}
	}

	payload, err := decompress(data[HeaderSize:end], h.Compression, h.RawLength)
	if err != nil {
		return nil, h, err
	}
	return payload, h, nil
}
