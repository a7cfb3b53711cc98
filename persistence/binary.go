package persistence

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// Writer appends little-endian values to an in-memory payload.
type Writer struct {
	buf []byte
}

// NewWriter creates a writer with an initial capacity hint.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the payload written so far.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) WriteUint32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

func (w *Writer) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }

func (w *Writer) WriteUint64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

func (w *Writer) WriteFloat64(v float64) { w.WriteUint64(math.Float64bits(v)) }

// WriteBytes writes b prefixed with its uint32 length.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteUint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteFloat32Slice writes the raw IEEE bits of vec.
func (w *Writer) WriteFloat32Slice(vec []float32) {
	for _, v := range vec {
		w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
	}
}

// WriteUint32Slice writes s without a length prefix.
func (w *Writer) WriteUint32Slice(s []uint32) {
	for _, v := range s {
		w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	}
}

// Reader consumes little-endian values from a payload. Reads past the end
// return ErrTruncated.
type Reader struct {
	data []byte
	off  int
}

// NewReader creates a reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

// Offset returns the current read position.
func (r *Reader) Offset() int { return r.off }

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || n > r.Remaining() {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.off, r.Remaining())
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadBytes reads a uint32 length prefix and that many bytes. The returned
// slice aliases the payload.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: section of %d bytes at offset %d, have %d", ErrTruncated, n, r.off, r.Remaining())
	}
	return r.take(int(n))
}

// ReadFloat32Slice reads count float32 values. The size is checked against
// the remaining bytes before anything is allocated.
func (r *Reader) ReadFloat32Slice(count uint64) ([]float32, error) {
	if count > uint64(r.Remaining())/4 {
		return nil, fmt.Errorf("%w: %d float32 values at offset %d, have %d bytes", ErrTruncated, count, r.off, r.Remaining())
	}
	b, _ := r.take(int(count) * 4)
	out := make([]float32, count)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// ReadUint32Slice reads count uint32 values with the same size check.
func (r *Reader) ReadUint32Slice(count uint64) ([]uint32, error) {
	if count > uint64(r.Remaining())/4 {
		return nil, fmt.Errorf("%w: %d uint32 values at offset %d, have %d bytes", ErrTruncated, count, r.off, r.Remaining())
	}
	b, _ := r.take(int(count) * 4)
	out := make([]uint32, count)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out, nil
}

// ExpectEOF fails when unread bytes remain.
func (r *Reader) ExpectEOF() error {
	if n := r.Remaining(); n != 0 {
		return fmt.Errorf("%w: %d bytes at offset %d", ErrTrailingData, n, r.off)
	}
	return nil
}

// SaveToFile writes a file atomically: the data goes to a temp file in the
// same directory which is synced and renamed over filename.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	// Write to a temp file in the same directory to ensure rename is atomic.
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	_ = tmp.Chmod(0o644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	tmpName = ""
	return nil
}
