package pointstore

import (
	"errors"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/covertree/distance"
	"github.com/hupe1980/covertree/internal/conv"
)

var (
	// ErrEmpty is returned when a store would be created without points.
	ErrEmpty = errors.New("pointstore: no points")

	// ErrNonFinite is returned for vectors containing NaN or Inf.
	ErrNonFinite = errors.New("pointstore: vector contains NaN or Inf")

	// ErrInvalidDimension is returned for a zero dimension.
	ErrInvalidDimension = errors.New("pointstore: invalid dimension")

	// ErrFull is returned when the identity space is exhausted.
	ErrFull = errors.New("pointstore: identity space exhausted")
)

// ErrDimensionMismatch is a named error type for dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
	Row      int // Offending row, -1 for single vectors
}

// Error returns the error message for dimension mismatch.
func (e *ErrDimensionMismatch) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("dimension mismatch at row %d: expected %d, got %d", e.Row, e.Expected, e.Actual)
	}
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Store is a growable array of fixed-dimension points.
//
// Store is not safe for concurrent mutation; the owning tree serializes
// writers and lets readers share it.
type Store struct {
	dim     int
	data    []float32
	deleted *roaring.Bitmap
}

// New creates an empty store for vectors of the given dimension.
func New(dim int, capacity int) (*Store, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
	}
	if capacity < 0 {
		capacity = 0
	}
	return &Store{
		dim:     dim,
		data:    make([]float32, 0, capacity*dim),
		deleted: roaring.New(),
	}, nil
}

// FromRows copies rows into a new store. The dimension is taken from the
// first row; every row must match it and contain only finite values.
func FromRows(rows [][]float32) (*Store, error) {
	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	if _, err := conv.IntToUint32(len(rows)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFull, err)
	}

	dim := len(rows[0])
	s, err := New(dim, len(rows))
	if err != nil {
		return nil, err
	}

	for i, row := range rows {
		if len(row) != dim {
			return nil, &ErrDimensionMismatch{Expected: dim, Actual: len(row), Row: i}
		}
		if !distance.IsFinite(row) {
			return nil, fmt.Errorf("%w (row %d)", ErrNonFinite, i)
		}
		s.data = append(s.data, row...)
	}

	return s, nil
}

// FromFlat wraps already validated row-major data. Used by snapshot decoding.
func FromFlat(dim int, data []float32, deleted *roaring.Bitmap) (*Store, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
	}
	if len(data)%dim != 0 {
		return nil, fmt.Errorf("pointstore: %d values do not form rows of %d", len(data), dim)
	}
	if !distance.IsFinite(data) {
		return nil, ErrNonFinite
	}
	if deleted == nil {
		deleted = roaring.New()
	}
	if !deleted.IsEmpty() && int(deleted.Maximum()) >= len(data)/dim {
		return nil, fmt.Errorf("pointstore: tombstone %d outside identity space %d", deleted.Maximum(), len(data)/dim)
	}
	return &Store{dim: dim, data: data, deleted: deleted}, nil
}

// Append validates v and adds it under the next identity.
func (s *Store) Append(v []float32) (uint32, error) {
	if len(v) != s.dim {
		return 0, &ErrDimensionMismatch{Expected: s.dim, Actual: len(v), Row: -1}
	}
	if !distance.IsFinite(v) {
		return 0, ErrNonFinite
	}
	n := s.Len()
	if uint64(n) >= math.MaxUint32 {
		return 0, ErrFull
	}
	s.data = append(s.data, v...)
	return uint32(n), nil
}

// Dimension returns the vector dimension.
func (s *Store) Dimension() int { return s.dim }

// Len returns the size of the identity space, deleted rows included.
func (s *Store) Len() int { return len(s.data) / s.dim }

// Live returns the number of points that are not deleted.
func (s *Store) Live() int { return s.Len() - int(s.deleted.GetCardinality()) }

// Contains reports whether id is inside the identity space.
func (s *Store) Contains(id uint32) bool { return uint64(id) < uint64(s.Len()) }

// IsLive reports whether id exists and is not deleted.
func (s *Store) IsLive(id uint32) bool {
	return s.Contains(id) && !s.deleted.Contains(id)
}

// Delete tombstones id. It returns false if id was unknown or already deleted.
func (s *Store) Delete(id uint32) bool {
	if !s.IsLive(id) {
		return false
	}
	s.deleted.Add(id)
	return true
}

// Deleted returns the tombstone bitmap. Callers must not modify it.
func (s *Store) Deleted() *roaring.Bitmap { return s.deleted }

// Vector returns the row for id without copying. The caller must check Contains.
func (s *Store) Vector(id uint32) []float32 {
	off := int(id) * s.dim
	return s.data[off : off+s.dim : off+s.dim]
}

// Data returns the flat backing array. Callers must not modify it.
func (s *Store) Data() []float32 { return s.data }

// Distance returns the Euclidean distance between two stored points.
func (s *Store) Distance(a, b uint32) float64 {
	return distance.Euclidean(s.Vector(a), s.Vector(b))
}

// DistanceTo returns the Euclidean distance between q and a stored point.
// q must have the store's dimension.
func (s *Store) DistanceTo(q []float32, id uint32) float64 {
	return distance.Euclidean(q, s.Vector(id))
}
