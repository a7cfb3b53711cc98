package pointstore

import (
	"errors"
	"math"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRows(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		_, err := FromRows(nil)
		assert.ErrorIs(t, err, ErrEmpty)
	})

	t.Run("ZeroDimension", func(t *testing.T) {
		_, err := FromRows([][]float32{{}})
		assert.ErrorIs(t, err, ErrInvalidDimension)
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		_, err := FromRows([][]float32{{1, 2}, {3}})
		var dm *ErrDimensionMismatch
		require.True(t, errors.As(err, &dm))
		assert.Equal(t, 2, dm.Expected)
		assert.Equal(t, 1, dm.Actual)
		assert.Equal(t, 1, dm.Row)
	})

	t.Run("NaN", func(t *testing.T) {
		_, err := FromRows([][]float32{{1}, {float32(math.NaN())}})
		assert.ErrorIs(t, err, ErrNonFinite)
	})

	t.Run("CopiesInput", func(t *testing.T) {
		rows := [][]float32{{1, 2}, {3, 4}}
		s, err := FromRows(rows)
		require.NoError(t, err)
		rows[0][0] = 100
		assert.Equal(t, []float32{1, 2}, s.Vector(0))
		assert.Equal(t, 2, s.Len())
		assert.Equal(t, 2, s.Dimension())
	})
}

func TestAppendAndDelete(t *testing.T) {
	s, err := FromRows([][]float32{{0}, {1}})
	require.NoError(t, err)

	id, err := s.Append([]float32{2})
	require.NoError(t, err)
	assert.Equal(t, uint32(2), id)
	assert.Equal(t, 3, s.Live())

	_, err = s.Append([]float32{1, 2})
	var dm *ErrDimensionMismatch
	assert.ErrorAs(t, err, &dm)

	_, err = s.Append([]float32{float32(math.Inf(1))})
	assert.ErrorIs(t, err, ErrNonFinite)

	assert.True(t, s.Delete(1))
	assert.False(t, s.Delete(1))
	assert.False(t, s.Delete(99))
	assert.False(t, s.IsLive(1))
	assert.True(t, s.Contains(1))
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 2, s.Live())

	// Identities are never reused.
	id, err = s.Append([]float32{5})
	require.NoError(t, err)
	assert.Equal(t, uint32(3), id)
}

func TestDistance(t *testing.T) {
	s, err := FromRows([][]float32{{0, 0}, {3, 4}})
	require.NoError(t, err)

	assert.InDelta(t, 5.0, s.Distance(0, 1), 1e-9)
	assert.InDelta(t, 5.0, s.DistanceTo([]float32{6, 8}, 1), 1e-9)
}

func TestFromFlat(t *testing.T) {
	deleted := roaring.BitmapOf(1)
	s, err := FromFlat(2, []float32{0, 0, 1, 1}, deleted)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 1, s.Live())

	_, err = FromFlat(2, []float32{0, 0, 1}, nil)
	assert.Error(t, err)

	_, err = FromFlat(1, []float32{0}, roaring.BitmapOf(4))
	assert.Error(t, err)

	_, err = FromFlat(0, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidDimension)
}
