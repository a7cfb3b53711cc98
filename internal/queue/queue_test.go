package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinHeapOrder(t *testing.T) {
	pq := NewMin(4)
	pq.PushItem(PriorityQueueItem{ID: 3, Distance: 2})
	pq.PushItem(PriorityQueueItem{ID: 1, Distance: 1})
	pq.PushItem(PriorityQueueItem{ID: 0, Distance: 2})
	pq.PushItem(PriorityQueueItem{ID: 9, Distance: 0.5})

	var ids []uint32
	for pq.Len() > 0 {
		item, ok := pq.PopItem()
		require.True(t, ok)
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []uint32{9, 1, 0, 3}, ids)

	_, ok := pq.PopItem()
	assert.False(t, ok)
}

func TestMaxHeapTieBreak(t *testing.T) {
	pq := NewMax(2)
	pq.PushItem(PriorityQueueItem{ID: 1, Distance: 5})
	pq.PushItem(PriorityQueueItem{ID: 7, Distance: 5})

	top, ok := pq.TopItem()
	require.True(t, ok)
	// On equal distance the higher identity is the worst entry.
	assert.Equal(t, uint32(7), top.ID)
}

func TestOfferBounded(t *testing.T) {
	pq := NewMax(3)
	for i, d := range []float64{4, 1, 3, 2, 0, 3} {
		pq.Offer(PriorityQueueItem{ID: uint32(i), Distance: d}, 3)
	}
	assert.Equal(t, 3, pq.Len())

	got := pq.Sorted()
	assert.Equal(t, []PriorityQueueItem{
		{ID: 4, Distance: 0},
		{ID: 1, Distance: 1},
		{ID: 3, Distance: 2},
	}, got)
	assert.Equal(t, 0, pq.Len())
}

func TestOfferTieKeepsLowerID(t *testing.T) {
	pq := NewMax(1)
	assert.True(t, pq.Offer(PriorityQueueItem{ID: 5, Distance: 1}, 1))
	assert.True(t, pq.Offer(PriorityQueueItem{ID: 2, Distance: 1}, 1))
	assert.False(t, pq.Offer(PriorityQueueItem{ID: 8, Distance: 1}, 1))

	top, _ := pq.TopItem()
	assert.Equal(t, uint32(2), top.ID)
}

func TestReplaceTop(t *testing.T) {
	pq := NewMax(3)
	pq.ReplaceTop(PriorityQueueItem{ID: 1, Distance: 1})
	assert.Equal(t, 1, pq.Len())

	pq.PushItem(PriorityQueueItem{ID: 2, Distance: 4})
	pq.PushItem(PriorityQueueItem{ID: 3, Distance: 2})
	pq.ReplaceTop(PriorityQueueItem{ID: 4, Distance: 0})

	assert.Equal(t, []PriorityQueueItem{
		{ID: 4, Distance: 0},
		{ID: 1, Distance: 1},
		{ID: 3, Distance: 2},
	}, pq.Sorted())
}
