// Package queue provides the binary heaps used by the tree's searches.
//
// Items order by Distance and then by ID, so equal distances resolve
// deterministically: a min-heap yields the lower ID first and a max-heap keeps
// the higher ID on top, ready to be evicted.
package queue

// PriorityQueueItem represents an item in the priority queue.
type PriorityQueueItem struct {
	ID       uint32  // Point identity or arena index, depending on the search.
	Distance float64 // Distance is the priority of the item in the queue.
}

// Before reports whether a ranks strictly ahead of b in ascending order.
func (a PriorityQueueItem) Before(b PriorityQueueItem) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.ID < b.ID
}

// PriorityQueue is a binary heap of PriorityQueueItems.
type PriorityQueue struct {
	isMaxHeap bool
	items     []PriorityQueueItem
}

// NewMin initializes a new priority queue with minimum priority.
func NewMin(capacity int) *PriorityQueue {
	return &PriorityQueue{
		isMaxHeap: false,
		items:     make([]PriorityQueueItem, 0, capacity),
	}
}

// NewMax initializes a new priority queue with maximum priority.
func NewMax(capacity int) *PriorityQueue {
	return &PriorityQueue{
		isMaxHeap: true,
		items:     make([]PriorityQueueItem, 0, capacity),
	}
}

// TopItem returns the top element of the heap.
func (pq *PriorityQueue) TopItem() (PriorityQueueItem, bool) {
	if len(pq.items) == 0 {
		return PriorityQueueItem{}, false
	}
	return pq.items[0], true
}

// PushItem inserts an item while maintaining the heap invariant.
func (pq *PriorityQueue) PushItem(item PriorityQueueItem) {
	pq.items = append(pq.items, item)
	pq.siftUp(len(pq.items) - 1)
}

// PopItem removes and returns the top element while maintaining the heap invariant.
func (pq *PriorityQueue) PopItem() (PriorityQueueItem, bool) {
	n := len(pq.items)
	if n == 0 {
		return PriorityQueueItem{}, false
	}
	root := pq.items[0]
	last := pq.items[n-1]
	pq.items[n-1] = PriorityQueueItem{}
	pq.items = pq.items[:n-1]
	if n-1 > 0 {
		pq.items[0] = last
		pq.siftDown(0)
	}
	return root, true
}

// ReplaceTop overwrites the top element and restores the heap invariant.
// It is the bounded-heap fast path: one sift instead of a pop and a push.
func (pq *PriorityQueue) ReplaceTop(item PriorityQueueItem) {
	if len(pq.items) == 0 {
		pq.PushItem(item)
		return
	}
	pq.items[0] = item
	pq.siftDown(0)
}

// Offer adds item to a heap bounded to limit entries. On a full max-heap the
// item replaces the top only if it ranks ahead of it. Offer reports whether
// the item was kept.
func (pq *PriorityQueue) Offer(item PriorityQueueItem, limit int) bool {
	if len(pq.items) < limit {
		pq.PushItem(item)
		return true
	}
	if !pq.isMaxHeap || limit <= 0 {
		return false
	}
	if item.Before(pq.items[0]) {
		pq.ReplaceTop(item)
		return true
	}
	return false
}

// Sorted returns the items in ascending (Distance, ID) order.
// The queue is drained in the process.
func (pq *PriorityQueue) Sorted() []PriorityQueueItem {
	out := make([]PriorityQueueItem, len(pq.items))
	if pq.isMaxHeap {
		for i := len(out) - 1; i >= 0; i-- {
			out[i], _ = pq.PopItem()
		}
		return out
	}
	for i := range out {
		out[i], _ = pq.PopItem()
	}
	return out
}

func (pq *PriorityQueue) less(i, j int) bool {
	if pq.isMaxHeap {
		return pq.items[j].Before(pq.items[i])
	}
	return pq.items[i].Before(pq.items[j])
}

func (pq *PriorityQueue) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !pq.less(i, p) {
			return
		}
		pq.items[i], pq.items[p] = pq.items[p], pq.items[i]
		i = p
	}
}

func (pq *PriorityQueue) siftDown(i int) {
	n := len(pq.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		r := l + 1
		if r < n && pq.less(r, l) {
			best = r
		}
		if !pq.less(best, i) {
			return
		}
		pq.items[i], pq.items[best] = pq.items[best], pq.items[i]
		i = best
	}
}

// Len returns the number of elements in the priority queue.
func (pq *PriorityQueue) Len() int { return len(pq.items) }
