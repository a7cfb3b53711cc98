package tree

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/covertree/internal/queue"
)

// spread caches, per point, the distance to the closest seed seen so far.
// Entries are refreshed lazily against the seeds added since the last look.
type spread struct {
	t       *Tree
	seeds   []uint32
	minDist []float64
	seen    []int
	chosen  *roaring.Bitmap
}

func (s *spread) refresh(id uint32) float64 {
	for ; s.seen[id] < len(s.seeds); s.seen[id]++ {
		if d := s.t.points.Distance(id, s.seeds[s.seen[id]]); d < s.minDist[id] {
			s.minDist[id] = d
		}
	}
	return s.minDist[id]
}

func (s *spread) add(id uint32) {
	s.seeds = append(s.seeds, id)
	s.chosen.Add(id)
}

// SpreadOut picks k well separated points by farthest-point sampling. The
// first seed is the root's point; every following seed is the unchosen point
// whose distance to its closest seed is largest, ties going to the lower
// identity.
func (t *Tree) SpreadOut(k int) ([]uint32, error) {
	live := t.points.Live()
	if k <= 0 || k > live {
		return nil, fmt.Errorf("%w: k=%d with %d live points", ErrInvalidK, k, live)
	}

	n := t.points.Len()
	s := &spread{
		t:       t,
		seeds:   make([]uint32, 0, k),
		minDist: make([]float64, n),
		seen:    make([]int, n),
		chosen:  roaring.New(),
	}
	for i := range s.minDist {
		s.minDist[i] = math.Inf(1)
	}

	s.add(t.nodes[t.root].point)
	for len(s.seeds) < k {
		s.add(t.farthest(s))
	}
	return s.seeds, nil
}

// farthest runs a best-first walk over nodes keyed by an upper bound on the
// seed distance of anything in their subtree.
func (t *Tree) farthest(s *spread) uint32 {
	bestID := uint32(nilNode)
	bestVal := -1.0

	consider := func(id uint32) {
		if s.chosen.Contains(id) {
			return
		}
		v := s.refresh(id)
		if v > bestVal || (v == bestVal && id < bestID) {
			bestID, bestVal = id, v
		}
	}
	upper := func(idx uint32) float64 {
		n := &t.nodes[idx]
		ub := s.refresh(n.point) + n.maxDist
		return ub + slack*ub
	}

	pq := queue.NewMax(64)
	pq.PushItem(queue.PriorityQueueItem{ID: t.root, Distance: upper(t.root)})

	for pq.Len() > 0 {
		top, _ := pq.PopItem()
		if top.Distance < bestVal {
			break
		}

		n := &t.nodes[top.ID]
		consider(n.point)
		for _, m := range n.members {
			consider(m)
		}
		for _, c := range n.children {
			if ub := upper(c); ub >= bestVal {
				pq.PushItem(queue.PriorityQueueItem{ID: c, Distance: ub})
			}
		}
	}
	return bestID
}
