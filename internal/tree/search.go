package tree

import (
	"cmp"
	"math"
	"slices"

	"github.com/hupe1980/covertree/distance"
	"github.com/hupe1980/covertree/internal/pointstore"
	"github.com/hupe1980/covertree/internal/queue"
)

type candidate struct {
	node uint32
	dist float64
}

// searchState tracks the current pruning bound of a query.
type searchState interface {
	consider(id uint32, d float64)
	bound() float64
}

type nearestState struct {
	best Neighbor
}

func (s *nearestState) consider(id uint32, d float64) {
	if d < s.best.Distance || (d == s.best.Distance && id < s.best.ID) {
		s.best = Neighbor{ID: id, Distance: d}
	}
}

func (s *nearestState) bound() float64 { return s.best.Distance }

type knnState struct {
	k  int
	pq *queue.PriorityQueue
}

func (s *knnState) consider(id uint32, d float64) {
	s.pq.Offer(queue.PriorityQueueItem{ID: id, Distance: d}, s.k)
}

func (s *knnState) bound() float64 {
	if s.pq.Len() < s.k {
		return math.Inf(1)
	}
	top, _ := s.pq.TopItem()
	return top.Distance
}

func (t *Tree) checkQuery(q []float32) error {
	if len(q) != t.points.Dimension() {
		return &pointstore.ErrDimensionMismatch{Expected: t.points.Dimension(), Actual: len(q), Row: -1}
	}
	if !distance.IsFinite(q) {
		return pointstore.ErrNonFinite
	}
	return nil
}

// Nearest returns the live point closest to q. Ties go to the lower identity.
func (t *Tree) Nearest(q []float32) (Neighbor, error) {
	if err := t.checkQuery(q); err != nil {
		return Neighbor{}, err
	}
	if t.root == nilNode {
		return Neighbor{}, ErrEmpty
	}

	s := &nearestState{best: Neighbor{ID: nilNode, Distance: math.Inf(1)}}
	t.search(q, s)
	return s.best, nil
}

// KNearest returns up to k live points closest to q, ascending by distance
// and then by identity. Fewer than k results mean the tree holds fewer live
// points.
func (t *Tree) KNearest(q []float32, k int) ([]Neighbor, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if err := t.checkQuery(q); err != nil {
		return nil, err
	}
	if t.root == nilNode {
		return []Neighbor{}, nil
	}

	limit := min(k, t.points.Live())
	s := &knnState{k: limit, pq: queue.NewMax(limit)}
	t.search(q, s)

	items := s.pq.Sorted()
	out := make([]Neighbor, len(items))
	for i, it := range items {
		out[i] = Neighbor{ID: it.ID, Distance: it.Distance}
	}
	return out, nil
}

// search is a depth-first branch-and-bound walk. Children are expanded
// nearest first; a subtree is skipped when even its closest possible point
// cannot beat the bound.
func (t *Tree) search(q []float32, s searchState) {
	stack := []candidate{{node: t.root, dist: t.points.DistanceTo(q, t.nodes[t.root].point)}}

	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[c.node]
		if lowerBound(c.dist, n.maxDist) > s.bound() {
			continue
		}

		s.consider(n.point, c.dist)
		for _, m := range n.members {
			s.consider(m, t.points.DistanceTo(q, m))
		}

		if len(n.children) == 0 {
			continue
		}

		mark := len(stack)
		for _, ch := range n.children {
			stack = append(stack, candidate{node: ch, dist: t.points.DistanceTo(q, t.nodes[ch].point)})
		}

		// Farthest first, so the nearest child is popped next.
		slices.SortFunc(stack[mark:], func(a, b candidate) int {
			if c := cmp.Compare(b.dist, a.dist); c != 0 {
				return c
			}
			return cmp.Compare(t.nodes[b.node].point, t.nodes[a.node].point)
		})
	}
}

// lowerBound is the smallest distance any point below a node at distance d
// with radius r can have, loosened by a rounding allowance.
func lowerBound(d, r float64) float64 {
	return d - r - slack*(d+r)
}
