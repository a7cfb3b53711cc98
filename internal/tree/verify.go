package tree

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}

// Verify checks every structural invariant of the tree: covering, sibling
// separation, strictly decreasing levels, the truncation depth bound, parent
// links, maxDist bounds, arena accounting and that each live point is held
// exactly once.
func (t *Tree) Verify() error {
	live := t.points.Live()
	if t.root == nilNode {
		if live != 0 {
			return violation("no root but %d live points", live)
		}
		if int(t.free.GetCardinality()) != len(t.nodes) {
			return violation("empty tree with %d allocated nodes", len(t.nodes)-int(t.free.GetCardinality()))
		}
		return nil
	}
	if uint64(t.root) >= uint64(len(t.nodes)) || t.free.Contains(t.root) {
		return violation("root %d is not an allocated node", t.root)
	}
	if t.nodes[t.root].parent != nilNode {
		return violation("root %d has parent %d", t.root, t.nodes[t.root].parent)
	}

	visited := roaring.New()
	held := roaring.New()
	reached := 0

	hold := func(id, idx uint32) error {
		if !t.points.IsLive(id) {
			return violation("node %d holds dead point %d", idx, id)
		}
		if !held.CheckedAdd(id) {
			return violation("point %d held twice", id)
		}
		if uint64(id) >= uint64(len(t.where)) || t.where[id] != idx {
			return violation("point %d is not indexed at node %d", id, idx)
		}
		reached++
		return nil
	}

	type frame struct {
		idx   uint32
		depth int
	}
	stack := []frame{{idx: t.root}}
	var path []uint32 // ancestors of the current frame, for maxDist checks

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if uint64(f.idx) >= uint64(len(t.nodes)) || t.free.Contains(f.idx) {
			return violation("reference to free or missing node %d", f.idx)
		}
		if !visited.CheckedAdd(f.idx) {
			return violation("node %d reached twice", f.idx)
		}
		if t.truncation >= 0 && f.depth > t.truncation {
			return violation("node %d at depth %d exceeds truncation %d", f.idx, f.depth, t.truncation)
		}

		path = path[:f.depth]
		path = append(path, f.idx)

		n := &t.nodes[f.idx]
		if err := hold(n.point, f.idx); err != nil {
			return err
		}
		radius := t.covdist(n.level)

		for _, m := range n.members {
			if err := hold(m, f.idx); err != nil {
				return err
			}
			if d := t.points.Distance(m, n.point); d > radius {
				return violation("member %d of node %d at %v outside radius %v", m, f.idx, d, radius)
			}
			if err := t.checkBound(path, m); err != nil {
				return err
			}
		}
		if err := t.checkBound(path[:len(path)-1], n.point); err != nil {
			return err
		}

		for i, c := range n.children {
			if uint64(c) >= uint64(len(t.nodes)) || t.free.Contains(c) {
				return violation("node %d has free or missing child %d", f.idx, c)
			}
			child := &t.nodes[c]
			if child.parent != f.idx {
				return violation("child %d of node %d points to parent %d", c, f.idx, child.parent)
			}
			if child.level >= n.level {
				return violation("child %d level %d not below parent level %d", c, child.level, n.level)
			}
			if d := t.points.Distance(child.point, n.point); d > radius {
				return violation("child %d at %v outside radius %v of node %d", c, d, radius, f.idx)
			}
			for _, o := range n.children[:i] {
				other := &t.nodes[o]
				sep := t.covdist(min(child.level, other.level))
				if d := t.points.Distance(child.point, other.point); d <= sep {
					return violation("siblings %d and %d at %v, separation %v", c, o, d, sep)
				}
			}
		}
		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, frame{idx: n.children[i], depth: f.depth + 1})
		}
	}

	if reached != live {
		return violation("%d of %d live points reachable", reached, live)
	}
	if allocated := len(t.nodes) - int(t.free.GetCardinality()); int(visited.GetCardinality()) != allocated {
		return violation("%d nodes reachable, %d allocated", visited.GetCardinality(), allocated)
	}
	return nil
}

// checkBound verifies that every node on path bounds its distance to id.
func (t *Tree) checkBound(path []uint32, id uint32) error {
	for _, a := range path {
		anc := &t.nodes[a]
		if d := t.points.Distance(id, anc.point); d > anc.maxDist {
			return violation("point %d at %v beyond maxDist %v of node %d", id, d, anc.maxDist, a)
		}
	}
	return nil
}
