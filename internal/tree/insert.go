package tree

import "fmt"

// Insert appends v to the store and links it into the tree.
func (t *Tree) Insert(v []float32) (uint32, error) {
	id, err := t.points.Append(v)
	if err != nil {
		return 0, err
	}
	t.insert(id)
	return id, nil
}

// insert links a stored point below the root, raising the root level when
// the point falls outside its covering radius.
func (t *Tree) insert(id uint32) {
	if t.root == nilNode {
		t.root = t.alloc(id, 0, nilNode)
		return
	}

	root := &t.nodes[t.root]
	d := t.points.Distance(id, root.point)
	if d > t.covdist(root.level) {
		root.level = t.levelFor(d)
	}
	t.descend(t.root, 0, id, d)
}

// descend walks from cur, which covers id at distance d, to the node that
// receives id. depth is the number of edges between cur and the root.
func (t *Tree) descend(cur uint32, depth int, id uint32, d float64) {
	for {
		n := &t.nodes[cur]
		if d == 0 {
			t.addMember(cur, id)
			return
		}
		n.maxDist = max(n.maxDist, d)

		next := uint32(nilNode)
		var nextDist float64
		for _, c := range n.children {
			child := &t.nodes[c]
			dc := t.points.Distance(id, child.point)
			if dc > t.covdist(child.level) {
				continue
			}
			if next == nilNode || dc < nextDist || (dc == nextDist && child.point < t.nodes[next].point) {
				next, nextDist = c, dc
			}
		}

		if next != nilNode {
			cur, d = next, nextDist
			depth++
			continue
		}

		if t.truncation >= 0 && depth >= t.truncation {
			t.addMember(cur, id)
			return
		}
		t.alloc(id, n.level-1, cur)
		return
	}
}

// Remove unlinks id from the tree and tombstones it in the store. Points
// that hung below a removed node are re-inserted under the nearest ancestor
// that still covers them.
func (t *Tree) Remove(id uint32) error {
	if !t.points.IsLive(id) || uint64(id) >= uint64(len(t.where)) || t.where[id] == nilNode {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	idx := t.where[id]
	n := &t.nodes[idx]

	t.points.Delete(id)
	t.where[id] = nilNode

	if n.point != id {
		n.members = removeValue(n.members, id)
		return nil
	}

	for i, m := range n.members {
		if t.points.Distance(m, id) == 0 {
			n.point = m
			n.members = append(n.members[:i:i], n.members[i+1:]...)
			return nil
		}
	}

	parent := n.parent
	level := n.level
	orphans := t.detach(idx)

	if parent == nilNode {
		t.root = nilNode
		if len(orphans) == 0 {
			return nil
		}
		t.root = t.alloc(orphans[0], level, nilNode)
		for _, o := range orphans[1:] {
			t.insert(o)
		}
		return nil
	}

	for _, o := range orphans {
		t.reinsert(parent, o)
	}
	return nil
}

// detach cuts the subtree rooted at idx from its parent, frees its slots and
// returns the points it held in preorder, without the removed node's point.
func (t *Tree) detach(idx uint32) []uint32 {
	if p := t.nodes[idx].parent; p != nilNode {
		t.nodes[p].children = removeValue(t.nodes[p].children, idx)
	}

	var orphans []uint32
	stack := []uint32{idx}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := t.nodes[cur]
		if cur != idx {
			orphans = append(orphans, n.point)
		}
		orphans = append(orphans, n.members...)

		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, n.children[i])
		}
		t.release(cur)
	}

	for _, o := range orphans {
		t.where[o] = nilNode
	}
	return orphans
}

// reinsert places an orphan below the closest ancestor of from (inclusive)
// whose covering ball contains it, falling back to a root insert.
func (t *Tree) reinsert(from uint32, id uint32) {
	for anc := from; anc != nilNode; anc = t.nodes[anc].parent {
		d := t.points.Distance(id, t.nodes[anc].point)
		if d <= t.covdist(t.nodes[anc].level) {
			t.descend(anc, t.depthOf(anc), id, d)
			return
		}
	}
	t.insert(id)
}
