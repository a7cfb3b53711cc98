package tree

import (
	"bytes"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/covertree/internal/pointstore"
	"github.com/hupe1980/covertree/persistence"
)

// Payload layout, little-endian:
//
//	float64 base
//	int32   truncation
//	uint32  dimension
//	uint32  identity space size
//	bytes   tombstones (uint32 length + roaring portable format)
//	float32 identity space size * dimension values
//	uint32  node count
//	nodes in preorder: uint32 point, int32 level,
//	                   uint32 member count, members, uint32 child count
//
// maxDist is not stored. Decode recomputes it exactly from the points.

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", persistence.ErrCorrupt, fmt.Sprintf(format, args...))
}

// Encode returns the deterministic payload of the tree.
func (t *Tree) Encode() ([]byte, error) {
	tombstones := t.points.Deleted().Clone()
	tombstones.RunOptimize()
	var tb bytes.Buffer
	if _, err := tombstones.WriteTo(&tb); err != nil {
		return nil, err
	}

	nodes := len(t.nodes) - int(t.free.GetCardinality())
	w := persistence.NewWriter(32 + tb.Len() + 4*len(t.points.Data()) + 16*nodes + 4*t.points.Live())

	w.WriteFloat64(t.base)
	w.WriteInt32(int32(t.truncation))
	w.WriteUint32(uint32(t.points.Dimension()))
	w.WriteUint32(uint32(t.points.Len()))
	w.WriteBytes(tb.Bytes())
	w.WriteFloat32Slice(t.points.Data())

	if t.root == nilNode {
		w.WriteUint32(0)
		return w.Bytes(), nil
	}

	w.WriteUint32(uint32(nodes))
	stack := []uint32{t.root}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[idx]
		w.WriteUint32(n.point)
		w.WriteInt32(n.level)
		w.WriteUint32(uint32(len(n.members)))
		w.WriteUint32Slice(n.members)
		w.WriteUint32(uint32(len(n.children)))

		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, n.children[i])
		}
	}
	return w.Bytes(), nil
}

// Decode rebuilds a tree from an Encode payload. Every structural problem is
// reported as an error wrapping persistence.ErrCorrupt; no partially built
// tree is returned.
func Decode(payload []byte) (*Tree, error) {
	r := persistence.NewReader(payload)

	base, err := r.ReadFloat64()
	if err != nil {
		return nil, err
	}
	trunc, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	dim, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	ids, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}

	cfg := Config{Base: base, Truncation: int(trunc)}
	if err := cfg.validate(); err != nil {
		return nil, corrupt("%v", err)
	}
	if dim == 0 {
		return nil, corrupt("zero dimension")
	}

	tb, err := r.ReadBytes()
	if err != nil {
		return nil, err
	}
	tombstones, err := decodeTombstones(tb)
	if err != nil {
		return nil, err
	}

	data, err := r.ReadFloat32Slice(uint64(ids) * uint64(dim))
	if err != nil {
		return nil, err
	}
	points, err := pointstore.FromFlat(int(dim), data, tombstones)
	if err != nil {
		return nil, corrupt("points: %v", err)
	}
	if points.Len() != int(ids) {
		return nil, corrupt("identity space %d, decoded %d rows", ids, points.Len())
	}

	t, err := newTree(points, cfg)
	if err != nil {
		return nil, corrupt("%v", err)
	}

	count, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if uint64(count) > uint64(points.Live()) {
		return nil, corrupt("%d nodes for %d live points", count, points.Live())
	}
	if count == 0 && points.Live() > 0 {
		return nil, corrupt("no nodes for %d live points", points.Live())
	}

	if count > 0 {
		if err := t.decodeNodes(r, count); err != nil {
			return nil, err
		}
	}
	if err := r.ExpectEOF(); err != nil {
		return nil, err
	}

	t.recomputeBounds()
	if err := t.Verify(); err != nil {
		return nil, corrupt("%v", err)
	}
	return t, nil
}

func decodeTombstones(b []byte) (bm *roaring.Bitmap, err error) {
	defer func() {
		if r := recover(); r != nil {
			bm, err = nil, corrupt("tombstones: %v", r)
		}
	}()

	bm = roaring.New()
	n, err := bm.ReadFrom(bytes.NewReader(b))
	if err != nil {
		return nil, corrupt("tombstones: %v", err)
	}
	if n != int64(len(b)) {
		return nil, corrupt("tombstones: %d of %d bytes used", n, len(b))
	}
	return bm, nil
}

type pending struct {
	idx      uint32
	children uint32
	depth    int
}

func (t *Tree) decodeNodes(r *persistence.Reader, count uint32) error {
	seen := roaring.New()
	var stack []pending
	declared := uint64(0) // children announced but not read yet

	for read := uint32(0); read < count; read++ {
		parent := uint32(nilNode)
		depth := 0
		if read > 0 {
			for len(stack) > 0 && stack[len(stack)-1].children == 0 {
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				return corrupt("node %d has no parent", read)
			}
			top := &stack[len(stack)-1]
			top.children--
			declared--
			parent, depth = top.idx, top.depth+1
		}

		point, err := r.ReadUint32()
		if err != nil {
			return err
		}
		level, err := r.ReadInt32()
		if err != nil {
			return err
		}
		nm, err := r.ReadUint32()
		if err != nil {
			return err
		}
		members, err := r.ReadUint32Slice(uint64(nm))
		if err != nil {
			return err
		}
		nc, err := r.ReadUint32()
		if err != nil {
			return err
		}

		for _, id := range append([]uint32{point}, members...) {
			if !t.points.IsLive(id) {
				return corrupt("node %d references unknown or removed point %d", read, id)
			}
			if !seen.CheckedAdd(id) {
				return corrupt("point %d appears twice", id)
			}
		}
		if parent != nilNode && level >= t.nodes[parent].level {
			return corrupt("node %d level %d not below parent level %d", read, level, t.nodes[parent].level)
		}
		if t.truncation >= 0 && depth > t.truncation {
			return corrupt("node %d at depth %d exceeds truncation %d", read, depth, t.truncation)
		}

		declared += uint64(nc)
		if declared > uint64(count-read-1) {
			return corrupt("node %d declares %d children, only %d nodes remain", read, nc, count-read-1)
		}

		idx := t.alloc(point, level, parent)
		if parent == nilNode {
			t.root = idx
		}
		for _, m := range members {
			t.addMember(idx, m)
		}
		stack = append(stack, pending{idx: idx, children: nc, depth: depth})
	}

	if declared != 0 {
		return corrupt("%d declared children missing", declared)
	}
	return nil
}

// recomputeBounds sets every maxDist to the exact largest distance from the
// node's point to a point held in its subtree.
func (t *Tree) recomputeBounds() {
	for i := range t.nodes {
		t.nodes[i].maxDist = 0
	}
	for id, idx := range t.where {
		if idx == nilNode {
			continue
		}
		for a := idx; a != nilNode; a = t.nodes[a].parent {
			n := &t.nodes[a]
			n.maxDist = max(n.maxDist, t.points.Distance(uint32(id), n.point))
		}
	}
}
