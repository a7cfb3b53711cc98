package tree

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/covertree/internal/pointstore"
)

const (
	nilNode = math.MaxUint32

	// DefaultBase is the expansion base of covering radii.
	DefaultBase = 2.0

	// Unbounded disables truncation.
	Unbounded = -1

	// slack absorbs rounding when comparing triangle-inequality bounds.
	slack = 1e-9
)

var (
	// ErrInvalidBase is returned for a base that is not finite or below 2.
	ErrInvalidBase = errors.New("tree: base must be finite and >= 2")

	// ErrInvalidTruncation is returned for truncation below -1.
	ErrInvalidTruncation = errors.New("tree: truncation must be >= -1")

	// ErrNotFound is returned when removing an unknown or already removed point.
	ErrNotFound = errors.New("tree: point not found")

	// ErrInvalidK is returned for a non-positive k or a k the tree cannot satisfy.
	ErrInvalidK = errors.New("tree: invalid k")

	// ErrEmpty is returned by queries on a tree without live points.
	ErrEmpty = errors.New("tree: no live points")

	// ErrInvariant is returned by Verify.
	ErrInvariant = errors.New("tree: invariant violated")
)

// Config holds the structural parameters of a tree.
type Config struct {
	Base       float64
	Truncation int
}

func (c Config) validate() error {
	if math.IsNaN(c.Base) || math.IsInf(c.Base, 0) || c.Base < 2 {
		return fmt.Errorf("%w: %v", ErrInvalidBase, c.Base)
	}
	if c.Truncation < Unbounded {
		return fmt.Errorf("%w: %d", ErrInvalidTruncation, c.Truncation)
	}
	if c.Truncation > math.MaxInt32 {
		return fmt.Errorf("%w: %d", ErrInvalidTruncation, c.Truncation)
	}
	return nil
}

// Neighbor is a query result.
type Neighbor struct {
	ID       uint32
	Distance float64
}

type node struct {
	point    uint32
	level    int32
	parent   uint32
	maxDist  float64 // upper bound on the distance from point to anything below
	children []uint32
	members  []uint32
}

// Tree is a cover tree over the live points of a store.
type Tree struct {
	points     *pointstore.Store
	base       float64
	logBase    float64
	truncation int

	nodes []node
	free  *roaring.Bitmap
	root  uint32

	// where maps a point identity to the arena slot holding it, as node point
	// or member. Removed identities map to nilNode.
	where []uint32
}

func newTree(points *pointstore.Store, cfg Config) (*Tree, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	where := make([]uint32, points.Len(), max(points.Len(), 16))
	for i := range where {
		where[i] = nilNode
	}

	return &Tree{
		points:     points,
		base:       cfg.Base,
		logBase:    math.Log(cfg.Base),
		truncation: cfg.Truncation,
		nodes:      make([]node, 0, points.Live()),
		free:       roaring.New(),
		root:       nilNode,
		where:      where,
	}, nil
}

// Build constructs a tree over every live point of points. The root is the
// lowest live identity; the remaining points are inserted in identity order.
// The tree takes ownership of points.
func Build(points *pointstore.Store, cfg Config) (*Tree, error) {
	t, err := newTree(points, cfg)
	if err != nil {
		return nil, err
	}
	if points.Live() == 0 {
		return t, nil
	}

	first := -1
	var far float64
	for id := range points.Len() {
		if !points.IsLive(uint32(id)) {
			continue
		}
		if first < 0 {
			first = id
			continue
		}
		far = max(far, points.Distance(uint32(first), uint32(id)))
	}

	t.root = t.alloc(uint32(first), t.levelFor(far), nilNode)
	for id := first + 1; id < points.Len(); id++ {
		if points.IsLive(uint32(id)) {
			t.insert(uint32(id))
		}
	}
	return t, nil
}

// Points returns the backing store.
func (t *Tree) Points() *pointstore.Store { return t.points }

// Base returns the expansion base.
func (t *Tree) Base() float64 { return t.base }

// Truncation returns the depth bound, or Unbounded.
func (t *Tree) Truncation() int { return t.truncation }

// Len returns the number of live points.
func (t *Tree) Len() int { return t.points.Live() }

// covdist returns the covering radius of a level.
func (t *Tree) covdist(level int32) float64 {
	return math.Pow(t.base, float64(level))
}

// levelFor returns the smallest level whose covering radius is at least d.
func (t *Tree) levelFor(d float64) int32 {
	if d <= 0 {
		return 0
	}
	l := math.Ceil(math.Log(d) / t.logBase)
	l = max(min(l, math.MaxInt32-1), math.MinInt32+1)
	level := int32(l)
	for level < math.MaxInt32-1 && t.covdist(level) < d {
		level++
	}
	for level > math.MinInt32+1 && t.covdist(level-1) >= d {
		level--
	}
	return level
}

func (t *Tree) alloc(point uint32, level int32, parent uint32) uint32 {
	n := node{point: point, level: level, parent: parent}

	var idx uint32
	if !t.free.IsEmpty() {
		idx = t.free.Minimum()
		t.free.Remove(idx)
		t.nodes[idx] = n
	} else {
		idx = uint32(len(t.nodes))
		t.nodes = append(t.nodes, n)
	}

	t.setWhere(point, idx)
	if parent != nilNode {
		t.nodes[parent].children = append(t.nodes[parent].children, idx)
	}
	return idx
}

func (t *Tree) release(idx uint32) {
	t.nodes[idx] = node{point: nilNode, parent: nilNode}
	t.free.Add(idx)
}

func (t *Tree) setWhere(id, idx uint32) {
	for uint64(len(t.where)) <= uint64(id) {
		t.where = append(t.where, nilNode)
	}
	t.where[id] = idx
}

func (t *Tree) addMember(idx, id uint32) {
	t.nodes[idx].members = append(t.nodes[idx].members, id)
	t.setWhere(id, idx)
}

func (t *Tree) depthOf(idx uint32) int {
	d := 0
	for p := t.nodes[idx].parent; p != nilNode; p = t.nodes[p].parent {
		d++
	}
	return d
}

func removeValue(s []uint32, v uint32) []uint32 {
	if i := slices.Index(s, v); i >= 0 {
		return slices.Delete(s, i, i+1)
	}
	return s
}
