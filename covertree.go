package covertree

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/covertree/internal/pointstore"
	"github.com/hupe1980/covertree/internal/tree"
)

// Unbounded disables truncation: the tree may grow to any depth.
const Unbounded = tree.Unbounded

// Neighbor is a query result: a point identity and its Euclidean distance
// to the query.
type Neighbor struct {
	ID       uint32
	Distance float64
}

// searcher is the query surface of the index. Results pass through identity
// validation before they reach callers.
type searcher interface {
	Nearest(q []float32) (tree.Neighbor, error)
	KNearest(q []float32, k int) ([]tree.Neighbor, error)
}

// Tree is a cover tree over a growing set of float32 points.
//
// Queries, SpreadOut, MarshalBinary, Stats and Verify share a read lock and
// run concurrently. Insert, Remove and Close take the write lock.
type Tree struct {
	mu     sync.RWMutex
	t      *tree.Tree
	search searcher
	closed bool

	opts      options
	logger    *Logger
	metrics   MetricsCollector
	anomalies atomic.Int64
}

// Build indexes points, which must be non-empty rows of one dimension with
// finite values. Identities are the row indices. truncation bounds the
// depth of the tree; Unbounded (-1) keeps every level.
//
// Rows are copied; the caller may reuse them.
func Build(points [][]float32, truncation int, optFns ...Option) (*Tree, error) {
	start := time.Now()
	ctx := context.Background()

	opts, err := applyOptions(optFns)
	if err != nil {
		return nil, err
	}

	t, err := buildTree(points, truncation, opts)
	opts.metricsCollector.RecordBuild(len(points), time.Since(start), err)
	opts.logger.LogBuild(ctx, "build", len(points), truncation, err)
	if err != nil {
		return nil, err
	}
	return newTree(t, opts), nil
}

func buildTree(points [][]float32, truncation int, opts options) (*tree.Tree, error) {
	store, err := pointstore.FromRows(points)
	if err != nil {
		return nil, translateError(err)
	}
	t, err := tree.Build(store, tree.Config{Base: opts.base, Truncation: truncation})
	if err != nil {
		return nil, translateError(err)
	}
	return t, nil
}

func newTree(t *tree.Tree, opts options) *Tree {
	return &Tree{
		t:       t,
		search:  t,
		opts:    opts,
		logger:  opts.logger,
		metrics: opts.metricsCollector,
	}
}

// Insert adds v under the next identity and returns it.
func (t *Tree) Insert(v []float32) (uint32, error) {
	start := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, ErrClosed
	}

	id, err := t.t.Insert(v)
	err = translateError(err)
	t.metrics.RecordInsert(time.Since(start), err)
	t.logger.LogInsert(context.Background(), id, len(v), err)
	return id, err
}

// Remove deletes a live point. The tree repairs itself before Remove
// returns; the identity is never reused.
func (t *Tree) Remove(id uint32) error {
	start := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}

	err := translateError(t.t.Remove(id))
	t.metrics.RecordRemove(time.Since(start), err)
	t.logger.LogRemove(context.Background(), id, err)
	return err
}

// NearestNeighbor returns the live point closest to q. Ties go to the lower
// identity. It fails with ErrNotFound when no live point remains.
func (t *Tree) NearestNeighbor(q []float32) (Neighbor, error) {
	start := time.Now()
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return Neighbor{}, ErrClosed
	}

	rep := t.newAnomalyReporter(context.Background())
	n, err := t.nearestRow(rep, 0, q)
	rep.finish()
	t.metrics.RecordSearch(1, 1, time.Since(start), err)
	return n, err
}

// KNearestNeighbors returns the k live points closest to q, ascending by
// distance and then by identity. When fewer than k live points exist, all of
// them are returned.
func (t *Tree) KNearestNeighbors(q []float32, k int) ([]Neighbor, error) {
	start := time.Now()
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return nil, ErrClosed
	}

	rep := t.newAnomalyReporter(context.Background())
	res, err := t.knearestRow(rep, 0, q, k)
	rep.finish()
	t.metrics.RecordSearch(1, k, time.Since(start), err)
	return res, err
}

// SpreadOut returns k identities chosen by farthest-point sampling, starting
// at the root's point. k must be between 1 and Len.
func (t *Tree) SpreadOut(k int) ([]uint32, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return nil, ErrClosed
	}

	seeds, err := t.t.SpreadOut(k)
	if err != nil {
		return nil, translateError(err)
	}
	return seeds, nil
}

// SpreadOutVectors is SpreadOut returning copies of the chosen points, ready
// to use as initial k-means centroids.
func (t *Tree) SpreadOutVectors(k int) ([][]float32, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return nil, ErrClosed
	}

	seeds, err := t.t.SpreadOut(k)
	if err != nil {
		return nil, translateError(err)
	}
	points := t.t.Points()
	out := make([][]float32, len(seeds))
	for i, id := range seeds {
		out[i] = append([]float32(nil), points.Vector(id)...)
	}
	return out, nil
}

// Vector returns a copy of a live point.
func (t *Tree) Vector(id uint32) ([]float32, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return nil, ErrClosed
	}

	points := t.t.Points()
	if !points.IsLive(id) {
		return nil, ErrNotFound
	}
	return append([]float32(nil), points.Vector(id)...), nil
}

// Verify checks every structural invariant of the tree. It is exhaustive
// and meant for tests and diagnostics.
func (t *Tree) Verify() error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return ErrClosed
	}
	return t.t.Verify()
}

// Stats summarizes a tree.
type Stats struct {
	tree.Stats

	// Anomalies counts out-of-range identities replaced since the tree was
	// built or loaded.
	Anomalies int64
}

// Stats walks the tree and reports its shape.
func (t *Tree) Stats() (Stats, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return Stats{}, ErrClosed
	}
	return Stats{Stats: t.t.Stats(), Anomalies: t.anomalies.Load()}, nil
}

// Len returns the number of live points, or 0 after Close.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return 0
	}
	return t.t.Len()
}

// Dimension returns the length of every point.
func (t *Tree) Dimension() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return 0
	}
	return t.t.Points().Dimension()
}

// Anomalies returns how many out-of-range identities queries have replaced.
func (t *Tree) Anomalies() int64 {
	return t.anomalies.Load()
}

// Close releases the index. Later calls return ErrClosed; closing twice is
// a no-op.
func (t *Tree) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	t.t = nil
	t.search = nil
	return nil
}
