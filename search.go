package covertree

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Nearest answers one nearest-neighbor query per row of queries. Rows run on
// a bounded worker pool under one read lock; cancelling ctx stops rows that
// have not started yet.
func (t *Tree) Nearest(ctx context.Context, queries [][]float32) ([]Neighbor, error) {
	start := time.Now()
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return nil, ErrClosed
	}

	out := make([]Neighbor, len(queries))
	rep := t.newAnomalyReporter(ctx)
	err := t.fanOut(ctx, len(queries), func(i int) error {
		n, err := t.nearestRow(rep, i, queries[i])
		if err != nil {
			return withRow(err, i)
		}
		out[i] = n
		return nil
	})
	rep.finish()
	t.metrics.RecordSearch(len(queries), 1, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// KNearest answers one k-nearest-neighbors query per row of queries.
// Result rows are ascending by distance and then by identity.
func (t *Tree) KNearest(ctx context.Context, queries [][]float32, k int) ([][]Neighbor, error) {
	start := time.Now()
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return nil, ErrClosed
	}
	if k <= 0 {
		err := fmt.Errorf("%w: k=%d", ErrInvalidK, k)
		t.metrics.RecordSearch(len(queries), k, time.Since(start), err)
		return nil, err
	}

	out := make([][]Neighbor, len(queries))
	rep := t.newAnomalyReporter(ctx)
	err := t.fanOut(ctx, len(queries), func(i int) error {
		res, err := t.knearestRow(rep, i, queries[i], k)
		if err != nil {
			return withRow(err, i)
		}
		out[i] = res
		return nil
	})
	rep.finish()
	t.metrics.RecordSearch(len(queries), k, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// fanOut runs fn for every row index on at most opts.workers goroutines.
func (t *Tree) fanOut(ctx context.Context, rows int, fn func(i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.opts.workers)

	for i := range rows {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (t *Tree) nearestRow(rep *anomalyReporter, row int, q []float32) (Neighbor, error) {
	n, err := t.search.Nearest(q)
	if err != nil {
		return Neighbor{}, translateError(err)
	}
	limit := t.t.Points().Len()
	if uint64(n.ID) >= uint64(limit) {
		id := rep.replace(row, 1, n.ID, limit, 0)
		return Neighbor{ID: id, Distance: t.t.Points().DistanceTo(q, id)}, nil
	}
	return Neighbor{ID: n.ID, Distance: n.Distance}, nil
}

func (t *Tree) knearestRow(rep *anomalyReporter, row int, q []float32, k int) ([]Neighbor, error) {
	raw, err := t.search.KNearest(q, k)
	if err != nil {
		return nil, translateError(err)
	}

	points := t.t.Points()
	limit := points.Len()

	// Out-of-range identities fall back to the first valid identity of
	// the row, or 0 when there is none.
	fallback := uint32(0)
	for _, n := range raw {
		if uint64(n.ID) < uint64(limit) {
			fallback = n.ID
			break
		}
	}

	out := make([]Neighbor, len(raw))
	for i, n := range raw {
		if uint64(n.ID) >= uint64(limit) {
			id := rep.replace(row, k, n.ID, limit, fallback)
			out[i] = Neighbor{ID: id, Distance: points.DistanceTo(q, id)}
			continue
		}
		out[i] = Neighbor{ID: n.ID, Distance: n.Distance}
	}
	return out, nil
}

// anomalyReporter counts replaced identities of one call and logs the first
// few of them, followed by a summary of the rest.
type anomalyReporter struct {
	t      *Tree
	ctx    context.Context
	limit  int
	warn   *rate.Sometimes
	mu     sync.Mutex
	logged int
	total  atomic.Int64
}

func (t *Tree) newAnomalyReporter(ctx context.Context) *anomalyReporter {
	return &anomalyReporter{
		t:     t,
		ctx:   ctx,
		limit: t.opts.maxAnomalyWarnings,
		warn:  &rate.Sometimes{First: t.opts.maxAnomalyWarnings},
	}
}

func (r *anomalyReporter) replace(query, k int, id uint32, limit int, replacement uint32) uint32 {
	r.total.Add(1)
	r.t.anomalies.Add(1)
	r.t.metrics.RecordAnomaly()

	// Sometimes always runs the first call, so a zero cap must skip it.
	if r.limit > 0 {
		r.warn.Do(func() {
			r.mu.Lock()
			r.logged++
			r.mu.Unlock()
			r.t.logger.LogAnomaly(r.ctx, query, k, id, limit, replacement)
		})
	}
	return replacement
}

func (r *anomalyReporter) finish() {
	r.mu.Lock()
	logged := r.logged
	r.mu.Unlock()

	if rest := r.total.Load() - int64(logged); rest > 0 {
		r.t.logger.WarnContext(r.ctx, fmt.Sprintf("%d more index anomalies", rest),
			"error", ErrIndexAnomaly,
			"count", rest,
		)
	}
}
