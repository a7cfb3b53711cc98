package covertree

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordBuild is called after Build, Decode and Load with the number of
	// points in the resulting tree.
	RecordBuild(points int, duration time.Duration, err error)

	// RecordInsert is called after each insert operation.
	RecordInsert(duration time.Duration, err error)

	// RecordRemove is called after each remove operation.
	RecordRemove(duration time.Duration, err error)

	// RecordSearch is called after each single or batch query.
	// queries is 1 for single queries.
	RecordSearch(queries, k int, duration time.Duration, err error)

	// RecordAnomaly is called once per replaced out-of-range identity.
	RecordAnomaly()
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(int, time.Duration, error)       {}
func (NoopMetricsCollector) RecordInsert(time.Duration, error)           {}
func (NoopMetricsCollector) RecordRemove(time.Duration, error)           {}
func (NoopMetricsCollector) RecordSearch(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordAnomaly()                              {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	BuildCount       atomic.Int64
	BuildErrors      atomic.Int64
	BuildPoints      atomic.Int64
	InsertCount      atomic.Int64
	InsertErrors     atomic.Int64
	InsertTotalNanos atomic.Int64
	RemoveCount      atomic.Int64
	RemoveErrors     atomic.Int64
	SearchCount      atomic.Int64
	SearchQueries    atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	AnomalyCount     atomic.Int64
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(points int, _ time.Duration, err error) {
	b.BuildCount.Add(1)
	if err != nil {
		b.BuildErrors.Add(1)
		return
	}
	b.BuildPoints.Add(int64(points))
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(duration time.Duration, err error) {
	b.InsertCount.Add(1)
	b.InsertTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(_ time.Duration, err error) {
	b.RemoveCount.Add(1)
	if err != nil {
		b.RemoveErrors.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(queries, _ int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchQueries.Add(int64(queries))
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordAnomaly implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAnomaly() {
	b.AnomalyCount.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BuildCount:     b.BuildCount.Load(),
		BuildErrors:    b.BuildErrors.Load(),
		BuildPoints:    b.BuildPoints.Load(),
		InsertCount:    b.InsertCount.Load(),
		InsertErrors:   b.InsertErrors.Load(),
		InsertAvgNanos: avg(b.InsertTotalNanos.Load(), b.InsertCount.Load()),
		RemoveCount:    b.RemoveCount.Load(),
		RemoveErrors:   b.RemoveErrors.Load(),
		SearchCount:    b.SearchCount.Load(),
		SearchQueries:  b.SearchQueries.Load(),
		SearchErrors:   b.SearchErrors.Load(),
		SearchAvgNanos: avg(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		AnomalyCount:   b.AnomalyCount.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BuildCount     int64
	BuildErrors    int64
	BuildPoints    int64
	InsertCount    int64
	InsertErrors   int64
	InsertAvgNanos int64
	RemoveCount    int64
	RemoveErrors   int64
	SearchCount    int64
	SearchQueries  int64
	SearchErrors   int64
	SearchAvgNanos int64
	AnomalyCount   int64
}
