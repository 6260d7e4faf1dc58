package fusego

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordInsert is called after each ingestion operation.
	// count is the number of chunks attempted, err is nil if successful.
	RecordInsert(count int, duration time.Duration, err error)

	// RecordRetrieve is called after each retrieval operation.
	// topK is the number of results requested.
	RecordRetrieve(topK int, duration time.Duration, err error)

	// RecordDelete is called after each delete operation.
	RecordDelete(count int, duration time.Duration, err error)

	// RecordBuildIndex is called after each sparse index build.
	RecordBuildIndex(docCount int, duration time.Duration, err error)

	// RecordEviction is called after each eviction batch.
	RecordEviction(count int, freedBytes int64)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordRetrieve(int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordDelete(int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordBuildIndex(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordEviction(int, int64)                  {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InsertCount        atomic.Int64
	InsertItems        atomic.Int64
	InsertErrors       atomic.Int64
	RetrieveCount      atomic.Int64
	RetrieveErrors     atomic.Int64
	RetrieveTotalNanos atomic.Int64
	DeleteCount        atomic.Int64
	DeleteErrors       atomic.Int64
	BuildCount         atomic.Int64
	BuildErrors        atomic.Int64
	EvictedChunks      atomic.Int64
	EvictedBytes       atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(count int, duration time.Duration, err error) {
	b.InsertCount.Add(1)
	b.InsertItems.Add(int64(count))
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordRetrieve implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRetrieve(topK int, duration time.Duration, err error) {
	b.RetrieveCount.Add(1)
	b.RetrieveTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RetrieveErrors.Add(1)
	}
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(count int, duration time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordBuildIndex implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuildIndex(docCount int, duration time.Duration, err error) {
	b.BuildCount.Add(1)
	if err != nil {
		b.BuildErrors.Add(1)
	}
}

// RecordEviction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEviction(count int, freedBytes int64) {
	b.EvictedChunks.Add(int64(count))
	b.EvictedBytes.Add(freedBytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:       b.InsertCount.Load(),
		InsertItems:       b.InsertItems.Load(),
		InsertErrors:      b.InsertErrors.Load(),
		RetrieveCount:     b.RetrieveCount.Load(),
		RetrieveErrors:    b.RetrieveErrors.Load(),
		RetrieveAvgNanos:  b.getAvgRetrieveNanos(),
		DeleteCount:       b.DeleteCount.Load(),
		DeleteErrors:      b.DeleteErrors.Load(),
		BuildCount:        b.BuildCount.Load(),
		BuildErrors:       b.BuildErrors.Load(),
		EvictedChunks:     b.EvictedChunks.Load(),
		EvictedTotalBytes: b.EvictedBytes.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgRetrieveNanos() int64 {
	count := b.RetrieveCount.Load()
	if count == 0 {
		return 0
	}
	return b.RetrieveTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	InsertCount       int64
	InsertItems       int64
	InsertErrors      int64
	RetrieveCount     int64
	RetrieveErrors    int64
	RetrieveAvgNanos  int64
	DeleteCount       int64
	DeleteErrors      int64
	BuildCount        int64
	BuildErrors       int64
	EvictedChunks     int64
	EvictedTotalBytes int64
}
