package colseg

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/colseg/segment"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    commitCounter   prometheus.Counter
//	    lookupHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordCommit(duration time.Duration, buffers int, err error) {
//	    p.commitCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordCommit is called after each SaveAndClose.
	// buffers is the number of staged index buffers written.
	RecordCommit(duration time.Duration, buffers int, err error)

	// RecordAbort is called when staged changes are discarded.
	RecordAbort()

	// RecordSessionConflict is called when a reader or writer is refused.
	// requested is "reader" or "writer".
	RecordSessionConflict(requested string)

	// RecordLookup is called after a View resolves an index reader.
	RecordLookup(typ segment.ColumnIndexType, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCommit(time.Duration, int, error)                     {}
func (NoopMetricsCollector) RecordAbort()                                               {}
func (NoopMetricsCollector) RecordSessionConflict(string)                               {}
func (NoopMetricsCollector) RecordLookup(segment.ColumnIndexType, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	CommitCount      atomic.Int64
	CommitErrors     atomic.Int64
	CommitBuffers    atomic.Int64
	CommitTotalNanos atomic.Int64
	AbortCount       atomic.Int64
	ReaderConflicts  atomic.Int64
	WriterConflicts  atomic.Int64
	LookupCount      atomic.Int64
	LookupErrors     atomic.Int64
	LookupTotalNanos atomic.Int64
}

// RecordCommit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCommit(duration time.Duration, buffers int, err error) {
	b.CommitCount.Add(1)
	b.CommitTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.CommitErrors.Add(1)
		return
	}
	b.CommitBuffers.Add(int64(buffers))
}

// RecordAbort implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAbort() {
	b.AbortCount.Add(1)
}

// RecordSessionConflict implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSessionConflict(requested string) {
	if requested == "writer" {
		b.WriterConflicts.Add(1)
		return
	}
	b.ReaderConflicts.Add(1)
}

// RecordLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLookup(_ segment.ColumnIndexType, duration time.Duration, err error) {
	b.LookupCount.Add(1)
	b.LookupTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LookupErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		CommitCount:     b.CommitCount.Load(),
		CommitErrors:    b.CommitErrors.Load(),
		CommitBuffers:   b.CommitBuffers.Load(),
		CommitAvgNanos:  avg(b.CommitTotalNanos.Load(), b.CommitCount.Load()),
		AbortCount:      b.AbortCount.Load(),
		ReaderConflicts: b.ReaderConflicts.Load(),
		WriterConflicts: b.WriterConflicts.Load(),
		LookupCount:     b.LookupCount.Load(),
		LookupErrors:    b.LookupErrors.Load(),
		LookupAvgNanos:  avg(b.LookupTotalNanos.Load(), b.LookupCount.Load()),
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
	CommitCount     int64
	CommitErrors    int64
	CommitBuffers   int64
	CommitAvgNanos  int64
	AbortCount      int64
	ReaderConflicts int64
	WriterConflicts int64
	LookupCount     int64
	LookupErrors    int64
	LookupAvgNanos  int64
}
