package store

import (
	"sync/atomic"
	"time"

	"github.com/heysubinoy/keyvaluestore/pkg/kv"
)

// Metrics holds counters and timing statistics for store operations.
// Uses atomic operations for thread-safe updates without locks.
type Metrics struct {
	GetCount  atomic.Uint64
	GetMisses atomic.Uint64
	PutCount  atomic.Uint64

	ReadDenied  atomic.Uint64
	WriteDenied atomic.Uint64

	// Cumulative latencies in nanoseconds
	GetLatencyNs atomic.Uint64
	PutLatencyNs atomic.Uint64
}

// InstrumentedStore wraps any kv.Store implementation with timing metrics.
type InstrumentedStore struct {
	store   kv.Store
	metrics *Metrics
}

// Compile-time check to ensure InstrumentedStore implements kv.Store.
var _ kv.Store = (*InstrumentedStore)(nil)

// NewInstrumentedStore wraps a store with instrumentation.
func NewInstrumentedStore(store kv.Store) *InstrumentedStore {
	return &InstrumentedStore{
		store:   store,
		metrics: &Metrics{},
	}
}

// Get delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Get(key string) (kv.Entry, bool) {
	start := time.Now()
	entry, found := s.store.Get(key)
	elapsed := time.Since(start).Nanoseconds()

	s.metrics.GetCount.Add(1)
	s.metrics.GetLatencyNs.Add(uint64(elapsed))
	if !found {
		s.metrics.GetMisses.Add(1)
	}

	return entry, found
}

// Put delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Put(key, value string) {
	start := time.Now()
	s.store.Put(key, value)
	elapsed := time.Since(start).Nanoseconds()

	s.metrics.PutCount.Add(1)
	s.metrics.PutLatencyNs.Add(uint64(elapsed))
}

// Authorized delegates to the wrapped store and counts rejected tokens.
func (s *InstrumentedStore) Authorized(op kv.Op, token string) bool {
	ok := s.store.Authorized(op, token)
	if !ok {
		switch op {
		case kv.OpRead:
			s.metrics.ReadDenied.Add(1)
		case kv.OpWrite:
			s.metrics.WriteDenied.Add(1)
		}
	}
	return ok
}

// GetMetrics returns a snapshot of current metrics.
func (s *InstrumentedStore) GetMetrics() MetricsSnapshot {
	getCount := s.metrics.GetCount.Load()
	putCount := s.metrics.PutCount.Load()

	snap := MetricsSnapshot{
		GetCount:      getCount,
		GetMisses:     s.metrics.GetMisses.Load(),
		PutCount:      putCount,
		ReadDenied:    s.metrics.ReadDenied.Load(),
		WriteDenied:   s.metrics.WriteDenied.Load(),
		GetAvgLatency: s.avgLatency(s.metrics.GetLatencyNs.Load(), getCount),
		PutAvgLatency: s.avgLatency(s.metrics.PutLatencyNs.Load(), putCount),
	}
	if l, ok := s.store.(interface{ Len() int }); ok {
		snap.Keys = l.Len()
	}
	return snap
}

func (s *InstrumentedStore) avgLatency(totalNs, count uint64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(totalNs / count)
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Keys          int
	GetCount      uint64
	GetMisses     uint64
	PutCount      uint64
	ReadDenied    uint64
	WriteDenied   uint64
	GetAvgLatency time.Duration
	PutAvgLatency time.Duration
}
