// Package monitor tracks engine counters and latency. Counters are plain
// atomics so the intake goroutine can bump them without locks; the histogram
// takes a mutex and is only touched off the submit path's fast exit.
package monitor

import (
	"math"
	"sync/atomic"
	"time"
)

// Stats is the engine's atomic counter block. The intake and publish
// goroutines write; the monitor goroutine and the admin API read.
type Stats struct {
	OrdersReceived    atomic.Uint64
	OrdersProcessed   atomic.Uint64
	OrdersRejected    atomic.Uint64
	DuplicatesDropped atomic.Uint64
	FillsReceived     atomic.Uint64
	MessagesPublished atomic.Uint64
	QueueFullDrops    atomic.Uint64
	PoolExhausted     atomic.Uint64
	IndexFullRejects  atomic.Uint64
	UpdatesDropped    atomic.Uint64

	minLatencyNs   atomic.Uint64
	maxLatencyNs   atomic.Uint64
	totalLatencyNs atomic.Uint64
}

// NewStats builds a counter block with the min latency seeded high.
func NewStats() *Stats {
	s := &Stats{}
	s.minLatencyNs.Store(math.MaxUint64)
	return s
}

// RecordLatency folds one processing latency sample into min/max/total.
func (s *Stats) RecordLatency(ns uint64) {
	for {
		cur := s.minLatencyNs.Load()
		if ns >= cur || s.minLatencyNs.CompareAndSwap(cur, ns) {
			break
		}
	}
	for {
		cur := s.maxLatencyNs.Load()
		if ns <= cur || s.maxLatencyNs.CompareAndSwap(cur, ns) {
			break
		}
	}
	s.totalLatencyNs.Add(ns)
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	OrdersReceived    uint64  `json:"orders_received"`
	OrdersProcessed   uint64  `json:"orders_processed"`
	OrdersRejected    uint64  `json:"orders_rejected"`
	DuplicatesDropped uint64  `json:"duplicates_dropped"`
	FillsReceived     uint64  `json:"fills_received"`
	MessagesPublished uint64  `json:"messages_published"`
	QueueFullDrops    uint64  `json:"queue_full_drops"`
	PoolExhausted     uint64  `json:"pool_exhausted"`
	IndexFullRejects  uint64  `json:"index_full_rejects"`
	UpdatesDropped    uint64  `json:"updates_dropped"`
	MinLatencyNs      uint64  `json:"min_latency_ns"`
	MaxLatencyNs      uint64  `json:"max_latency_ns"`
	AvgLatencyNs      float64 `json:"avg_latency_ns"`
}

// GetSnapshot returns a point-in-time snapshot. Values from different
// counters may be skewed by in-flight work; they are for observability only.
func (s *Stats) GetSnapshot() Snapshot {
	snap := Snapshot{
		OrdersReceived:    s.OrdersReceived.Load(),
		OrdersProcessed:   s.OrdersProcessed.Load(),
		OrdersRejected:    s.OrdersRejected.Load(),
		DuplicatesDropped: s.DuplicatesDropped.Load(),
		FillsReceived:     s.FillsReceived.Load(),
		MessagesPublished: s.MessagesPublished.Load(),
		QueueFullDrops:    s.QueueFullDrops.Load(),
		PoolExhausted:     s.PoolExhausted.Load(),
		IndexFullRejects:  s.IndexFullRejects.Load(),
		UpdatesDropped:    s.UpdatesDropped.Load(),
		MaxLatencyNs:      s.maxLatencyNs.Load(),
	}
	if min := s.minLatencyNs.Load(); min != math.MaxUint64 {
		snap.MinLatencyNs = min
	}
	if snap.OrdersProcessed > 0 {
		snap.AvgLatencyNs = float64(s.totalLatencyNs.Load()) / float64(snap.OrdersProcessed)
	}
	return snap
}

// AvgLatency returns the mean processing latency.
func (s *Stats) AvgLatency() time.Duration {
	n := s.OrdersProcessed.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(s.totalLatencyNs.Load() / n)
}
