package fixed

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrPoolExhausted is returned by Allocate when no free slot remains.
	// Recoverable: the caller rejects the triggering request.
	ErrPoolExhausted = errors.New("fixed: pool exhausted")
	// ErrStaleHandle is returned when a handle no longer refers to a live
	// slot (already released, or the slot was reused since).
	ErrStaleHandle = errors.New("fixed: stale or invalid pool handle")
)

// Handle is an owned reference to a pool slot: slot index plus the generation
// observed at allocation. A released-and-reused slot bumps its generation, so
// a stale handle is detected instead of silently aliasing the new occupant.
type Handle struct {
	idx uint32
	gen uint32
}

// Pool hands out pointer-stable slots of T from a fixed backing array. All
// mutation (Allocate, Get, Release) must come from a single goroutine; only
// the observability counters are safe to read concurrently.
//
// Slot liveness is encoded in the generation parity: even = free, odd = live.
type Pool[T any] struct {
	slots []T
	gens  []uint32
	free  []uint32 // stack of free slot indices

	inUse     atomic.Int64
	exhausted atomic.Uint64
}

// NewPool builds a pool with the given capacity and performs warmup: every
// slot is written once so the backing memory is resident before the hot path
// starts. Call before any processing goroutine is running.
func NewPool[T any](capacity int) *Pool[T] {
	if capacity <= 0 {
		panic("fixed: pool capacity must be positive")
	}
	p := &Pool[T]{
		slots: make([]T, capacity),
		gens:  make([]uint32, capacity),
		free:  make([]uint32, 0, capacity),
	}
	var zero T
	for i := capacity - 1; i >= 0; i-- {
		p.slots[i] = zero // pre-touch
		p.free = append(p.free, uint32(i))
	}
	return p
}

// Allocate pops a free slot, zeroes it, and returns its handle and pointer.
// Never blocks and never allocates; on exhaustion it bumps the exhausted
// counter and returns ErrPoolExhausted.
func (p *Pool[T]) Allocate() (Handle, *T, error) {
	if len(p.free) == 0 {
		p.exhausted.Add(1)
		return Handle{}, nil, ErrPoolExhausted
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]

	var zero T
	p.slots[idx] = zero
	p.gens[idx]++ // even -> odd: live
	p.inUse.Add(1)
	return Handle{idx: idx, gen: p.gens[idx]}, &p.slots[idx], nil
}

// Get resolves a handle to its slot pointer, or reports that the handle is
// stale.
func (p *Pool[T]) Get(h Handle) (*T, bool) {
	if int(h.idx) >= len(p.slots) || p.gens[h.idx] != h.gen || h.gen%2 == 0 {
		return nil, false
	}
	return &p.slots[h.idx], true
}

// Release returns a slot to the free list. Double release of the same handle
// fails with ErrStaleHandle rather than corrupting the free list.
func (p *Pool[T]) Release(h Handle) error {
	if int(h.idx) >= len(p.slots) || p.gens[h.idx] != h.gen || h.gen%2 == 0 {
		return ErrStaleHandle
	}
	p.gens[h.idx]++ // odd -> even: free
	p.free = append(p.free, h.idx)
	p.inUse.Add(-1)
	return nil
}

// Capacity returns the total number of slots.
func (p *Pool[T]) Capacity() int { return len(p.slots) }

// Available returns the number of free slots.
func (p *Pool[T]) Available() int { return len(p.free) }

// InUse returns the number of live slots. Safe for concurrent readers.
func (p *Pool[T]) InUse() int { return int(p.inUse.Load()) }

// ExhaustedCount returns how many Allocate calls failed for lack of a slot.
// Safe for concurrent readers.
func (p *Pool[T]) ExhaustedCount() uint64 { return p.exhausted.Load() }
