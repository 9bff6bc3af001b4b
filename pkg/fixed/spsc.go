package fixed

import "sync/atomic"

// Queue is a lock-free single-producer/single-consumer ring buffer over a
// power-of-two array. Exactly one goroutine may call TryPush and exactly one
// other goroutine may call TryPop. The producer's atomic store of tail
// publishes the element with release semantics; the consumer's atomic load
// observes it with acquire semantics, so the popped element's writes are
// visible.
//
// Head and tail live on separate cache lines to avoid false sharing between
// the two sides.
type Queue[T any] struct {
	head atomic.Uint64
	_    [56]byte
	tail atomic.Uint64
	_    [56]byte

	buf  []T
	mask uint64
}

// NewQueue builds a queue of the given capacity, which must be a power of 2.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("fixed: queue capacity must be a power of 2")
	}
	return &Queue[T]{
		buf:  make([]T, capacity),
		mask: uint64(capacity - 1),
	}
}

// TryPush appends v and returns true, or returns false when the queue is
// full. Never blocks. Producer side only.
func (q *Queue[T]) TryPush(v T) bool {
	t := q.tail.Load()
	if t-q.head.Load() == uint64(len(q.buf)) {
		return false
	}
	q.buf[t&q.mask] = v
	q.tail.Store(t + 1)
	return true
}

// TryPop removes and returns the oldest element, or reports false when the
// queue is empty. Never blocks. Consumer side only.
func (q *Queue[T]) TryPop() (T, bool) {
	h := q.head.Load()
	if h == q.tail.Load() {
		var zero T
		return zero, false
	}
	v := q.buf[h&q.mask]
	q.head.Store(h + 1)
	return v, true
}

// Len returns the number of queued elements. Advisory only: the value may be
// stale by the time it is observed. Never use it to decide push/pop success.
func (q *Queue[T]) Len() int {
	return int(q.tail.Load() - q.head.Load())
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int { return len(q.buf) }

// Empty reports whether the queue looked empty at the time of the call.
// Advisory only.
func (q *Queue[T]) Empty() bool {
	return q.head.Load() == q.tail.Load()
}
