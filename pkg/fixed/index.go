package fixed

import "errors"

// ErrIndexFull is returned by Insert when the index is at capacity and the
// key is not already present. Surfacing this to the caller is deliberate: a
// silent drop here would lose dedup or pending-order state.
var ErrIndexFull = errors.New("fixed: index full")

const (
	slotEmpty uint8 = iota
	slotLive
)

// Index is a fixed-capacity open-addressed map from Token to V using linear
// probing. Erase shifts the rest of the probe cluster back instead of
// leaving tombstones, so insert/erase churn never degrades the table and
// every probe terminates at an empty slot. No resizing; iteration order is
// unspecified. Single-writer: all calls must come from the owning goroutine.
type Index[V any] struct {
	keys  []Token
	vals  []V
	state []uint8
	mask  uint32
	live  int
	cap   int
}

// NewIndex builds an index that accepts up to capacity entries. The backing
// table is sized to at least twice the capacity (next power of two) so probe
// chains stay short at full load and an empty slot always exists.
func NewIndex[V any](capacity int) *Index[V] {
	if capacity <= 0 {
		panic("fixed: index capacity must be positive")
	}
	n := 1
	for n < capacity*2 {
		n <<= 1
	}
	return &Index[V]{
		keys:  make([]Token, n),
		vals:  make([]V, n),
		state: make([]uint8, n),
		mask:  uint32(n - 1),
		cap:   capacity,
	}
}

// Find returns a pointer to the value stored under k, valid until the next
// Insert or Erase.
func (ix *Index[V]) Find(k Token) (*V, bool) {
	i := k.Hash() & ix.mask
	for probes := 0; probes < len(ix.state); probes++ {
		if ix.state[i] == slotEmpty {
			return nil, false
		}
		if ix.keys[i] == k {
			return &ix.vals[i], true
		}
		i = (i + 1) & ix.mask
	}
	return nil, false
}

// Insert stores v under k, overwriting any existing entry. Returns
// ErrIndexFull when the index is at capacity and k is absent.
func (ix *Index[V]) Insert(k Token, v V) error {
	i := k.Hash() & ix.mask
	for probes := 0; probes < len(ix.state); probes++ {
		if ix.state[i] == slotEmpty {
			if ix.live >= ix.cap {
				return ErrIndexFull
			}
			ix.keys[i] = k
			ix.vals[i] = v
			ix.state[i] = slotLive
			ix.live++
			return nil
		}
		if ix.keys[i] == k {
			ix.vals[i] = v
			return nil
		}
		i = (i + 1) & ix.mask
	}
	return ErrIndexFull
}

// Erase removes k. Returns false when k is absent.
func (ix *Index[V]) Erase(k Token) bool {
	i := k.Hash() & ix.mask
	for probes := 0; probes < len(ix.state); probes++ {
		if ix.state[i] == slotEmpty {
			return false
		}
		if ix.keys[i] == k {
			ix.remove(i)
			return true
		}
		i = (i + 1) & ix.mask
	}
	return false
}

// remove empties slot i and backward-shifts the rest of the cluster so
// every remaining entry stays reachable from its home slot.
func (ix *Index[V]) remove(i uint32) {
	j := i
	for {
		j = (j + 1) & ix.mask
		if ix.state[j] == slotEmpty {
			break
		}
		// The entry at j can move into the hole only if its home slot
		// does not lie cyclically in (i, j]; otherwise the hole sits
		// inside its probe path already.
		home := ix.keys[j].Hash() & ix.mask
		if cyclicBetween(i, home, j) {
			continue
		}
		ix.keys[i] = ix.keys[j]
		ix.vals[i] = ix.vals[j]
		i = j
	}
	var zero V
	ix.keys[i] = Token{}
	ix.vals[i] = zero
	ix.state[i] = slotEmpty
	ix.live--
}

// cyclicBetween reports whether h lies in the cyclic half-open range (i, j].
func cyclicBetween(i, h, j uint32) bool {
	if i < j {
		return h > i && h <= j
	}
	return h > i || h <= j
}

// Len returns the number of live entries.
func (ix *Index[V]) Len() int { return ix.live }

// Capacity returns the maximum number of entries.
func (ix *Index[V]) Capacity() int { return ix.cap }

// Range calls fn for every live entry until fn returns false. Mutating the
// index during iteration is not permitted; collect keys first and erase
// after.
func (ix *Index[V]) Range(fn func(k Token, v *V) bool) {
	for i := range ix.state {
		if ix.state[i] == slotLive {
			if !fn(ix.keys[i], &ix.vals[i]) {
				return
			}
		}
	}
}
