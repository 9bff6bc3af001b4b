// Package fixed provides the bounded, allocation-free building blocks used on
// the order-processing hot path: inline string tokens, a slot pool with
// generation-checked handles, an open-addressed index, and a lock-free SPSC
// ring. None of these touch the heap after construction.
package fixed

import "errors"

// TokenCap is the inline capacity of a Token in bytes. It is sized for the
// longest identifier the gateway accepts (client order ids).
const TokenCap = 64

// ErrTokenOverflow is returned when the input does not fit in a Token.
var ErrTokenOverflow = errors.New("fixed: value exceeds token capacity")

// Token is a bounded string value stored inline. The zero value is the empty
// token. Tokens built through MakeToken or Clip always zero-fill the unused
// tail, so == compares by content.
type Token struct {
	n   uint8
	buf [TokenCap]byte
}

// MakeToken builds a Token from s, rejecting oversize input. Identifiers must
// go through this path: silent truncation of an order id would corrupt dedup
// and pending-index keys.
func MakeToken(s string) (Token, error) {
	var t Token
	if len(s) > TokenCap {
		return t, ErrTokenOverflow
	}
	t.n = uint8(copy(t.buf[:], s))
	return t, nil
}

// Clip builds a Token from s, truncating oversize input. Only for display
// fields (statuses, reason texts) where losing a tail is acceptable.
func Clip(s string) Token {
	var t Token
	if len(s) > TokenCap {
		s = s[:TokenCap]
	}
	t.n = uint8(copy(t.buf[:], s))
	return t
}

// String copies the token content out. Not for hot-path use.
func (t Token) String() string { return string(t.buf[:t.n]) }

// Bytes returns the valid content. The returned slice aliases the token.
func (t *Token) Bytes() []byte { return t.buf[:t.n] }

// Len returns the content length in bytes.
func (t Token) Len() int { return int(t.n) }

// IsEmpty reports whether the token holds no content.
func (t Token) IsEmpty() bool { return t.n == 0 }

// Hash returns the 32-bit FNV-1a hash of the content.
func (t *Token) Hash() uint32 {
	h := uint32(0x811C9DC5)
	for _, b := range t.buf[:t.n] {
		h ^= uint32(b)
		h *= 0x01000193
	}
	return h
}

// Lower returns a copy with ASCII letters lowercased.
func (t Token) Lower() Token {
	for i := uint8(0); i < t.n; i++ {
		if c := t.buf[i]; c >= 'A' && c <= 'Z' {
			t.buf[i] = c + ('a' - 'A')
		}
	}
	return t
}

// kvCap bounds the number of entries a KVSet holds. It matches the largest
// parameter set an order carries on the wire.
const kvCap = 12

// KVSet is a bounded key/value set of Tokens, used for order params and the
// opaque tags echoed back on reports and fills.
type KVSet struct {
	n    uint8
	keys [kvCap]Token
	vals [kvCap]Token
}

// Put inserts or updates a key. Returns false when the set is full and the
// key is not already present.
func (s *KVSet) Put(k, v Token) bool {
	for i := uint8(0); i < s.n; i++ {
		if s.keys[i] == k {
			s.vals[i] = v
			return true
		}
	}
	if int(s.n) >= kvCap {
		return false
	}
	s.keys[s.n] = k
	s.vals[s.n] = v
	s.n++
	return true
}

// Get looks up a key.
func (s *KVSet) Get(k Token) (Token, bool) {
	for i := uint8(0); i < s.n; i++ {
		if s.keys[i] == k {
			return s.vals[i], true
		}
	}
	return Token{}, false
}

// Len returns the number of entries.
func (s *KVSet) Len() int { return int(s.n) }

// Range calls fn for every entry until fn returns false.
func (s *KVSet) Range(fn func(k, v Token) bool) {
	for i := uint8(0); i < s.n; i++ {
		if !fn(s.keys[i], s.vals[i]) {
			return
		}
	}
}
