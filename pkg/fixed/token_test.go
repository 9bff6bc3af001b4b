package fixed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeTokenRejectsOversize(t *testing.T) {
	tok, err := MakeToken("BTC-USDT")
	require.NoError(t, err)
	assert.Equal(t, "BTC-USDT", tok.String())
	assert.Equal(t, 8, tok.Len())

	_, err = MakeToken(strings.Repeat("x", TokenCap+1))
	assert.ErrorIs(t, err, ErrTokenOverflow)

	// Exactly at capacity is fine.
	tok, err = MakeToken(strings.Repeat("y", TokenCap))
	require.NoError(t, err)
	assert.Equal(t, TokenCap, tok.Len())
}

func TestClipTruncates(t *testing.T) {
	tok := Clip(strings.Repeat("z", TokenCap+10))
	assert.Equal(t, TokenCap, tok.Len())
	assert.Equal(t, strings.Repeat("z", TokenCap), tok.String())
}

func TestTokenEqualityIsContentBased(t *testing.T) {
	a, _ := MakeToken("order-1")
	b, _ := MakeToken("order-1")
	c, _ := MakeToken("order-2")

	assert.True(t, a == b)
	assert.False(t, a == c)
	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())

	// A token that held a longer value before must still compare equal by
	// content when rebuilt, not by residual buffer bytes.
	var zero Token
	assert.True(t, Clip("") == zero)
}

func TestTokenLower(t *testing.T) {
	tok, _ := MakeToken("BYBIT")
	assert.Equal(t, "bybit", tok.Lower().String())
	// Non-letters untouched.
	tok, _ = MakeToken("BTC-USDT_1")
	assert.Equal(t, "btc-usdt_1", tok.Lower().String())
}

func TestKVSet(t *testing.T) {
	var s KVSet
	k1, _ := MakeToken("strategy")
	v1, _ := MakeToken("momentum")
	require.True(t, s.Put(k1, v1))

	got, ok := s.Get(k1)
	require.True(t, ok)
	assert.Equal(t, "momentum", got.String())

	// Update in place does not consume a slot.
	v2, _ := MakeToken("meanrev")
	require.True(t, s.Put(k1, v2))
	assert.Equal(t, 1, s.Len())

	// Fill to capacity, then one more distinct key must fail.
	for i := 0; s.Len() < kvCap; i++ {
		k := Clip(strings.Repeat("k", i+2))
		require.True(t, s.Put(k, v1))
	}
	overflowKey, _ := MakeToken("one-too-many")
	assert.False(t, s.Put(overflowKey, v1))

	// Updating an existing key still works at capacity.
	assert.True(t, s.Put(k1, v1))

	n := 0
	s.Range(func(k, v Token) bool { n++; return true })
	assert.Equal(t, kvCap, n)
}
