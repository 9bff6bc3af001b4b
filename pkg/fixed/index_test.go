package fixed

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tok(t *testing.T, s string) Token {
	t.Helper()
	k, err := MakeToken(s)
	require.NoError(t, err)
	return k
}

func TestIndexInsertFindErase(t *testing.T) {
	ix := NewIndex[int64](16)

	k := tok(t, "ord-1")
	require.NoError(t, ix.Insert(k, 1234))

	v, ok := ix.Find(k)
	require.True(t, ok)
	assert.Equal(t, int64(1234), *v)

	// Overwrite keeps a single entry.
	require.NoError(t, ix.Insert(k, 5678))
	v, _ = ix.Find(k)
	assert.Equal(t, int64(5678), *v)
	assert.Equal(t, 1, ix.Len())

	assert.True(t, ix.Erase(k))
	_, ok = ix.Find(k)
	assert.False(t, ok)
	assert.False(t, ix.Erase(k))
	assert.Equal(t, 0, ix.Len())
}

func TestIndexFullSurfacesError(t *testing.T) {
	const capacity = 8
	ix := NewIndex[int64](capacity)

	for i := 0; i < capacity; i++ {
		require.NoError(t, ix.Insert(tok(t, fmt.Sprintf("ord-%d", i)), int64(i)))
	}
	err := ix.Insert(tok(t, "one-more"), 99)
	assert.ErrorIs(t, err, ErrIndexFull)

	// Overwriting an existing key at capacity is still allowed.
	assert.NoError(t, ix.Insert(tok(t, "ord-0"), 100))

	// Erasing frees capacity for a new key.
	assert.True(t, ix.Erase(tok(t, "ord-1")))
	assert.NoError(t, ix.Insert(tok(t, "one-more"), 99))
}

func TestIndexInsertEraseChurnDoesNotDegrade(t *testing.T) {
	// A long-running pending index churns one distinct key per terminal
	// order. Erased slots must be reclaimed, or the table runs out of
	// empty slots and probes stop terminating.
	ix := NewIndex[int](4)
	require.NoError(t, ix.Insert(tok(t, "sticky"), -1))

	for i := 0; i < 10_000; i++ {
		k := tok(t, fmt.Sprintf("churn-%d", i))
		require.NoError(t, ix.Insert(k, i))
		v, ok := ix.Find(k)
		require.True(t, ok)
		require.Equal(t, i, *v)
		require.True(t, ix.Erase(k))
		_, ok = ix.Find(k)
		require.False(t, ok)

		_, ok = ix.Find(tok(t, fmt.Sprintf("absent-%d", i)))
		require.False(t, ok)
	}

	v, ok := ix.Find(tok(t, "sticky"))
	require.True(t, ok)
	assert.Equal(t, -1, *v)
	assert.Equal(t, 1, ix.Len())
}

func TestIndexEraseKeepsClusterReachable(t *testing.T) {
	// Fill, erase every entry, refill: backward-shift deletion must leave
	// every surviving and newly inserted key findable.
	ix := NewIndex[string](4)

	for i := 0; i < 4; i++ {
		require.NoError(t, ix.Insert(tok(t, fmt.Sprintf("k%d", i)), "v"))
	}
	for i := 0; i < 4; i++ {
		require.True(t, ix.Erase(tok(t, fmt.Sprintf("k%d", i))))
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, ix.Insert(tok(t, fmt.Sprintf("n%d", i)), "w"))
	}
	for i := 0; i < 4; i++ {
		v, ok := ix.Find(tok(t, fmt.Sprintf("n%d", i)))
		require.True(t, ok)
		assert.Equal(t, "w", *v)
	}
}

func TestIndexRangeThenErase(t *testing.T) {
	ix := NewIndex[int64](32)
	for i := 0; i < 20; i++ {
		require.NoError(t, ix.Insert(tok(t, fmt.Sprintf("ord-%d", i)), int64(i)))
	}

	// Collect-then-erase, the compaction pattern used by the
	// processed-index retention pass.
	var evict []Token
	ix.Range(func(k Token, v *int64) bool {
		if *v%2 == 1 {
			evict = append(evict, k)
		}
		return true
	})
	for _, k := range evict {
		require.True(t, ix.Erase(k))
	}
	assert.Equal(t, 10, ix.Len())
	for i := 0; i < 20; i++ {
		_, ok := ix.Find(tok(t, fmt.Sprintf("ord-%d", i)))
		assert.Equal(t, i%2 == 0, ok)
	}
}
