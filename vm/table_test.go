package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func internedKey(t *testing.T, s string) *ObjString {
	t.Helper()
	return &ObjString{Chars: s, Hash: fnv1a32(s)}
}

func TestTableSetGetDelete(t *testing.T) {
	table := NewTable()
	a := internedKey(t, "a")
	b := internedKey(t, "b")

	isNew := table.Set(a, NumberValue(1))
	assert.True(t, isNew)
	isNew = table.Set(a, NumberValue(2))
	assert.False(t, isNew)

	v, ok := table.Get(a)
	require.True(t, ok)
	assert.Equal(t, 2.0, v.AsNumber())

	_, ok = table.Get(b)
	assert.False(t, ok)

	assert.True(t, table.Delete(a))
	_, ok = table.Get(a)
	assert.False(t, ok)
	assert.False(t, table.Delete(a))
}

func TestTableGrowsAndSurvivesManyEntries(t *testing.T) {
	table := NewTable()
	keys := make([]*ObjString, 200)
	for i := range keys {
		s := string(rune('a')) + string(rune(i))
		keys[i] = internedKey(t, s)
		table.Set(keys[i], NumberValue(float64(i)))
	}
	assert.Equal(t, 200, table.Count())
	for i, k := range keys {
		v, ok := table.Get(k)
		require.True(t, ok)
		assert.Equal(t, float64(i), v.AsNumber())
	}
}

func TestTableTombstoneAllowsReuseWithoutBreakingProbe(t *testing.T) {
	table := NewTable()
	a := internedKey(t, "a")
	b := internedKey(t, "b")
	c := internedKey(t, "c")

	table.Set(a, NumberValue(1))
	table.Set(b, NumberValue(2))
	table.Set(c, NumberValue(3))

	table.Delete(b)

	// b's tombstone must not break the probe sequence to c.
	v, ok := table.Get(c)
	require.True(t, ok)
	assert.Equal(t, 3.0, v.AsNumber())
}

func TestTableAddAllBulkCopies(t *testing.T) {
	x := internedKey(t, "x")
	y := internedKey(t, "y")

	src := NewTable()
	src.Set(x, NumberValue(1))
	src.Set(y, NumberValue(2))

	dst := NewTable()
	dst.Set(y, NumberValue(99)) // overwritten by AddAll
	dst.AddAll(src)

	assert.Equal(t, 2, dst.Count())
	v, _ := dst.Get(y)
	assert.Equal(t, 2.0, v.AsNumber())
}

func TestFindInterned(t *testing.T) {
	table := NewTable()
	s := &ObjString{Chars: "hello", Hash: fnv1a32("hello")}
	table.Set(s, NilValue())

	found := table.FindInterned("hello", fnv1a32("hello"))
	assert.Same(t, s, found)

	assert.Nil(t, table.FindInterned("goodbye", fnv1a32("goodbye")))
}
