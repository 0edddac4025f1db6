package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternReturnsCanonicalIdentity(t *testing.T) {
	g := newGC(Config{})
	g.vm = &VM{frames: make([]CallFrame, 0, framesMax), globals: NewTable()}

	a := g.interner.intern(g, "hello")
	b := g.interner.intern(g, "hello")
	assert.Same(t, a, b, "two interns of identical content must return the same object")

	c := g.interner.intern(g, "world")
	assert.NotSame(t, a, c)
	assert.True(t, ValuesEqual(ObjValue(a), ObjValue(b)))
	assert.False(t, ValuesEqual(ObjValue(a), ObjValue(c)))
}
