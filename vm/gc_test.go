package vm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStressGCCollectsGarbageButKeepsLiveValuesCorrect(t *testing.T) {
	machine := NewVM(Config{StressGC: true})
	var out strings.Builder
	machine.SetOutput(&out)

	src := `
		var total = "";
		for (var i = 0; i < 20; i = i + 1) {
			total = total + "a";
		}
		print total;
	`
	result, err := machine.Interpret(src)
	require.NoError(t, err)
	assert.Equal(t, InterpretOK, result)
	assert.Equal(t, strings.Repeat("a", 20)+"\n", out.String())

	assert.Greater(t, machine.gc.stats.collections, 0, "stress mode should trigger at least one collection")
	assert.Greater(t, machine.gc.stats.freed, 0, "intermediate concatenation results (\"aa\" through \"a\"*19) should become garbage")
}

func TestCollectGarbageDoesNotFreeReachableGlobal(t *testing.T) {
	machine := NewVM(Config{})
	_, err := machine.Interpret(`var kept = "still here";`)
	require.NoError(t, err)

	machine.gc.collectGarbage()

	name := machine.gc.interner.intern(machine.gc, "kept")
	v, ok := machine.globals.Get(name)
	require.True(t, ok)
	require.True(t, v.IsString())
	assert.Equal(t, "still here", v.AsString().Chars)
}

func TestWeakInternTableDropsUnreferencedStrings(t *testing.T) {
	machine := NewVM(Config{})
	transient := machine.gc.interner.intern(machine.gc, "ephemeral-value-xyz")
	_ = transient

	machine.gc.collectGarbage()

	assert.Nil(t, machine.gc.interner.strings.FindInterned("ephemeral-value-xyz", fnv1a32("ephemeral-value-xyz")))
}
