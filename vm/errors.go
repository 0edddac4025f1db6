package vm

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// InterpretResult is the three-way outcome Interpret returns.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// CompileError is one diagnostic emitted by the compiler. Panic-mode
// recovery collects these into a list rather than stopping at the first
// one, so a compile that hits several syntax errors reports all of them.
type CompileError struct {
	Line    int
	Where   string // "at end", "at '<lexeme>'", or "" for a scanner error token
	Message string
}

func (e CompileError) Error() string {
	return fmt.Sprintf("[line %d] Error %s: %s", e.Line, e.Where, e.Message)
}

// CompileErrors aggregates every diagnostic from one compilation.
type CompileErrors []CompileError

func (es CompileErrors) Error() string {
	lines := make([]string, len(es))
	for i, e := range es {
		lines[i] = e.Error()
	}
	return strings.Join(lines, "\n")
}

// RuntimeError carries a back-trace: each frame reports its function name
// (or "script") and the line of the in-flight instruction, top (innermost)
// first.
type RuntimeError struct {
	Message string
	Trace   []string
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, line := range e.Trace {
		b.WriteByte('\n')
		b.WriteString(line)
	}
	return b.String()
}

// wrapRuntime attaches a cause chain via pkg/errors so callers embedding
// the VM as a library can unwrap with errors.Cause/errors.Is.
func wrapRuntime(re *RuntimeError) error {
	return errors.WithStack(re)
}
