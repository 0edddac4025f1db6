package vm

import (
	"fmt"
	"strings"
)

// ObjType tags the concrete kind behind the Obj interface.
type ObjType byte

const (
	ObjStringT ObjType = iota
	ObjFunctionT
	ObjClosureT
	ObjNative
	ObjUpvalueT
	ObjClassT
	ObjInstanceT
	ObjBoundMethodT
	ObjArrayT
)

// objHeader is the common header every heap object embeds: mark bit plus
// the intrusive next-object link the GC's all-objects list threads
// through. Embedded rather than referenced, since Go has no base-class
// inheritance.
type objHeader struct {
	marked bool
	next   Obj
}

// Obj is implemented by every heap object. Kept as an interface (unlike
// Value, see value.go) because the GC's blacken step needs open dispatch
// over heterogeneous object kinds.
type Obj interface {
	objType() ObjType
	String() string
}

// ---- String ----

// ObjString is an immutable, interned byte buffer with a precomputed hash.
type ObjString struct {
	objHeader
	Chars string
	Hash  uint32
}

func (s *ObjString) objType() ObjType { return ObjStringT }
func (s *ObjString) String() string   { return s.Chars }

// fnv1a32 is the hash used to key the intern table.
func fnv1a32(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// ---- Function ----

// ObjFunction is a compiled function body: arity, declared upvalue count,
// an optional name (absent for the top-level script), and its owned Chunk.
type ObjFunction struct {
	objHeader
	Name         *ObjString
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
}

func (f *ObjFunction) objType() ObjType { return ObjFunctionT }
func (f *ObjFunction) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}

// ---- Upvalue ----

// ObjUpvalue is open while it points at a live stack slot (Closed is
// unused) and closed once it owns Closed inline.
type ObjUpvalue struct {
	objHeader
	slot     int // stack index when open; meaningless once closed
	open     bool
	Closed   Value
	nextOpen *ObjUpvalue // descending-by-slot open-upvalue list link
}

func (u *ObjUpvalue) objType() ObjType { return ObjUpvalueT }
func (u *ObjUpvalue) String() string   { return "<upvalue>" }

// ---- Closure ----

// ObjClosure pairs a Function with its captured upvalues.
type ObjClosure struct {
	objHeader
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

func (c *ObjClosure) objType() ObjType { return ObjClosureT }
func (c *ObjClosure) String() string   { return c.Function.String() }

// ---- Native ----

// NativeFn is a host function: argc plus a slice view of its arguments.
// Returns NullObject() to signal a runtime failure without an error value
// of its own (the VM synthesizes a generic message if none was reported).
type NativeFn func(vm *VM, args []Value) Value

// ObjNativeFn wraps a NativeFn as a heap object so it can live in Value/Obj.
type ObjNativeFn struct {
	objHeader
	Name string
	Fn   NativeFn
}

func (n *ObjNativeFn) objType() ObjType { return ObjNative }
func (n *ObjNativeFn) String() string   { return fmt.Sprintf("<native fn %s>", n.Name) }

// ---- Class / Instance / BoundMethod ----

// ObjClass is a name plus a method table. Method lookup is by name;
// inheritance copies the superclass table wholesale at INHERIT time.
type ObjClass struct {
	objHeader
	Name    *ObjString
	Methods *Table
}

func (c *ObjClass) objType() ObjType { return ObjClassT }
func (c *ObjClass) String() string   { return fmt.Sprintf("<class %s>", c.Name.Chars) }

// ObjInstance is a class reference plus its own field table.
type ObjInstance struct {
	objHeader
	Class  *ObjClass
	Fields *Table
}

func (i *ObjInstance) objType() ObjType { return ObjInstanceT }
func (i *ObjInstance) String() string   { return fmt.Sprintf("<instance of %s>", i.Class.Name.Chars) }

// ObjBoundMethod pairs a receiver value with the closure to invoke it.
type ObjBoundMethod struct {
	objHeader
	Receiver Value
	Method   *ObjClosure
}

func (b *ObjBoundMethod) objType() ObjType { return ObjBoundMethodT }
func (b *ObjBoundMethod) String() string   { return b.Method.String() }

// ---- Array ----

// ObjArray is a growable value vector.
type ObjArray struct {
	objHeader
	Elements []Value
}

func (a *ObjArray) objType() ObjType { return ObjArrayT }
func (a *ObjArray) String() string {
	parts := make([]string, len(a.Elements))
	for i, el := range a.Elements {
		parts[i] = el.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
