package vm

import (
	"fmt"
	"os"
)

// gc is the allocator and tracing mark-sweep collector: every heap
// allocation funnels through its newXxx methods, which is also the only
// place a collection gets triggered.
type gc struct {
	objects Obj // head of the intrusive all-objects list

	bytesAllocated int64
	nextGC         int64

	stressGC bool
	logGC    bool

	grayStack []Obj

	interner *interner

	vm *VM // roots live here; set once by NewVM

	stats struct {
		collections int
		freed       int
	}
}

const initialNextGC = 1 << 20 // 1 MiB floor before the first collection

func newGC(cfg Config) *gc {
	return &gc{
		interner: newInterner(),
		stressGC: cfg.StressGC,
		logGC:    cfg.LogGC,
		nextGC:   initialNextGC,
	}
}

// track registers a freshly built object on the all-objects list and
// accounts for its size, triggering a collection first if warranted.
func (g *gc) track(o Obj, size int64) {
	g.maybeCollect(size)
	h := objHeaderOf(o)
	h.next = g.objects
	g.objects = o
	g.bytesAllocated += size
}

func (g *gc) maybeCollect(incoming int64) {
	if g.vm == nil {
		return // not wired up yet (used transiently during bootstrap)
	}
	if g.stressGC || g.bytesAllocated+incoming > g.nextGC {
		g.collectGarbage()
	}
}

// --- allocation helpers, one per Obj kind ---

func (g *gc) newString(chars string, hash uint32) *ObjString {
	s := &ObjString{Chars: chars, Hash: hash}
	g.track(s, int64(len(chars))+24)
	return s
}

func (g *gc) newFunction() *ObjFunction {
	f := &ObjFunction{Chunk: NewChunk()}
	g.track(f, 64)
	return f
}

func (g *gc) newClosure(fn *ObjFunction) *ObjClosure {
	c := &ObjClosure{Function: fn, Upvalues: make([]*ObjUpvalue, fn.UpvalueCount)}
	g.track(c, int64(24+8*fn.UpvalueCount))
	return c
}

func (g *gc) newUpvalue(slot int) *ObjUpvalue {
	u := &ObjUpvalue{slot: slot, open: true}
	g.track(u, 32)
	return u
}

func (g *gc) newClass(name *ObjString) *ObjClass {
	c := &ObjClass{Name: name, Methods: NewTable()}
	g.track(c, 48)
	return c
}

func (g *gc) newInstance(class *ObjClass) *ObjInstance {
	i := &ObjInstance{Class: class, Fields: NewTable()}
	g.track(i, 48)
	return i
}

func (g *gc) newBoundMethod(receiver Value, method *ObjClosure) *ObjBoundMethod {
	b := &ObjBoundMethod{Receiver: receiver, Method: method}
	g.track(b, 40)
	return b
}

func (g *gc) newArray(elements []Value) *ObjArray {
	a := &ObjArray{Elements: elements}
	g.track(a, int64(24+16*len(elements)))
	return a
}

func (g *gc) newNative(name string, fn NativeFn) *ObjNativeFn {
	n := &ObjNativeFn{Name: name, Fn: fn}
	g.track(n, 32)
	return n
}

func objHeaderOf(o Obj) *objHeader {
	switch v := o.(type) {
	case *ObjString:
		return &v.objHeader
	case *ObjFunction:
		return &v.objHeader
	case *ObjClosure:
		return &v.objHeader
	case *ObjUpvalue:
		return &v.objHeader
	case *ObjClass:
		return &v.objHeader
	case *ObjInstance:
		return &v.objHeader
	case *ObjBoundMethod:
		return &v.objHeader
	case *ObjArray:
		return &v.objHeader
	case *ObjNativeFn:
		return &v.objHeader
	default:
		panic("gc: unknown Obj concrete type")
	}
}

// collectGarbage runs one full tracing mark-sweep cycle: mark roots gray,
// blacken until the gray worklist empties, drop unmarked intern-table
// keys, then sweep the all-objects list.
func (g *gc) collectGarbage() {
	freedBefore := g.stats.freed
	g.markRoots()
	g.traceReferences()
	g.interner.strings.removeUnmarkedKeys()
	g.sweep()

	g.stats.collections++
	g.nextGC = g.bytesAllocated * 2
	if g.nextGC < initialNextGC {
		g.nextGC = initialNextGC
	}
	if g.logGC {
		fmt.Fprintf(os.Stderr, "-- gc: freed %d objects, next at %d bytes\n", g.stats.freed-freedBefore, g.nextGC)
	}
}

func (g *gc) markRoots() {
	v := g.vm
	for i := 0; i < v.sp; i++ {
		g.markValue(v.stack[i])
	}
	for i := 0; i < len(v.frames); i++ {
		g.markObject(v.frames[i].closure)
	}
	for u := v.openUpvalues; u != nil; u = u.nextOpen {
		g.markObject(u)
	}
	v.globals.Each(func(key *ObjString, val Value) {
		g.markObject(key)
		g.markValue(val)
	})
	if v.initString != nil {
		g.markObject(v.initString)
	}
	if v.toStringName != nil {
		g.markObject(v.toStringName)
	}
	for _, fn := range v.compilerRoots {
		g.markObject(fn)
	}
}

func (g *gc) markValue(v Value) {
	if v.Kind == ValObj && v.Obj != nil {
		g.markObject(v.Obj)
	}
}

func (g *gc) markObject(o Obj) {
	if o == nil {
		return
	}
	h := objHeaderOf(o)
	if h.marked {
		return
	}
	h.marked = true
	g.grayStack = append(g.grayStack, o)
}

func (g *gc) traceReferences() {
	for len(g.grayStack) > 0 {
		n := len(g.grayStack) - 1
		o := g.grayStack[n]
		g.grayStack = g.grayStack[:n]
		g.blacken(o)
	}
}

// blacken marks every object o directly references.
func (g *gc) blacken(o Obj) {
	switch v := o.(type) {
	case *ObjString:
		// no outgoing references
	case *ObjFunction:
		// v.Name is nil for the top-level script function; markObject takes
		// an Obj interface, so passing a nil *ObjString through it would box
		// into a non-nil interface value and defeat the o == nil guard.
		if v.Name != nil {
			g.markObject(v.Name)
		}
		for _, c := range v.Chunk.Constants {
			g.markValue(c)
		}
	case *ObjClosure:
		g.markObject(v.Function)
		for _, u := range v.Upvalues {
			// Upvalues fills in left to right and a collection can interleave
			// (captureUpvalue allocates), so trailing slots may still be nil.
			if u != nil {
				g.markObject(u)
			}
		}
	case *ObjUpvalue:
		if !v.open {
			g.markValue(v.Closed)
		}
	case *ObjClass:
		g.markObject(v.Name)
		v.Methods.Each(func(key *ObjString, val Value) {
			g.markObject(key)
			g.markValue(val)
		})
	case *ObjInstance:
		g.markObject(v.Class)
		v.Fields.Each(func(key *ObjString, val Value) {
			g.markObject(key)
			g.markValue(val)
		})
	case *ObjBoundMethod:
		g.markValue(v.Receiver)
		g.markObject(v.Method)
	case *ObjArray:
		for _, el := range v.Elements {
			g.markValue(el)
		}
	case *ObjNativeFn:
		// no outgoing references
	}
}

func (g *gc) sweep() {
	var prev Obj
	obj := g.objects
	for obj != nil {
		h := objHeaderOf(obj)
		if h.marked {
			h.marked = false
			prev = obj
			obj = h.next
			continue
		}
		unreached := obj
		obj = h.next
		if prev != nil {
			objHeaderOf(prev).next = obj
		} else {
			g.objects = obj
		}
		g.stats.freed++
		_ = unreached // Go's own GC reclaims memory once unreachable from g.objects
	}
}
