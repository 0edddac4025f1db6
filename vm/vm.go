package vm

import (
	"fmt"
	"io"
	"os"
)

// framesMax bounds call depth.
const framesMax = 256

// Config toggles diagnostics only; none of these change observable
// program behavior beyond tracing/logging output.
type Config struct {
	StressGC bool
	LogGC    bool
	Trace    bool
}

// CallFrame is a per-invocation activation record: the executing closure,
// its instruction pointer, and a base slot index into the shared value
// stack. base is an index rather than a raw pointer since the stack can
// grow and reallocate.
type CallFrame struct {
	closure *ObjClosure
	ip      int
	base    int
}

// VM is the single owned execution context: stack, frames, globals,
// intern table, and GC all live here rather than behind package-level
// state, so a VM is a value you construct and discard.
type VM struct {
	stack []Value
	sp    int

	frames []CallFrame

	globals *Table
	gc      *gc

	openUpvalues *ObjUpvalue

	initString     *ObjString
	toStringName   *ObjString

	// compilerRoots mirrors the currently active compiler chain so the
	// GC can mark in-progress function objects the compiler is still
	// building.
	compilerRoots []*ObjFunction

	config Config
	stdout io.Writer

	nativeError string
}

// NewVM constructs a VM with its native globals already registered.
func NewVM(cfg Config) *VM {
	vm := &VM{
		stack: make([]Value, 1024),
		// frames is preallocated to its hard cap so append() inside call()
		// never reallocates the backing array — runLoop holds a *CallFrame
		// across nested (reentrant) calls such as invokeMethodSync, and a
		// reallocation would silently strand that pointer in the old array.
		frames:  make([]CallFrame, 0, framesMax),
		globals: NewTable(),
		stdout:  os.Stdout,
		config:  cfg,
	}
	vm.gc = newGC(cfg)
	vm.gc.vm = vm
	vm.initString = vm.gc.interner.intern(vm.gc, "init")
	vm.toStringName = vm.gc.interner.intern(vm.gc, "toString")
	registerNatives(vm)
	return vm
}

// SetOutput redirects PRINT/toString output, used by tests to capture
// stdout.
func (vm *VM) SetOutput(w io.Writer) { vm.stdout = w }

// --- stack ---

func (vm *VM) push(v Value) {
	if vm.sp >= len(vm.stack) {
		grown := make([]Value, len(vm.stack)*2)
		copy(grown, vm.stack)
		vm.stack = grown
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.sp-1-distance]
}

func (vm *VM) resetStack() {
	vm.sp = 0
	vm.frames = vm.frames[:0]
	vm.openUpvalues = nil
}

// Interpret compiles and runs source to completion — the single public
// execution entry point.
func (vm *VM) Interpret(source string) (InterpretResult, error) {
	fn, err := Compile(vm, source)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return InterpretCompileError, err
	}

	closure := vm.gc.newClosure(fn)
	vm.push(ObjValue(closure))
	if rerr := vm.call(closure, 0); rerr != nil {
		vm.resetStack()
		return InterpretRuntimeError, wrapRuntime(rerr)
	}

	if rerr := vm.runLoop(0); rerr != nil {
		fmt.Fprintln(os.Stderr, rerr.Error())
		vm.resetStack()
		return InterpretRuntimeError, wrapRuntime(rerr)
	}
	// The top-level call's own return value is left on the stack by
	// runLoop's unified RETURN handling; discard it so the stack is
	// empty again once a script finishes, matching every other call
	// convention in the VM.
	vm.resetStack()
	return InterpretOK, nil
}

func (vm *VM) frame() *CallFrame { return &vm.frames[len(vm.frames)-1] }

func readByte(f *CallFrame) byte {
	b := f.closure.Function.Chunk.Code[f.ip]
	f.ip++
	return b
}

func readUint16(f *CallFrame) int {
	code := f.closure.Function.Chunk.Code
	v := int(code[f.ip])<<8 | int(code[f.ip+1])
	f.ip += 2
	return v
}

func (vm *VM) readConstant(f *CallFrame, long bool) Value {
	var idx int
	if long {
		idx = readUint16(f)
	} else {
		idx = int(readByte(f))
	}
	return f.closure.Function.Chunk.Constants[idx]
}

func (vm *VM) readString(f *CallFrame, long bool) *ObjString {
	return vm.readConstant(f, long).AsString()
}

// runLoop is the fetch-decode-execute loop. It runs until the frame stack
// unwinds back to stopDepth, so it can be entered recursively by
// invokeMethodSync to run a user-defined toString() method to completion
// without duplicating the dispatch switch.
func (vm *VM) runLoop(stopDepth int) *RuntimeError {
	f := vm.frame()

	for {
		op := OpCode(readByte(f))
		if vm.config.Trace {
			fmt.Fprintf(os.Stderr, "%04d %s\n", f.ip-1, op)
		}
		switch op {
		case OpConstant:
			vm.push(vm.readConstant(f, false))
		case OpConstantLong:
			vm.push(vm.readConstant(f, true))
		case OpByteNum:
			vm.push(NumberValue(float64(readByte(f))))
		case OpNil:
			vm.push(NilValue())
		case OpTrue:
			vm.push(BoolValue(true))
		case OpFalse:
			vm.push(BoolValue(false))
		case OpPop:
			vm.pop()

		case OpAdd:
			if rerr := vm.add(); rerr != nil {
				return rerr
			}
		case OpSubtract, OpMultiply, OpDivide:
			if rerr := vm.arithmetic(op); rerr != nil {
				return rerr
			}
		case OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeErrorf("Operand must be a number.")
			}
			vm.push(NumberValue(-vm.pop().AsNumber()))
		case OpNot:
			vm.push(BoolValue(vm.pop().IsFalsey()))
		case OpInvert:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeErrorf("Operand must be a number.")
			}
			vm.push(NumberValue(float64(^int64(vm.pop().AsNumber()))))
		case OpShiftLeft, OpShiftRight, OpBitAnd, OpBitOr, OpBitXor:
			if rerr := vm.bitwise(op); rerr != nil {
				return rerr
			}
		case OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(BoolValue(ValuesEqual(a, b)))
		case OpNotEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(BoolValue(!ValuesEqual(a, b)))
		case OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
			if rerr := vm.comparison(op); rerr != nil {
				return rerr
			}

		case OpDefineGlobal, OpDefineGlobalLong:
			name := vm.readString(f, op == OpDefineGlobalLong)
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case OpGetGlobal, OpGetGlobalLong:
			name := vm.readString(f, op == OpGetGlobalLong)
			val, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeErrorf("Undefined variable '%s'.", name.Chars)
			}
			vm.push(val)
		case OpSetGlobal, OpSetGlobalLong:
			name := vm.readString(f, op == OpSetGlobalLong)
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return vm.runtimeErrorf("Undefined variable '%s'.", name.Chars)
			}
		case OpGetLocal:
			slot := int(readByte(f))
			vm.push(vm.stack[f.base+slot])
		case OpSetLocal:
			slot := int(readByte(f))
			vm.stack[f.base+slot] = vm.peek(0)
		case OpGetUpvalue:
			slot := int(readByte(f))
			vm.push(vm.upvalueValue(f.closure.Upvalues[slot]))
		case OpSetUpvalue:
			slot := int(readByte(f))
			vm.setUpvalueValue(f.closure.Upvalues[slot], vm.peek(0))

		case OpGetProperty, OpGetPropertyLong:
			name := vm.readString(f, op == OpGetPropertyLong)
			if rerr := vm.getPropertyOp(name); rerr != nil {
				return rerr
			}
		case OpSetProperty, OpSetPropertyLong:
			name := vm.readString(f, op == OpSetPropertyLong)
			if !vm.peek(1).IsObj() {
				return vm.runtimeErrorf("Only instances have fields.")
			}
			inst, ok := vm.peek(1).Obj.(*ObjInstance)
			if !ok {
				return vm.runtimeErrorf("Only instances have fields.")
			}
			inst.Fields.Set(name, vm.peek(0))
			value := vm.pop()
			vm.pop()
			vm.push(value)
		case OpGetSuper, OpGetSuperLong:
			name := vm.readString(f, op == OpGetSuperLong)
			superclass := vm.pop().Obj.(*ObjClass)
			if !vm.bindMethod(superclass, name) {
				return vm.runtimeErrorf("Undefined property '%s'.", name.Chars)
			}
		case OpSuperInvoke, OpSuperInvokeLong:
			name := vm.readString(f, op == OpSuperInvokeLong)
			argc := int(readByte(f))
			superclass := vm.pop().Obj.(*ObjClass)
			if rerr := vm.invokeFromClass(superclass, name, argc); rerr != nil {
				return rerr
			}
			f = vm.frame()

		case OpJump:
			offset := readUint16(f)
			f.ip += offset
		case OpJumpBackwards:
			offset := readUint16(f)
			f.ip -= offset
		case OpJumpIfFalse:
			offset := readUint16(f)
			if vm.peek(0).IsFalsey() {
				f.ip += offset
			}
		case OpJumpIfTrue:
			offset := readUint16(f)
			if !vm.peek(0).IsFalsey() {
				f.ip += offset
			}

		case OpCall:
			argc := int(readByte(f))
			if rerr := vm.callValue(vm.peek(argc), argc); rerr != nil {
				return rerr
			}
			f = vm.frame()
		case OpInvoke, OpInvokeLong:
			name := vm.readString(f, op == OpInvokeLong)
			argc := int(readByte(f))
			if rerr := vm.invoke(name, argc); rerr != nil {
				return rerr
			}
			f = vm.frame()
		case OpClosure, OpClosureLong:
			fnVal := vm.readConstant(f, op == OpClosureLong)
			fn := fnVal.Obj.(*ObjFunction)
			closure := vm.gc.newClosure(fn)
			vm.push(ObjValue(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := readByte(f)
				index := int(readByte(f))
				if isLocal == 1 {
					closure.Upvalues[i] = vm.captureUpvalue(f.base + index)
				} else {
					closure.Upvalues[i] = f.closure.Upvalues[index]
				}
			}
		case OpCloseUpvalue:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()
		case OpReturn, OpReturnNil:
			var result Value
			if op == OpReturn {
				result = vm.pop()
			} else {
				result = NilValue()
			}
			vm.closeUpvalues(f.base)
			vm.frames = vm.frames[:len(vm.frames)-1]
			vm.sp = f.base
			vm.push(result)
			if len(vm.frames) == stopDepth {
				return nil
			}
			f = vm.frame()

		case OpSubscript:
			readByte(f) // argc operand, always 1 — single-index subscript only
			if rerr := vm.subscriptGet(); rerr != nil {
				return rerr
			}
		case OpSubscriptAssign:
			readByte(f)
			if rerr := vm.subscriptSet(); rerr != nil {
				return rerr
			}
		case OpNewArray:
			n := int(readByte(f))
			elements := make([]Value, n)
			for i := n - 1; i >= 0; i-- {
				elements[i] = vm.pop()
			}
			vm.push(ObjValue(vm.gc.newArray(elements)))

		case OpClass, OpClassLong:
			name := vm.readString(f, op == OpClassLong)
			vm.push(ObjValue(vm.gc.newClass(name)))
		case OpInherit:
			if !vm.peek(1).IsObj() {
				return vm.runtimeErrorf("Superclass must be a class.")
			}
			superclass, ok := vm.peek(1).Obj.(*ObjClass)
			if !ok {
				return vm.runtimeErrorf("Superclass must be a class.")
			}
			subclass := vm.peek(0).Obj.(*ObjClass)
			subclass.Methods.AddAll(superclass.Methods)
			vm.pop()
		case OpMethod, OpMethodLong:
			name := vm.readString(f, op == OpMethodLong)
			method := vm.peek(0)
			class := vm.peek(1).Obj.(*ObjClass)
			class.Methods.Set(name, method)
			vm.pop()

		case OpPrint:
			// Stringify before popping: toDisplayString may invoke a
			// user-defined toString() method, and a GC cycle triggered
			// during that nested call must still find this value via the
			// stack scan in markRoots.
			fmt.Fprintln(vm.stdout, vm.toDisplayString(vm.peek(0)))
			vm.pop()

		default:
			return vm.runtimeErrorf("Unknown opcode %d.", op)
		}
	}
}

// --- arithmetic / comparisons ---

// add implements ADD: numeric if both operands are numbers, string
// concatenation (via the toString protocol) if either operand is a
// string, otherwise a runtime error. See DESIGN.md's Open Question
// decisions for why "either" wins over a stricter "both must be
// strings" reading.
func (vm *VM) add() *RuntimeError {
	b := vm.peek(0)
	a := vm.peek(1)
	if a.IsNumber() && b.IsNumber() {
		vm.pop()
		vm.pop()
		vm.push(NumberValue(a.AsNumber() + b.AsNumber()))
		return nil
	}
	if a.IsString() || b.IsString() {
		// Stringify with both operands still on the stack (see the
		// OpPrint case) — toDisplayString can reenter the interpreter
		// via a user-defined toString() method, and any GC cycle that
		// triggers must still see a and b as roots.
		concatenated := vm.toDisplayString(a) + vm.toDisplayString(b)
		vm.pop()
		vm.pop()
		vm.push(ObjValue(vm.gc.interner.intern(vm.gc, concatenated)))
		return nil
	}
	return vm.runtimeErrorf("Operands must be two numbers or two strings.")
}

func (vm *VM) arithmetic(op OpCode) *RuntimeError {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeErrorf("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	switch op {
	case OpSubtract:
		vm.push(NumberValue(a - b))
	case OpMultiply:
		vm.push(NumberValue(a * b))
	case OpDivide:
		// a/0 follows IEEE-754: +Inf, -Inf, or NaN, not a runtime error.
		vm.push(NumberValue(a / b))
	}
	return nil
}

func (vm *VM) comparison(op OpCode) *RuntimeError {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeErrorf("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	switch op {
	case OpGreater:
		vm.push(BoolValue(a > b))
	case OpLess:
		vm.push(BoolValue(a < b))
	case OpGreaterEqual:
		vm.push(BoolValue(a >= b))
	case OpLessEqual:
		vm.push(BoolValue(a <= b))
	}
	return nil
}

// bitwise truncates both operands to int64.
func (vm *VM) bitwise(op OpCode) *RuntimeError {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeErrorf("Operands must be numbers.")
	}
	b := int64(vm.pop().AsNumber())
	a := int64(vm.pop().AsNumber())
	var r int64
	switch op {
	case OpShiftLeft:
		r = a << uint(b)
	case OpShiftRight:
		r = a >> uint(b)
	case OpBitAnd:
		r = a & b
	case OpBitOr:
		r = a | b
	case OpBitXor:
		r = a ^ b
	}
	vm.push(NumberValue(float64(r)))
	return nil
}

// --- calls / methods ---

func (vm *VM) call(closure *ObjClosure, argc int) *RuntimeError {
	if argc != closure.Function.Arity {
		return vm.runtimeErrorf("Expected %d arguments but got %d.", closure.Function.Arity, argc)
	}
	if len(vm.frames) >= framesMax {
		return vm.runtimeErrorf("Stack overflow.")
	}
	vm.frames = append(vm.frames, CallFrame{closure: closure, ip: 0, base: vm.sp - argc - 1})
	return nil
}

func (vm *VM) callValue(callee Value, argc int) *RuntimeError {
	if !callee.IsObj() {
		return vm.runtimeErrorf("Can only call functions and classes.")
	}
	switch o := callee.Obj.(type) {
	case *ObjClosure:
		return vm.call(o, argc)
	case *ObjClass:
		slot := vm.sp - argc - 1
		inst := vm.gc.newInstance(o)
		vm.stack[slot] = ObjValue(inst)
		if init, ok := o.Methods.Get(vm.initString); ok {
			return vm.call(init.Obj.(*ObjClosure), argc)
		}
		if argc != 0 {
			return vm.runtimeErrorf("Expected 0 arguments but got %d.", argc)
		}
		return nil
	case *ObjBoundMethod:
		slot := vm.sp - argc - 1
		vm.stack[slot] = o.Receiver
		return vm.call(o.Method, argc)
	case *ObjNativeFn:
		args := vm.stack[vm.sp-argc : vm.sp]
		vm.nativeError = ""
		result := o.Fn(vm, args)
		vm.sp = vm.sp - argc - 1
		if result.IsNullObject() {
			msg := vm.nativeError
			if msg == "" {
				msg = "native call failed"
			}
			return vm.runtimeErrorf("%s", msg)
		}
		vm.push(result)
		return nil
	default:
		return vm.runtimeErrorf("Can only call functions and classes.")
	}
}

func (vm *VM) invoke(name *ObjString, argc int) *RuntimeError {
	receiver := vm.peek(argc)
	if !receiver.IsObj() {
		return vm.runtimeErrorf("Only instances have methods.")
	}
	inst, ok := receiver.Obj.(*ObjInstance)
	if !ok {
		return vm.runtimeErrorf("Only instances have methods.")
	}
	if field, ok := inst.Fields.Get(name); ok {
		vm.stack[vm.sp-argc-1] = field
		return vm.callValue(field, argc)
	}
	return vm.invokeFromClass(inst.Class, name, argc)
}

func (vm *VM) invokeFromClass(class *ObjClass, name *ObjString, argc int) *RuntimeError {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeErrorf("Undefined property '%s'.", name.Chars)
	}
	return vm.call(method.Obj.(*ObjClosure), argc)
}

func (vm *VM) bindMethod(class *ObjClass, name *ObjString) bool {
	method, ok := class.Methods.Get(name)
	if !ok {
		return false
	}
	bound := vm.gc.newBoundMethod(vm.peek(0), method.Obj.(*ObjClosure))
	vm.pop()
	vm.push(ObjValue(bound))
	return true
}

func (vm *VM) getPropertyOp(name *ObjString) *RuntimeError {
	if !vm.peek(0).IsObj() {
		return vm.runtimeErrorf("Only instances have properties.")
	}
	inst, ok := vm.peek(0).Obj.(*ObjInstance)
	if !ok {
		return vm.runtimeErrorf("Only instances have properties.")
	}
	if field, ok := inst.Fields.Get(name); ok {
		vm.pop()
		vm.push(field)
		return nil
	}
	if vm.bindMethod(inst.Class, name) {
		return nil // bindMethod already popped the receiver and pushed the bound method
	}
	return vm.runtimeErrorf("Undefined property '%s'.", name.Chars)
}

// toDisplayString implements the toString protocol ADD and PRINT rely on:
// instances defining a toString() method have it invoked; everything else
// falls back to Value.String().
func (vm *VM) toDisplayString(v Value) string {
	if v.IsObj() {
		if inst, ok := v.Obj.(*ObjInstance); ok {
			if method, ok := inst.Class.Methods.Get(vm.toStringName); ok {
				if result, rerr := vm.invokeMethodSync(v, method.Obj.(*ObjClosure)); rerr == nil {
					return result.String()
				}
			}
		}
	}
	return v.String()
}

// invokeMethodSync calls method on receiver with no arguments and runs it
// to completion before returning, reentering runLoop at the current frame
// depth. Used by toDisplayString so stringification can surface a
// user-defined toString() without a second dispatch loop.
func (vm *VM) invokeMethodSync(receiver Value, method *ObjClosure) (Value, *RuntimeError) {
	baseDepth := len(vm.frames)
	vm.push(receiver)
	if rerr := vm.call(method, 0); rerr != nil {
		vm.pop()
		return Value{}, rerr
	}
	if rerr := vm.runLoop(baseDepth); rerr != nil {
		return Value{}, rerr
	}
	return vm.pop(), nil
}

// GetProperty is the natives-facing property read (fields then methods).
func (vm *VM) GetProperty(obj Value, name *ObjString) (Value, bool) {
	inst, ok := obj.Obj.(*ObjInstance)
	if !ok {
		return Value{}, false
	}
	if field, ok := inst.Fields.Get(name); ok {
		return field, true
	}
	if method, ok := inst.Class.Methods.Get(name); ok {
		return method, true
	}
	return Value{}, false
}

// --- upvalues ---

func (vm *VM) upvalueValue(u *ObjUpvalue) Value {
	if u.open {
		return vm.stack[u.slot]
	}
	return u.Closed
}

func (vm *VM) setUpvalueValue(u *ObjUpvalue, v Value) {
	if u.open {
		vm.stack[u.slot] = v
		return
	}
	u.Closed = v
}

// captureUpvalue walks the open-upvalue list (strictly descending by
// slot) to find an existing open upvalue for slot, else inserts a new
// one in sorted position.
func (vm *VM) captureUpvalue(slot int) *ObjUpvalue {
	var prev *ObjUpvalue
	cur := vm.openUpvalues
	for cur != nil && cur.slot > slot {
		prev = cur
		cur = cur.nextOpen
	}
	if cur != nil && cur.slot == slot {
		return cur
	}
	created := vm.gc.newUpvalue(slot)
	created.nextOpen = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.nextOpen = created
	}
	return created
}

// closeUpvalues closes every open upvalue whose slot is >= fromSlot.
func (vm *VM) closeUpvalues(fromSlot int) {
	for vm.openUpvalues != nil && vm.openUpvalues.slot >= fromSlot {
		u := vm.openUpvalues
		u.Closed = vm.stack[u.slot]
		u.open = false
		vm.openUpvalues = u.nextOpen
	}
}

// --- subscript / arrays ---

func (vm *VM) subscriptGet() *RuntimeError {
	index := vm.pop()
	obj := vm.pop()
	if !index.IsNumber() {
		return vm.runtimeErrorf("Index must be a number.")
	}
	i := index.AsInt()
	if obj.IsObj() {
		switch o := obj.Obj.(type) {
		case *ObjArray:
			if i < 0 || i >= len(o.Elements) {
				return vm.runtimeErrorf("Array index out of range.")
			}
			vm.push(o.Elements[i])
			return nil
		case *ObjString:
			if i < 0 || i >= len(o.Chars) {
				return vm.runtimeErrorf("String index out of range.")
			}
			vm.push(ObjValue(vm.gc.interner.intern(vm.gc, string(o.Chars[i]))))
			return nil
		}
	}
	return vm.runtimeErrorf("Can only index arrays and strings.")
}

func (vm *VM) subscriptSet() *RuntimeError {
	value := vm.pop()
	index := vm.pop()
	obj := vm.pop()
	if !index.IsNumber() {
		return vm.runtimeErrorf("Index must be a number.")
	}
	arr, ok := obj.Obj.(*ObjArray)
	if !obj.IsObj() || !ok {
		return vm.runtimeErrorf("Only arrays support index assignment.")
	}
	i := index.AsInt()
	if i < 0 || i >= len(arr.Elements) {
		return vm.runtimeErrorf("Array index out of range.")
	}
	arr.Elements[i] = value
	vm.push(value)
	return nil
}

// --- errors ---

// runtimeErrorf builds a RuntimeError with a back-trace walking the frame
// stack top-down.
func (vm *VM) runtimeErrorf(format string, args ...interface{}) *RuntimeError {
	re := &RuntimeError{Message: fmt.Sprintf(format, args...)}
	for i := len(vm.frames) - 1; i >= 0; i-- {
		fr := vm.frames[i]
		fn := fr.closure.Function
		line := 0
		if fr.ip-1 >= 0 && fr.ip-1 < len(fn.Chunk.Lines) {
			line = fn.Chunk.Lines[fr.ip-1]
		}
		name := "script"
		if fn.Name != nil {
			name = fn.Name.Chars + "()"
		}
		re.Trace = append(re.Trace, fmt.Sprintf("[line %d] in %s", line, name))
	}
	return re
}
