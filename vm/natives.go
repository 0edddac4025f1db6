package vm

import (
	"math"
	"time"
)

// registerNatives installs every native function as an ordinary global:
// there is no module or import system, so natives live in the same global
// namespace as user code.
func registerNatives(vm *VM) {
	vm.defineNative("clock", nativeClock)
	vm.defineNative("toString", nativeToString)
	vm.defineNative("getTypeName", nativeGetTypeName)
	vm.defineNative("has", nativeHas)
	vm.defineNative("get", nativeGet)
	vm.defineNative("set", nativeSet)
	vm.defineNative("size", nativeSize)

	vm.defineNative("pow", native2(math.Pow))
	vm.defineNative("sqrt", native1Checked(math.Sqrt, func(x float64) bool { return x >= 0 }, "sqrt of negative number"))
	vm.defineNative("floor", native1(math.Floor))
	vm.defineNative("ceil", native1(math.Ceil))
	vm.defineNative("round", native1(math.Round))
	vm.defineNative("abs", native1(math.Abs))
	vm.defineNative("min", nativeMinMax(false))
	vm.defineNative("max", nativeMinMax(true))
}

func (vm *VM) defineNative(name string, fn NativeFn) {
	native := vm.gc.newNative(name, fn)
	nameStr := vm.gc.interner.intern(vm.gc, name)
	vm.globals.Set(nameStr, ObjValue(native))
}

// fail records a native-reported error message and returns the null-object
// sentinel callValue recognizes as "this call failed."
func (vm *VM) fail(msg string) Value {
	vm.nativeError = msg
	return NullObject()
}

func nativeClock(vm *VM, args []Value) Value {
	return NumberValue(float64(time.Now().UnixNano()) / 1e9)
}

func nativeToString(vm *VM, args []Value) Value {
	if len(args) != 1 {
		return vm.fail("toString requires 1 argument")
	}
	return ObjValue(vm.gc.interner.intern(vm.gc, vm.toDisplayString(args[0])))
}

func nativeGetTypeName(vm *VM, args []Value) Value {
	if len(args) != 1 {
		return vm.fail("getTypeName requires 1 argument")
	}
	return ObjValue(vm.gc.interner.intern(vm.gc, typeName(args[0])))
}

func typeName(v Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBool():
		return "bool"
	case v.IsNumber():
		return "number"
	case v.IsString():
		return "string"
	case v.IsObj():
		switch v.Obj.(type) {
		case *ObjFunction, *ObjClosure, *ObjNativeFn, *ObjBoundMethod:
			return "function"
		case *ObjClass:
			return "class"
		case *ObjInstance:
			return "instance"
		case *ObjArray:
			return "array"
		}
	}
	return "unknown"
}

// nativeHas/nativeGet/nativeSet give natives (and user code, through them)
// reflective access to instance fields without new opcodes.
func nativeHas(vm *VM, args []Value) Value {
	if len(args) != 2 || !args[1].IsString() {
		return vm.fail("has requires (instance, name)")
	}
	inst, ok := args[0].Obj.(*ObjInstance)
	if !args[0].IsObj() || !ok {
		return BoolValue(false)
	}
	_, found := inst.Fields.Get(args[1].AsString())
	return BoolValue(found)
}

func nativeGet(vm *VM, args []Value) Value {
	if len(args) != 2 || !args[1].IsString() {
		return vm.fail("get requires (instance, name)")
	}
	if !args[0].IsObj() {
		return vm.fail("get requires an instance")
	}
	val, ok := vm.GetProperty(args[0], args[1].AsString())
	if !ok {
		return vm.fail("Undefined property '" + args[1].AsString().Chars + "'.")
	}
	return val
}

func nativeSet(vm *VM, args []Value) Value {
	if len(args) != 3 || !args[1].IsString() {
		return vm.fail("set requires (instance, name, value)")
	}
	inst, ok := args[0].Obj.(*ObjInstance)
	if !args[0].IsObj() || !ok {
		return vm.fail("set requires an instance")
	}
	inst.Fields.Set(args[1].AsString(), args[2])
	return args[2]
}

func nativeSize(vm *VM, args []Value) Value {
	if len(args) != 1 {
		return vm.fail("size requires 1 argument")
	}
	if args[0].IsString() {
		return NumberValue(float64(len(args[0].AsString().Chars)))
	}
	if arr, ok := args[0].Obj.(*ObjArray); args[0].IsObj() && ok {
		return NumberValue(float64(len(arr.Elements)))
	}
	if inst, ok := args[0].Obj.(*ObjInstance); args[0].IsObj() && ok {
		return NumberValue(float64(inst.Fields.Count()))
	}
	return vm.fail("size requires a string, array, or instance")
}

func native1(f func(float64) float64) NativeFn {
	return func(vm *VM, args []Value) Value {
		if len(args) != 1 || !args[0].IsNumber() {
			return vm.fail("expects 1 numeric argument")
		}
		return NumberValue(f(args[0].AsNumber()))
	}
}

func native1Checked(f func(float64) float64, domain func(float64) bool, domainErr string) NativeFn {
	return func(vm *VM, args []Value) Value {
		if len(args) != 1 || !args[0].IsNumber() {
			return vm.fail("expects 1 numeric argument")
		}
		x := args[0].AsNumber()
		if !domain(x) {
			return vm.fail(domainErr)
		}
		return NumberValue(f(x))
	}
}

func native2(f func(a, b float64) float64) NativeFn {
	return func(vm *VM, args []Value) Value {
		if len(args) != 2 || !args[0].IsNumber() || !args[1].IsNumber() {
			return vm.fail("expects 2 numeric arguments")
		}
		return NumberValue(f(args[0].AsNumber(), args[1].AsNumber()))
	}
}

func nativeMinMax(wantMax bool) NativeFn {
	return func(vm *VM, args []Value) Value {
		if len(args) < 2 {
			return vm.fail("requires at least 2 arguments")
		}
		best := args[0].AsNumber()
		if !args[0].IsNumber() {
			return vm.fail("requires numeric arguments")
		}
		for _, a := range args[1:] {
			if !a.IsNumber() {
				return vm.fail("requires numeric arguments")
			}
			n := a.AsNumber()
			if (wantMax && n > best) || (!wantMax && n < best) {
				best = n
			}
		}
		return NumberValue(best)
	}
}
