package vm

import "fmt"

// ValueKind tags the variant a Value currently holds.
type ValueKind byte

const (
	ValNil ValueKind = iota
	ValBool
	ValNumber
	ValObj
	// valInt is an internal-only variant, never observable to source
	// code. The compiler's string constant dedup table (stringConsts)
	// stores plain Go ints and does not use it.
	valInt
)

// Value is a tagged union: nil, bool, and number stay inline in Num,
// heap objects go through Obj.
type Value struct {
	Kind ValueKind
	Num  float64 // ValNumber payload, or ValBool (0/1), or valInt payload
	Obj  Obj     // ValObj payload
}

func NilValue() Value               { return Value{Kind: ValNil} }
func BoolValue(b bool) Value        { return Value{Kind: ValBool, Num: boolToFloat(b)} }
func NumberValue(n float64) Value   { return Value{Kind: ValNumber, Num: n} }
func ObjValue(o Obj) Value          { return Value{Kind: ValObj, Obj: o} }
func intValue(i int) Value          { return Value{Kind: valInt, Num: float64(i)} }

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (v Value) IsNil() bool    { return v.Kind == ValNil }
func (v Value) IsBool() bool   { return v.Kind == ValBool }
func (v Value) IsNumber() bool { return v.Kind == ValNumber }
func (v Value) IsObj() bool    { return v.Kind == ValObj }

func (v Value) AsBool() bool      { return v.Num != 0 }
func (v Value) AsNumber() float64 { return v.Num }
func (v Value) AsInt() int        { return int(v.Num) }

// IsFalsey implements the language's truthiness: nil and false are
// falsey, everything else (including 0 and "") is truthy.
func (v Value) IsFalsey() bool {
	return v.IsNil() || (v.IsBool() && !v.AsBool())
}

func (v Value) IsString() bool {
	_, ok := v.Obj.(*ObjString)
	return v.Kind == ValObj && ok
}

func (v Value) AsString() *ObjString { return v.Obj.(*ObjString) }

// IsNullObject reports the synthetic null-object sentinel natives return
// to signal failure, without needing a distinct Kind.
func (v Value) IsNullObject() bool {
	_, ok := v.Obj.(*objNull)
	return v.Kind == ValObj && ok
}

var nullObjectSentinel = &objNull{}

// NullObject is the value natives return to signal failure.
func NullObject() Value { return ObjValue(nullObjectSentinel) }

type objNull struct{ objHeader }

func (o *objNull) objType() ObjType { return ObjNative } // never actually traced/allocated
func (o *objNull) String() string   { return "<null>" }

// ValuesEqual implements EQ/NEQ: interned strings compare by identity,
// everything else by kind then payload.
func ValuesEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ValNil:
		return true
	case ValBool, ValNumber:
		return a.Num == b.Num
	case ValObj:
		if as, ok := a.Obj.(*ObjString); ok {
			if bs, ok := b.Obj.(*ObjString); ok {
				return as == bs // interning: pointer identity coincides with content equality
			}
			return false
		}
		return a.Obj == b.Obj
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case ValNil:
		return "nil"
	case ValBool:
		return fmt.Sprintf("%v", v.AsBool())
	case ValNumber:
		return formatNumber(v.Num)
	case ValObj:
		return v.Obj.String()
	default:
		return "<internal>"
	}
}

// formatNumber renders a double compactly: integral values print without
// a fractional part.
func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}
