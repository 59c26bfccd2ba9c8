package ndmesh

import (
	"fmt"
	"math"
	"reflect"
)

// Number is the set of element types a Block or View may hold.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64
}

// Kind classifies a Value.
type Kind uint8

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindUint
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindUint:
		return "uint"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is the result of evaluating an expression at one coordinate.
// Integers are carried as int64 and floats as float64; a bool is an integer
// restricted to 0 and 1. 64-bit unsigned elements keep their bits in the
// int64 and are marked KindUint so they compare, divide and shift unsigned.
type Value struct {
	kind Kind
	i    int64
	f    float64
}

// IntValue returns an integer Value.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue returns a floating point Value.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// UintValue returns an unsigned integer Value.
func UintValue(u uint64) Value { return Value{kind: KindUint, i: int64(u)} }

// BoolValue returns a boolean Value.
func BoolValue(b bool) Value {
	if b {
		return Value{kind: KindBool, i: 1}
	}
	return Value{kind: KindBool}
}

// Kind returns the value's classification.
func (v Value) Kind() Kind { return v.kind }

// Int returns v as an integer, truncating floats toward zero. Unsigned
// values convert with Go's wrap-around semantics.
func (v Value) Int() int64 {
	if v.kind == KindFloat {
		return int64(v.f)
	}
	return v.i
}

// Uint returns v as an unsigned integer with Go conversion semantics.
func (v Value) Uint() uint64 {
	if v.kind == KindFloat {
		return uint64(v.f)
	}
	return uint64(v.i)
}

// Float returns v as a float.
func (v Value) Float() float64 {
	switch v.kind {
	case KindFloat:
		return v.f
	case KindUint:
		return float64(uint64(v.i))
	}
	return float64(v.i)
}

// Bool reports whether v is non-zero.
func (v Value) Bool() bool {
	if v.kind == KindFloat {
		return v.f != 0
	}
	return v.i != 0
}

func (v Value) String() string {
	switch v.kind {
	case KindFloat:
		return fmt.Sprint(v.f)
	case KindBool:
		return fmt.Sprint(v.i != 0)
	case KindUint:
		return fmt.Sprint(uint64(v.i))
	default:
		return fmt.Sprint(v.i)
	}
}

func isFloat[E Number]() bool {
	half := 0.5
	return E(half) != 0
}

// isWideUnsigned reports whether E is an unsigned type too wide for int64
// to hold every value.
func isWideUnsigned[E Number]() bool {
	var top E
	top--
	if top <= 0 {
		return false
	}
	wide := uint64(1) << 32
	return E(wide) != 0
}

func valueOf[E Number](e E) Value {
	if isFloat[E]() {
		return FloatValue(float64(e))
	}
	if isWideUnsigned[E]() {
		return UintValue(uint64(e))
	}
	return IntValue(int64(e))
}

func fromValue[E Number](v Value) E {
	if isFloat[E]() {
		return E(v.Float())
	}
	if isWideUnsigned[E]() {
		return E(v.Uint())
	}
	return E(v.Int())
}

// valueOfAny converts a Go scalar into a Value; ok is false for other types.
func valueOfAny(x interface{}) (Value, bool) {
	switch t := x.(type) {
	case int:
		return IntValue(int64(t)), true
	case int64:
		return IntValue(t), true
	case int32:
		return IntValue(int64(t)), true
	case uint8:
		return IntValue(int64(t)), true
	case float64:
		return FloatValue(t), true
	case float32:
		return FloatValue(float64(t)), true
	case bool:
		return BoolValue(t), true
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return IntValue(rv.Int()), true
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return IntValue(int64(rv.Uint())), true
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return UintValue(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return FloatValue(rv.Float()), true
	case reflect.Bool:
		return BoolValue(rv.Bool()), true
	}
	return Value{}, false
}

type arithOp uint8

const (
	opAdd arithOp = iota
	opSub
	opMul
	opDiv
	opMod
	opAnd
	opOr
	opXor
	opAndNot
	opShl
	opShr
)

var arithNames = [...]string{"+", "-", "*", "/", "%", "&", "|", "^", "&^", "<<", ">>"}

func (op arithOp) String() string { return arithNames[op] }

func (op arithOp) bitwise() bool { return op >= opAnd }

func arith(op arithOp, x, y Value) Value {
	if x.kind == KindFloat || y.kind == KindFloat {
		if op.bitwise() {
			violate(ErrOperand, "%s on float operands %s, %s", op, x, y)
		}
		a, b := x.Float(), y.Float()
		switch op {
		case opAdd:
			return FloatValue(a + b)
		case opSub:
			return FloatValue(a - b)
		case opMul:
			return FloatValue(a * b)
		case opDiv:
			return FloatValue(a / b)
		default:
			return FloatValue(math.Mod(a, b))
		}
	}

	if (op == opDiv || op == opMod) && y.i == 0 {
		violate(ErrOperand, "integer %s by zero: %s %s %s", op, x, op, y)
	}
	if unsignedPair(x, y) {
		return uintArith(op, uint64(x.i), uint64(y.i))
	}

	a, b := x.i, y.i
	switch op {
	case opAdd:
		return IntValue(a + b)
	case opSub:
		return IntValue(a - b)
	case opMul:
		return IntValue(a * b)
	case opDiv:
		return IntValue(a / b)
	case opMod:
		return IntValue(a % b)
	case opAnd:
		return IntValue(a & b)
	case opOr:
		return IntValue(a | b)
	case opXor:
		return IntValue(a ^ b)
	case opAndNot:
		return IntValue(a &^ b)
	case opShl:
		return IntValue(a << uint64(b))
	default:
		return IntValue(a >> uint64(b))
	}
}

// unsignedPair reports whether integer arithmetic on x and y runs unsigned:
// at least one is KindUint and neither is negative.
func unsignedPair(x, y Value) bool {
	if x.kind != KindUint && y.kind != KindUint {
		return false
	}
	return (x.kind == KindUint || x.i >= 0) && (y.kind == KindUint || y.i >= 0)
}

func uintArith(op arithOp, a, b uint64) Value {
	switch op {
	case opAdd:
		return UintValue(a + b)
	case opSub:
		return UintValue(a - b)
	case opMul:
		return UintValue(a * b)
	case opDiv:
		return UintValue(a / b)
	case opMod:
		return UintValue(a % b)
	case opAnd:
		return UintValue(a & b)
	case opOr:
		return UintValue(a | b)
	case opXor:
		return UintValue(a ^ b)
	case opAndNot:
		return UintValue(a &^ b)
	case opShl:
		return UintValue(a << b)
	default:
		return UintValue(a >> b)
	}
}

type cmpOp uint8

const (
	opEq cmpOp = iota
	opNe
	opLt
	opLe
	opGt
	opGe
)

var cmpNames = [...]string{"==", "!=", "<", "<=", ">", ">="}

func (op cmpOp) String() string { return cmpNames[op] }

// flip returns the operator that gives the same result with swapped operands.
func (op cmpOp) flip() cmpOp {
	switch op {
	case opLt:
		return opGt
	case opLe:
		return opGe
	case opGt:
		return opLt
	case opGe:
		return opLe
	default:
		return op
	}
}

func compare(op cmpOp, x, y Value) Value {
	var c int
	if x.kind == KindFloat || y.kind == KindFloat {
		a, b := x.Float(), y.Float()
		switch {
		case a < b:
			c = -1
		case a > b:
			c = 1
		case a != b:
			// NaN compares false against everything except !=.
			return BoolValue(op == opNe)
		}
	} else {
		c = compareInts(x, y)
	}

	switch op {
	case opEq:
		return BoolValue(c == 0)
	case opNe:
		return BoolValue(c != 0)
	case opLt:
		return BoolValue(c < 0)
	case opLe:
		return BoolValue(c <= 0)
	case opGt:
		return BoolValue(c > 0)
	default:
		return BoolValue(c >= 0)
	}
}

// compareInts orders two integer values, treating KindUint operands as
// unsigned. A negative signed value sorts below every unsigned one.
func compareInts(x, y Value) int {
	xu, yu := x.kind == KindUint, y.kind == KindUint
	switch {
	case xu && !yu && y.i < 0:
		return 1
	case yu && !xu && x.i < 0:
		return -1
	case xu || yu:
		a, b := uint64(x.i), uint64(y.i)
		if a < b {
			return -1
		} else if a > b {
			return 1
		}
		return 0
	}
	if x.i < y.i {
		return -1
	} else if x.i > y.i {
		return 1
	}
	return 0
}
