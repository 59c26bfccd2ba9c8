package ndmesh

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrScenario(t *testing.T) {
	blk := NewBlock[int](10, 10)
	i, j := NewIter("i"), NewIter("j")
	blk.Ref(i, j).Assign(Select(Eq(Add(i, j), Or(0, 1, 2)), 9, 1))

	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			want := 1
			if y+x <= 2 {
				want = 9
			}
			require.Equal(t, want, blk.Read(y, x), "(%d, %d)", y, x)
		}
	}
}

func TestAndGroup(t *testing.T) {
	b := NewBlock[int](1, 6)
	j := NewIter("j")
	b.Ref(0, j).Assign(Select(Gt(j, And(1, 2)), 1, 0))
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1}, b.Values())

	// a group on the left flips the operator
	b.Ref(0, j).Assign(Select(Lt(Or(1, 4), j), 1, 0))
	assert.Equal(t, []int{0, 0, 1, 1, 1, 1}, b.Values())
}

func TestAssignTranspose(t *testing.T) {
	src := iotaBlock(3, 4)
	dst := NewBlock[int](4, 3)
	i, j := NewIter("i"), NewIter("j")
	dst.Ref(i, j).Assign(src.Ref(j, i))
	assert.Equal(t, src.Permute(1, 0).Values(), dst.Values())
}

func TestAssignLiteralIndexPinsDimension(t *testing.T) {
	b := NewBlock[int](3, 4)
	j := NewIter("j")
	b.Ref(1, j).Assign(Mul(j, 10))
	assert.Equal(t, []int{0, 0, 0, 0, 0, 10, 20, 30, 0, 0, 0, 0}, b.Values())

	b.Ref(2).Index(3).Assign(7)
	assert.Equal(t, 7, b.Read(2, 3))
}

func TestAssignPadsMissingLeadingIndexes(t *testing.T) {
	b := NewBlock[int](2, 3)
	j := NewIter("j")
	b.Ref(j).Assign(Add(j, 1))
	assert.Equal(t, []int{1, 2, 3, 0, 0, 0}, b.Values())
}

func TestAssignThroughViews(t *testing.T) {
	b := NewBlock[int](4, 4)
	win := b.Slice(Span(1, 3), Stepped(0, 4, 2))
	i, j := NewIter("i"), NewIter("j")
	win.Ref(i, j).Assign(Add(Mul(i, 2), j))
	assert.Equal(t, []int{
		0, 0, 0, 0,
		0, 0, 1, 0,
		2, 0, 3, 0,
		0, 0, 0, 0,
	}, b.Values())
}

func TestIndexExpressionsOnRead(t *testing.T) {
	src := iotaBlock(4, 4)
	dst := NewBlock[int](4)
	i := NewIter("i")
	dst.Ref(i).Assign(src.Ref(Sub(3, i), Mod(Add(i, 1), 4)))
	assert.Equal(t, []int{13, 10, 7, 0}, dst.Values())
}

func TestRefIndexIsImmutable(t *testing.T) {
	b := iotaBlock(3, 3)
	row := b.Ref(1)
	a, c := row.Index(0), row.Index(2)
	assert.Equal(t, 3, a.Value())
	assert.Equal(t, 5, c.Value())
	assert.Equal(t, 2, b.Ref(2).Value(), "missing leading index reads row 0")
}

func TestAssignContract(t *testing.T) {
	b := NewBlock[int](3, 3)
	i, j := NewIter("i"), NewIter("j")

	requireContract(t, ErrDuplicateIterator, func() { b.Ref(i, i).Assign(0) })
	requireContract(t, ErrUnboundIterator, func() { b.Ref(i, 0).Assign(j) })
	requireContract(t, ErrIndexExpression, func() { b.Ref(Add(i, 1), j).Assign(0) })
	requireContract(t, ErrRankMismatch, func() { b.Ref(i, j, 0).Assign(0) })
	requireContract(t, ErrOperand, func() { b.Ref(1.5, j).Assign(0) })
	requireContract(t, ErrUnboundIterator, func() { b.Ref(i, j).Value() })
	requireContract(t, ErrOutOfBounds, func() { b.Ref(i, 0).Assign(b.Ref(Add(i, 1), 0)) })
}

func TestIteratorsCompareByIdentity(t *testing.T) {
	b := NewBlock[int](2, 2)
	a1, a2 := NewIter("a"), NewIter("a")
	b.Ref(a1, a2).Assign(Add(Mul(a1, 2), a2))
	assert.Equal(t, []int{0, 1, 2, 3}, b.Values())
}

func TestGroupOutsideComparison(t *testing.T) {
	requireContract(t, ErrOperand, func() { Add(Or(1, 2), 1) })
	requireContract(t, ErrOperand, func() { Eq(Or(1), And(2)) })
	requireContract(t, ErrOperand, func() { Or() })
	requireContract(t, ErrOperand, func() { NewBlock[int](2).Ref(NewIter("i")).Assign(Or(1, 2)) })
	requireContract(t, ErrOperand, func() { Lit("text") })
}

func TestWideUnsignedElements(t *testing.T) {
	b := WrapSlice([]uint64{math.MaxUint64, 1 << 63, 6}, 3)
	i := NewIter("i")

	flags := NewBlock[int](3)
	flags.Ref(i).Assign(Select(Gt(b.Ref(i), 0), 1, 0))
	assert.Equal(t, []int{1, 1, 1}, flags.Values())

	halves := NewBlock[uint64](3)
	halves.Ref(i).Assign(Div(b.Ref(i), 2))
	assert.Equal(t, []uint64{math.MaxInt64, 1 << 62, 3}, halves.Values())

	b.Ref(i).Assign(Shr(b.Ref(i), 1))
	assert.Equal(t, []uint64{math.MaxInt64, 1 << 62, 3}, b.Values())
	assert.Equal(t, "uint", UintValue(1).Kind().String())
	assert.Equal(t, "18446744073709551615", UintValue(math.MaxUint64).String())
}

func TestIntegerDivisionByZero(t *testing.T) {
	b := iotaBlock(3)
	i := NewIter("i")
	requireContract(t, ErrOperand, func() { b.Ref(i).Assign(Div(10, b.Ref(i))) })
	requireContract(t, ErrOperand, func() { b.Ref(i).Assign(Mod(b.Ref(i), 0)) })
	requireContract(t, ErrOperand, func() { Div(uint64(1), uint64(0)).eval(nil) })
	assert.True(t, math.IsInf(Div(1.0, 0).eval(nil).Float(), 1))
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
		want Value
	}{
		{"add", Add(2, 3), IntValue(5)},
		{"sub", Sub(2, 3), IntValue(-1)},
		{"mul", Mul(4, 3), IntValue(12)},
		{"div truncates", Div(-7, 2), IntValue(-3)},
		{"mod", Mod(-7, 2), IntValue(-1)},
		{"promotes to float", Add(1, 0.5), FloatValue(1.5)},
		{"float div", Div(7.0, 2), FloatValue(3.5)},
		{"float mod", Mod(7.5, 2), FloatValue(1.5)},
		{"and", BitAnd(6, 3), IntValue(2)},
		{"or", BitOr(6, 3), IntValue(7)},
		{"xor", BitXor(6, 3), IntValue(5)},
		{"and not", AndNot(6, 3), IntValue(4)},
		{"shl", Shl(1, 4), IntValue(16)},
		{"shr keeps sign", Shr(-16, 2), IntValue(-4)},
		{"neg", Neg(3), IntValue(-3)},
		{"neg float", Neg(0.5), FloatValue(-0.5)},
		{"bit not", BitNot(0), IntValue(-1)},
		{"not", Not(true), BoolValue(false)},
		{"lt", Lt(1, 2), BoolValue(true)},
		{"ge", Ge(1, 2), BoolValue(false)},
		{"ne", Ne(1, 1.0), BoolValue(false)},
		{"land", Land(true, Lt(1, 2), 1), BoolValue(true)},
		{"lor", Lor(false, 0), BoolValue(false)},
		{"select", Select(Le(2, 2), 10, 20), IntValue(10)},
		{"cast wraps", Cast[uint8](300), IntValue(44)},
		{"cast truncates", Cast[int](2.7), IntValue(2)},
		{"cast to float", Cast[float32](3), FloatValue(3)},
		{"uint div", Div(uint64(math.MaxUint64), 2), UintValue(math.MaxInt64)},
		{"uint mod", Mod(uint64(math.MaxUint64), 10), UintValue(5)},
		{"uint shr is logical", Shr(uint64(1)<<63, 62), UintValue(2)},
		{"uint sub wraps", Sub(uint64(0), 1), UintValue(math.MaxUint64)},
		{"uint above int64", Gt(uint64(math.MaxUint64), 0), BoolValue(true)},
		{"negative below uint", Lt(-1, uint64(0)), BoolValue(true)},
		{"uint with negative operand", Add(uint64(5), -7), IntValue(-2)},
		{"uint neg wraps", Neg(uint64(1)), UintValue(math.MaxUint64)},
		{"uint to float", Add(uint64(math.MaxUint64), 0.0), FloatValue(math.MaxUint64)},
		{"small uint stays signed", Sub(uint8(0), 1), IntValue(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.expr.eval(nil))
		})
	}
}

func TestFloatOperands(t *testing.T) {
	requireContract(t, ErrOperand, func() { BitAnd(1.5, 1).eval(nil) })
	requireContract(t, ErrOperand, func() { BitNot(1.5).eval(nil) })

	nan := Lit(math.NaN())
	assert.False(t, Eq(nan, nan).eval(nil).Bool())
	assert.True(t, Ne(nan, nan).eval(nil).Bool())
	assert.False(t, Lt(nan, 1).eval(nil).Bool())
}

func TestLorShortCircuits(t *testing.T) {
	b := NewBlock[int](2)
	// the right operand would read out of bounds
	v := Lor(true, Eq(b.Ref(5), 0)).eval(nil)
	assert.True(t, v.Bool())
}

func TestFloatBlockAssign(t *testing.T) {
	b := NewBlock[float64](2, 2)
	i, j := NewIter("i"), NewIter("j")
	b.Ref(i, j).Assign(Div(Add(i, j), 4))
	assert.Equal(t, []float64{0, 0, 0, 0}, b.Values(), "integer division before conversion")

	b.Ref(i, j).Assign(Div(Add(i, j), 4.0))
	assert.Equal(t, []float64{0, 0.25, 0.25, 0.5}, b.Values())
}

func TestExprString(t *testing.T) {
	i := NewIter("i")
	assert.Equal(t, "((i + 1) < 3)", Lt(Add(i, 1), 3).String())
	assert.Equal(t, "((i == 0) || (i == 1))", Eq(i, Or(0, 1)).String())
	assert.Equal(t, "ref[i][2]", NewBlock[int](3, 3).Ref(i, 2).String())
	assert.Equal(t, "uint8(-i)", Cast[uint8](Neg(i)).String())
}
