package ndmesh

import (
	"fmt"
	"strings"
)

// Expr is a node of an elementwise expression. Expressions are built with
// the constructors in this file, element reads (Ref) and iterator symbols
// (Iter), and are evaluated once per coordinate by Ref.Assign.
//
// Operands passed to constructors may be Exprs or plain Go numbers and
// bools, which become literals.
type Expr interface {
	fmt.Stringer

	// eval computes the node at the current loop coordinate.
	eval(e *env) Value
	// operands returns the direct children of the node.
	operands() []Expr
}

// env resolves iterator symbols to the coordinate of the loop nest being
// executed. iters[d] is the symbol driving dimension d, or nil.
type env struct {
	iters []*Iter
	coord []int
}

func (e *env) lookup(it *Iter) int {
	if e != nil {
		for d, x := range e.iters {
			if x == it {
				return e.coord[d]
			}
		}
	}
	violate(ErrUnboundIterator, "iterator %s", it)
	return 0
}

// Iter is an iterator symbol. Used as an assignment index it means "every
// position of this dimension"; used in an expression it evaluates to the
// current position. Symbols are compared by identity, never by name.
type Iter struct {
	name string
}

// NewIter returns a fresh iterator symbol. The name is only used for display.
func NewIter(name string) *Iter {
	return &Iter{name: name}
}

// Iters returns one fresh symbol per name.
func Iters(names ...string) []*Iter {
	out := make([]*Iter, len(names))
	for i, n := range names {
		out[i] = NewIter(n)
	}
	return out
}

func (it *Iter) eval(e *env) Value { return IntValue(int64(e.lookup(it))) }
func (it *Iter) operands() []Expr  { return nil }
func (it *Iter) String() string    { return it.name }

type literal struct {
	v Value
}

// Lit returns a literal for a Go number or bool.
func Lit(x interface{}) Expr {
	return lift(x)
}

func (l *literal) eval(*env) Value  { return l.v }
func (l *literal) operands() []Expr { return nil }
func (l *literal) String() string   { return l.v.String() }

// lift converts a constructor operand into an Expr.
func lift(x interface{}) Expr {
	if e, ok := x.(Expr); ok {
		return e
	}
	if v, ok := valueOfAny(x); ok {
		return &literal{v: v}
	}
	violate(ErrOperand, "cannot use %T as an expression", x)
	return nil
}

type binaryExpr struct {
	op   arithOp
	x, y Expr
}

func (b *binaryExpr) eval(e *env) Value {
	return arith(b.op, b.x.eval(e), b.y.eval(e))
}
func (b *binaryExpr) operands() []Expr { return []Expr{b.x, b.y} }
func (b *binaryExpr) String() string   { return fmt.Sprintf("(%s %s %s)", b.x, b.op, b.y) }

func newBinary(op arithOp, x, y interface{}) Expr {
	return &binaryExpr{op: op, x: operand(x), y: operand(y)}
}

// operand lifts x and rejects a grouped disjunction outside a comparison.
func operand(x interface{}) Expr {
	e := lift(x)
	if g, ok := e.(*group); ok {
		violate(ErrOperand, "%s may only be compared against", g)
	}
	return e
}

// Add returns x + y.
func Add(x, y interface{}) Expr { return newBinary(opAdd, x, y) }

// Sub returns x - y.
func Sub(x, y interface{}) Expr { return newBinary(opSub, x, y) }

// Mul returns x * y.
func Mul(x, y interface{}) Expr { return newBinary(opMul, x, y) }

// Div returns x / y, truncated for integers.
func Div(x, y interface{}) Expr { return newBinary(opDiv, x, y) }

// Mod returns x % y.
func Mod(x, y interface{}) Expr { return newBinary(opMod, x, y) }

// BitAnd returns x & y.
func BitAnd(x, y interface{}) Expr { return newBinary(opAnd, x, y) }

// BitOr returns x | y.
func BitOr(x, y interface{}) Expr { return newBinary(opOr, x, y) }

// BitXor returns x ^ y.
func BitXor(x, y interface{}) Expr { return newBinary(opXor, x, y) }

// AndNot returns x &^ y.
func AndNot(x, y interface{}) Expr { return newBinary(opAndNot, x, y) }

// Shl returns x << y.
func Shl(x, y interface{}) Expr { return newBinary(opShl, x, y) }

// Shr returns x >> y.
func Shr(x, y interface{}) Expr { return newBinary(opShr, x, y) }

type unaryOp uint8

const (
	opNeg unaryOp = iota
	opBitNot
	opNot
)

type unaryExpr struct {
	op unaryOp
	x  Expr
}

func (u *unaryExpr) eval(e *env) Value {
	v := u.x.eval(e)
	switch u.op {
	case opNeg:
		switch v.kind {
		case KindFloat:
			return FloatValue(-v.f)
		case KindUint:
			return UintValue(-uint64(v.i))
		}
		return IntValue(-v.i)
	case opBitNot:
		if v.kind == KindFloat {
			violate(ErrOperand, "^ on float operand %s", v)
		}
		if v.kind == KindUint {
			return UintValue(^uint64(v.i))
		}
		return IntValue(^v.i)
	default:
		return BoolValue(!v.Bool())
	}
}
func (u *unaryExpr) operands() []Expr { return []Expr{u.x} }
func (u *unaryExpr) String() string {
	return fmt.Sprintf("%s%s", [...]string{"-", "^", "!"}[u.op], u.x)
}

// Neg returns -x.
func Neg(x interface{}) Expr { return &unaryExpr{op: opNeg, x: operand(x)} }

// BitNot returns ^x.
func BitNot(x interface{}) Expr { return &unaryExpr{op: opBitNot, x: operand(x)} }

// Not returns !x.
func Not(x interface{}) Expr { return &unaryExpr{op: opNot, x: operand(x)} }

type compareExpr struct {
	op   cmpOp
	x, y Expr
}

func (c *compareExpr) eval(e *env) Value {
	return compare(c.op, c.x.eval(e), c.y.eval(e))
}
func (c *compareExpr) operands() []Expr { return []Expr{c.x, c.y} }
func (c *compareExpr) String() string   { return fmt.Sprintf("(%s %s %s)", c.x, c.op, c.y) }

// group is the Or/And shorthand. It only exists as the operand of a
// comparison, which expands it at construction time.
type group struct {
	conj  bool
	items []Expr
}

func (g *group) eval(*env) Value {
	violate(ErrOperand, "%s evaluated outside a comparison", g)
	return Value{}
}
func (g *group) operands() []Expr { return g.items }
func (g *group) String() string {
	name := "Or"
	if g.conj {
		name = "And"
	}
	parts := make([]string, len(g.items))
	for i, it := range g.items {
		parts[i] = it.String()
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

// Or groups alternatives for a comparison: Eq(x, Or(a, b)) is
// Lor(Eq(x, a), Eq(x, b)).
func Or(items ...interface{}) Expr { return newGroup(false, items) }

// And groups requirements for a comparison: Lt(x, And(a, b)) is
// Land(Lt(x, a), Lt(x, b)).
func And(items ...interface{}) Expr { return newGroup(true, items) }

func newGroup(conj bool, items []interface{}) Expr {
	if len(items) == 0 {
		violate(ErrOperand, "empty group")
	}
	g := &group{conj: conj, items: make([]Expr, len(items))}
	for i, it := range items {
		g.items[i] = operand(it)
	}
	return g
}

func comparison(op cmpOp, x, y interface{}) Expr {
	ex, ey := lift(x), lift(y)
	gx, xIsGroup := ex.(*group)
	gy, yIsGroup := ey.(*group)
	switch {
	case xIsGroup && yIsGroup:
		violate(ErrOperand, "comparison between two groups %s, %s", gx, gy)
	case xIsGroup:
		return expandGroup(op.flip(), ey, gx)
	case yIsGroup:
		return expandGroup(op, ex, gy)
	}
	return &compareExpr{op: op, x: ex, y: ey}
}

func expandGroup(op cmpOp, x Expr, g *group) Expr {
	terms := make([]Expr, len(g.items))
	for i, it := range g.items {
		terms[i] = &compareExpr{op: op, x: x, y: it}
	}
	return &logicalExpr{conj: g.conj, terms: terms}
}

// Eq returns x == y.
func Eq(x, y interface{}) Expr { return comparison(opEq, x, y) }

// Ne returns x != y.
func Ne(x, y interface{}) Expr { return comparison(opNe, x, y) }

// Lt returns x < y.
func Lt(x, y interface{}) Expr { return comparison(opLt, x, y) }

// Le returns x <= y.
func Le(x, y interface{}) Expr { return comparison(opLe, x, y) }

// Gt returns x > y.
func Gt(x, y interface{}) Expr { return comparison(opGt, x, y) }

// Ge returns x >= y.
func Ge(x, y interface{}) Expr { return comparison(opGe, x, y) }

type logicalExpr struct {
	conj  bool
	terms []Expr
}

func (l *logicalExpr) eval(e *env) Value {
	for _, t := range l.terms {
		if t.eval(e).Bool() != l.conj {
			return BoolValue(!l.conj)
		}
	}
	return BoolValue(l.conj)
}
func (l *logicalExpr) operands() []Expr { return l.terms }
func (l *logicalExpr) String() string {
	sep := " || "
	if l.conj {
		sep = " && "
	}
	parts := make([]string, len(l.terms))
	for i, t := range l.terms {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

func logical(conj bool, terms []interface{}) Expr {
	if len(terms) == 0 {
		violate(ErrOperand, "logical operator without operands")
	}
	l := &logicalExpr{conj: conj, terms: make([]Expr, len(terms))}
	for i, t := range terms {
		l.terms[i] = operand(t)
	}
	return l
}

// Land returns the short-circuit conjunction of terms.
func Land(terms ...interface{}) Expr { return logical(true, terms) }

// Lor returns the short-circuit disjunction of terms.
func Lor(terms ...interface{}) Expr { return logical(false, terms) }

type selectExpr struct {
	cond, a, b Expr
}

func (s *selectExpr) eval(e *env) Value {
	if s.cond.eval(e).Bool() {
		return s.a.eval(e)
	}
	return s.b.eval(e)
}
func (s *selectExpr) operands() []Expr { return []Expr{s.cond, s.a, s.b} }
func (s *selectExpr) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", s.cond, s.a, s.b)
}

// Select returns a where cond holds and b elsewhere. Only the chosen branch
// is evaluated.
func Select(cond, a, b interface{}) Expr {
	return &selectExpr{cond: operand(cond), a: operand(a), b: operand(b)}
}

type castExpr[T Number] struct {
	x Expr
}

func (c *castExpr[T]) eval(e *env) Value {
	return valueOf(fromValue[T](c.x.eval(e)))
}
func (c *castExpr[T]) operands() []Expr { return []Expr{c.x} }
func (c *castExpr[T]) String() string {
	var zero T
	return fmt.Sprintf("%T(%s)", zero, c.x)
}

// Cast converts x to T with Go conversion semantics, so Cast[uint8](300)
// is 44 and Cast[int](2.7) is 2.
func Cast[T Number](x interface{}) Expr {
	return &castExpr[T]{x: operand(x)}
}

// walk calls fn for e and every node below it.
func walk(e Expr, fn func(Expr)) {
	fn(e)
	for _, c := range e.operands() {
		walk(c, fn)
	}
}
