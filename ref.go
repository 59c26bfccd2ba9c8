package ndmesh

import (
	"fmt"
	"strings"
)

// Target is anything a Ref can index: Blocks and Views.
type Target[E Number] interface {
	Space() Space
	Read(coord ...int) E
	Write(v E, coord ...int)
}

// Ref is a lazy index handle. It accumulates one index per Index call and is
// consumed by Assign, Value, or by being used as an element read inside
// another expression. Indexes are ints, iterator symbols, or (for reads)
// any integer expression.
type Ref[E Number] struct {
	target Target[E]
	idx    []Expr
}

func newRef[E Number](t Target[E], idx []interface{}) *Ref[E] {
	r := &Ref[E]{target: t, idx: make([]Expr, len(idx))}
	for i, x := range idx {
		r.idx[i] = operand(x)
	}
	return r
}

// Index returns a Ref with one more index appended. The receiver is not
// modified.
func (r *Ref[E]) Index(x interface{}) *Ref[E] {
	idx := make([]Expr, len(r.idx), len(r.idx)+1)
	copy(idx, r.idx)
	return &Ref[E]{target: r.target, idx: append(idx, operand(x))}
}

// padded returns the index list left-padded with zeros to the target rank.
func (r *Ref[E]) padded() []Expr {
	rank := r.target.Space().Rank()
	if len(r.idx) > rank {
		violate(ErrRankMismatch, "%d indexes for rank %d target", len(r.idx), rank)
	}
	out := make([]Expr, rank)
	pad := rank - len(r.idx)
	for d := 0; d < pad; d++ {
		out[d] = &literal{v: IntValue(0)}
	}
	copy(out[pad:], r.idx)
	return out
}

// Value reads the single element the Ref designates. Every index must be
// free of iterator symbols.
func (r *Ref[E]) Value() E {
	return r.target.Read(r.coord(nil)...)
}

func (r *Ref[E]) coord(e *env) []int {
	idx := r.padded()
	coord := make([]int, len(idx))
	for d, x := range idx {
		coord[d] = int(x.eval(e).Int())
	}
	return coord
}

func (r *Ref[E]) eval(e *env) Value { return valueOf(r.target.Read(r.coord(e)...)) }
func (r *Ref[E]) operands() []Expr  { return r.idx }
func (r *Ref[E]) String() string {
	var b strings.Builder
	b.WriteString("ref")
	for _, x := range r.idx {
		fmt.Fprintf(&b, "[%s]", x)
	}
	return b.String()
}

// Assign evaluates rhs for every coordinate the index list designates and
// writes the result there. Literal indexes pin their dimension; iterator
// symbols loop over the whole dimension, outermost dimension first. Missing
// leading indexes are taken as 0.
//
// Element reads inside rhs that use the same symbols see the coordinate of
// the element being written, so
//
//	i, j := NewIter("i"), NewIter("j")
//	a.Ref(i, j).Assign(b.Ref(j, i))
//
// stores the transpose of b into a.
func (r *Ref[E]) Assign(rhs interface{}) {
	idx := r.padded()
	rank := len(idx)

	iters := make([]*Iter, rank)
	fixed := make([]int, rank)
	for d, x := range idx {
		switch t := x.(type) {
		case *Iter:
			for k := 0; k < d; k++ {
				if iters[k] == t {
					violate(ErrDuplicateIterator, "%s indexes dimensions %d and %d", t, k, d)
				}
			}
			iters[d] = t
		case *literal:
			if t.v.kind == KindFloat {
				violate(ErrOperand, "float index %s in dimension %d", t.v, d)
			}
			fixed[d] = int(t.v.i)
		default:
			violate(ErrIndexExpression, "%s in dimension %d", x, d)
		}
	}

	expr := operand(rhs)
	walk(expr, func(n Expr) {
		it, ok := n.(*Iter)
		if !ok {
			return
		}
		for _, x := range iters {
			if x == it {
				return
			}
		}
		violate(ErrUnboundIterator, "%s appears in %s but not in the assigned indexes", it, expr)
	})

	extents := r.target.Space().Extents()
	e := &env{iters: iters, coord: make([]int, rank)}
	var loop func(d int)
	loop = func(d int) {
		if d == rank {
			r.target.Write(fromValue[E](expr.eval(e)), e.coord...)
			return
		}
		if iters[d] == nil {
			e.coord[d] = fixed[d]
			loop(d + 1)
			return
		}
		for c := 0; c < extents[d]; c++ {
			e.coord[d] = c
			loop(d + 1)
		}
	}
	loop(0)
}
