package ndmesh

import (
	"fmt"
	"strings"
)

// Space describes how a rectangular set of logical coordinates sits on the
// mesh: the physical coordinate domain shared by every Block and View over
// the same data.
//
// Logical dimension d addresses canonical mesh axis Permutation()[d]. Along
// that axis, logical coordinate c sits at position origin+c*stride measured in
// units of refinement/coarsening cells per mesh cell.
//
// A Space is an immutable value. Every transform returns a new Space and no
// method modifies the receiver, so Spaces may be shared freely.
type Space struct {
	extents    []int
	origin     []int
	strides    []int
	refinement []int
	coarsening []int
	perm       []int
}

// SpaceOption configures a Space built by NewSpaceWith.
type SpaceOption func(*Space)

// WithOrigin places the space at origin, measured in its own units.
func WithOrigin(origin ...int) SpaceOption {
	return func(s *Space) { s.origin = clone(origin) }
}

// WithStrides sets the per-dimension step between consecutive coordinates.
func WithStrides(strides ...int) SpaceOption {
	return func(s *Space) { s.strides = clone(strides) }
}

// WithPermutation sets the logical to canonical axis order.
func WithPermutation(perm ...int) SpaceOption {
	return func(s *Space) { s.perm = clone(perm) }
}

// WithRefinement sets the number of space cells per mesh cell.
func WithRefinement(f ...int) SpaceOption {
	return func(s *Space) { s.refinement = clone(f) }
}

// WithCoarsening sets the number of mesh cells per space cell.
func WithCoarsening(f ...int) SpaceOption {
	return func(s *Space) { s.coarsening = clone(f) }
}

// NewSpace returns the canonical space over extents: origin 0, unit strides,
// no refinement and identity permutation.
func NewSpace(extents ...int) Space {
	return NewSpaceWith(extents)
}

// NewSpaceWith returns a space over extents adjusted by opts.
func NewSpaceWith(extents []int, opts ...SpaceOption) Space {
	r := len(extents)
	if r == 0 {
		violate(ErrRankMismatch, "space must have at least one dimension")
	}
	s := Space{
		extents:    clone(extents),
		origin:     make([]int, r),
		strides:    filled(r, 1),
		refinement: filled(r, 1),
		coarsening: filled(r, 1),
		perm:       identity(r),
	}
	for _, opt := range opts {
		opt(&s)
	}
	s.validate()
	return s
}

func (s Space) validate() {
	r := len(s.extents)
	vectors := []struct {
		name string
		v    []int
	}{
		{"origin", s.origin},
		{"strides", s.strides},
		{"refinement", s.refinement},
		{"coarsening", s.coarsening},
		{"permutation", s.perm},
	}
	for _, vec := range vectors {
		if len(vec.v) != r {
			violate(ErrRankMismatch, "%s has %d entries, space rank is %d", vec.name, len(vec.v), r)
		}
	}
	for d := 0; d < r; d++ {
		if s.extents[d] <= 0 {
			violate(ErrEmptyRange, "extent %d of dimension %d", s.extents[d], d)
		}
		if s.strides[d] <= 0 {
			violate(ErrEmptyRange, "stride %d of dimension %d", s.strides[d], d)
		}
		if s.refinement[d] <= 0 || s.coarsening[d] <= 0 {
			violate(ErrInvalidRefinement, "dimension %d scale %d/%d", d, s.refinement[d], s.coarsening[d])
		}
	}
	checkPermutation(s.perm, r)
}

// Rank returns the number of dimensions.
func (s Space) Rank() int { return len(s.extents) }

// Extents returns a copy of the per-dimension sizes.
func (s Space) Extents() []int { return clone(s.extents) }

// Origin returns a copy of the origin vector.
func (s Space) Origin() []int { return clone(s.origin) }

// Strides returns a copy of the stride vector.
func (s Space) Strides() []int { return clone(s.strides) }

// Refinement returns a copy of the refinement accumulator.
func (s Space) Refinement() []int { return clone(s.refinement) }

// Coarsening returns a copy of the coarsening accumulator.
func (s Space) Coarsening() []int { return clone(s.coarsening) }

// Permutation returns a copy of the logical to canonical axis order.
func (s Space) Permutation() []int { return clone(s.perm) }

// Size returns the number of addressable coordinates.
func (s Space) Size() int {
	n := 1
	for _, e := range s.extents {
		n *= e
	}
	return n
}

// Contains reports whether coord lies inside the extents.
func (s Space) Contains(coord []int) bool {
	if len(coord) != len(s.extents) {
		return false
	}
	for d, c := range coord {
		if c < 0 || c >= s.extents[d] {
			return false
		}
	}
	return true
}

// Linearize returns the storage index of coord. Storage is row-major over
// the canonical axis order, so the last canonical axis varies fastest; with
// the identity permutation this is plain row-major order.
func (s Space) Linearize(coord []int) int {
	s.checkRank(len(coord))
	inv := Inverse(s.perm)
	idx := 0
	for a := range inv {
		d := inv[a]
		idx = idx*s.extents[d] + coord[d]
	}
	return idx
}

// Delinearize is the inverse of Linearize for indexes in [0, Size()).
func (s Space) Delinearize(index int) []int {
	coord := make([]int, len(s.extents))
	inv := Inverse(s.perm)
	for a := len(inv) - 1; a >= 0; a-- {
		d := inv[a]
		coord[d] = index % s.extents[d]
		index /= s.extents[d]
	}
	return coord
}

// Slice selects a sub-lattice. Each range is resolved against the current
// extent and composed into the existing frame, so slices of slices address
// the same elements as the algebraically composed slice. Dimensions without
// a range are kept whole. Every selected position must lie inside the
// current extents.
func (s Space) Slice(ranges ...Range) Space {
	if len(ranges) > s.Rank() {
		violate(ErrRankMismatch, "%d ranges for rank %d space", len(ranges), s.Rank())
	}
	for d, r := range ranges {
		_, count := r.resolve(s.extents[d])
		if r.Start < 0 || r.Start+(count-1)*r.Step >= s.extents[d] {
			violate(ErrOutOfBounds, "range %s outside extent %d of dimension %d", r, s.extents[d], d)
		}
	}
	return s.window(ranges)
}

// window composes ranges into s without checking them against the extents.
// Colocated regions may reach past the frame's edges.
func (s Space) window(ranges []Range) Space {
	n := s.clone()
	for d, r := range ranges {
		_, count := r.resolve(s.extents[d])
		n.extents[d] = count
		n.origin[d] = s.origin[d] + r.Start*s.strides[d]
		n.strides[d] = s.strides[d] * r.Step
	}
	return n
}

// Permute reorders the logical dimensions: logical dimension d of the result
// is logical dimension order[d] of s. Vectors pass through the canonical
// axis order, which makes repeated permutation compose associatively.
func (s Space) Permute(order ...int) Space {
	r := s.Rank()
	checkPermutation(order, r)

	composite := make([]int, r)
	for d, o := range order {
		composite[d] = s.perm[o]
	}
	rearrange := func(v []int) []int {
		return fromCanonical(toCanonical(v, s.perm), composite)
	}
	return Space{
		extents:    rearrange(s.extents),
		origin:     rearrange(s.origin),
		strides:    rearrange(s.strides),
		refinement: rearrange(s.refinement),
		coarsening: rearrange(s.coarsening),
		perm:       composite,
	}
}

// Refine reinterprets the same span at f times finer granularity per
// dimension. Refined dimensions must have unit stride.
func (s Space) Refine(f ...int) Space {
	s.checkFactors("refine", f)
	n := s.clone()
	for d, k := range f {
		if k == 1 {
			continue
		}
		n.extents[d] *= k
		n.origin[d] *= k
		n.refinement[d] *= k
		n.reduce(d)
	}
	return n
}

// Coarsen reinterprets the same span at f times coarser granularity per
// dimension. Coarsened dimensions must have unit stride and an extent
// divisible by the factor.
func (s Space) Coarsen(f ...int) Space {
	s.checkFactors("coarsen", f)
	n := s.clone()
	for d, k := range f {
		if k == 1 {
			continue
		}
		if s.extents[d]%k != 0 {
			violate(ErrInvalidRefinement, "coarsen dimension %d: extent %d not divisible by %d", d, s.extents[d], k)
		}
		n.extents[d] /= k
		n.origin[d] = floorDiv(s.origin[d], k)
		n.coarsening[d] *= k
		n.reduce(d)
	}
	return n
}

func (s Space) checkFactors(op string, f []int) {
	s.checkRank(len(f))
	for d, k := range f {
		if k <= 0 {
			violate(ErrInvalidRefinement, "%s dimension %d by %d", op, d, k)
		}
		if k != 1 && s.strides[d] != 1 {
			violate(ErrInvalidRefinement, "%s dimension %d: stride is %d", op, d, s.strides[d])
		}
	}
}

// reduce keeps refinement and coarsening coprime on dimension d.
func (s *Space) reduce(d int) {
	g := gcd(s.refinement[d], s.coarsening[d])
	s.refinement[d] /= g
	s.coarsening[d] /= g
}

// meshSpan returns, per canonical axis, the rational mesh position of the
// first coordinate and of the far edge of the last coordinate. Both share the
// denominator den.
func (s Space) meshSpan() (lo, hi, den []int) {
	r := s.Rank()
	lo, hi, den = make([]int, r), make([]int, r), make([]int, r)
	for d := 0; d < r; d++ {
		a := s.perm[d]
		first := s.origin[d]
		last := s.origin[d] + (s.extents[d]-1)*s.strides[d]
		lo[a] = first * s.coarsening[d]
		hi[a] = (last + 1) * s.coarsening[d]
		den[a] = s.refinement[d]
	}
	return lo, hi, den
}

// PointwiseMapping maps coord from s into target, assuming both describe the
// same mesh. The result may lie outside target's extents, including below
// zero, when coord falls outside target's frame.
func (s Space) PointwiseMapping(coord []int, target Space) []int {
	s.checkRank(len(coord))
	r := s.Rank()

	// Canonical mesh position as num/den per axis.
	num, den := make([]int, r), make([]int, r)
	for d := 0; d < r; d++ {
		a := s.perm[d]
		num[a] = (s.origin[d] + coord[d]*s.strides[d]) * s.coarsening[d]
		den[a] = s.refinement[d]
	}

	tr := target.Rank()
	num = alignRank(num, tr, 0)
	den = alignRank(den, tr, 1)

	out := make([]int, tr)
	for d := 0; d < tr; d++ {
		a := target.perm[d]
		pos := floorDiv(num[a]*target.refinement[d], den[a]*target.coarsening[d])
		out[d] = floorDiv(pos-target.origin[d], target.strides[d])
	}
	return out
}

// ExtentMapping returns the extents, in target's logical order and
// granularity, of the smallest window of target covering the mesh span of s.
func (s Space) ExtentMapping(target Space) []int {
	lo, hi, den := s.meshSpan()

	tr := target.Rank()
	lo = alignRank(lo, tr, 0)
	hi = alignRank(hi, tr, 1)
	den = alignRank(den, tr, 1)

	out := make([]int, tr)
	for d := 0; d < tr; d++ {
		a := target.perm[d]
		scaleNum, scaleDen := target.refinement[d], den[a]*target.coarsening[d]
		first := floorDiv(lo[a]*scaleNum, scaleDen)
		end := ceilDiv(hi[a]*scaleNum, scaleDen)
		n := ceilDiv(end-first, target.strides[d])
		if n < 1 {
			n = 1
		}
		out[d] = n
	}
	return out
}

// Equal reports whether s and o are the same space.
func (s Space) Equal(o Space) bool {
	return equalInts(s.extents, o.extents) &&
		equalInts(s.origin, o.origin) &&
		equalInts(s.strides, o.strides) &&
		equalInts(s.refinement, o.refinement) &&
		equalInts(s.coarsening, o.coarsening) &&
		equalInts(s.perm, o.perm)
}

func (s Space) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Space{extents: %v, origin: %v, strides: %v", s.extents, s.origin, s.strides)
	fmt.Fprintf(&b, ", scale: %v/%v, perm: %v}", s.refinement, s.coarsening, s.perm)
	return b.String()
}

func (s Space) checkRank(n int) {
	if n != s.Rank() {
		violate(ErrRankMismatch, "%d components for rank %d space", n, s.Rank())
	}
}

func (s Space) clone() Space {
	return Space{
		extents:    clone(s.extents),
		origin:     clone(s.origin),
		strides:    clone(s.strides),
		refinement: clone(s.refinement),
		coarsening: clone(s.coarsening),
		perm:       clone(s.perm),
	}
}

// Inverse returns the inverse of permutation p.
func Inverse(p []int) []int {
	checkPermutation(p, len(p))
	inv := make([]int, len(p))
	for d, a := range p {
		inv[a] = d
	}
	return inv
}

func checkPermutation(p []int, rank int) {
	if len(p) != rank {
		violate(ErrInvalidPermutation, "%v has %d entries, want %d", p, len(p), rank)
	}
	seen := make([]bool, rank)
	for _, a := range p {
		if a < 0 || a >= rank {
			violate(ErrInvalidPermutation, "%v: axis %d out of range", p, a)
		}
		if seen[a] {
			violate(ErrInvalidPermutation, "%v: duplicate axis %d", p, a)
		}
		seen[a] = true
	}
}

// toCanonical scatters a logical-order vector into canonical axis order.
func toCanonical(v, perm []int) []int {
	out := make([]int, len(v))
	for d, a := range perm {
		out[a] = v[d]
	}
	return out
}

// fromCanonical gathers a canonical-order vector into logical order.
func fromCanonical(c, perm []int) []int {
	out := make([]int, len(c))
	for d, a := range perm {
		out[d] = c[a]
	}
	return out
}

// alignRank right-aligns a canonical vector to rank n, padding leading axes
// with pad or dropping the most-major ones.
func alignRank(v []int, n, pad int) []int {
	switch {
	case len(v) == n:
		return v
	case len(v) > n:
		return v[len(v)-n:]
	default:
		out := filled(n, pad)
		copy(out[n-len(v):], v)
		return out
	}
}

func identity(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}

func filled(n, v int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func clone(v []int) []int {
	if v == nil {
		return nil
	}
	out := make([]int, len(v))
	copy(out, v)
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int) int {
	return -floorDiv(-a, b)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}
