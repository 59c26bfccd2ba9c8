package ndmesh

// Spatial is anything positioned on a mesh.
type Spatial interface {
	Space() Space
}

// View aliases a Block's storage through its own Space. Coordinates are
// translated into the owning Block's Space with PointwiseMapping before they
// are linearized, so a View may be sliced, permuted, refined or coarsened
// any number of times and still reach the right element.
type View[E Number] struct {
	space Space
	block Space
	alloc *Allocation[E]
	// direct is set when space and block coincide and translation is a no-op.
	direct bool
}

func newView[E Number](space, block Space, alloc *Allocation[E]) *View[E] {
	return &View[E]{space: space, block: block, alloc: alloc, direct: space.Equal(block)}
}

// Space returns the view's coordinate space.
func (v *View[E]) Space() Space { return v.space }

// BlockSpace returns the owning Block's space as of the view's creation.
func (v *View[E]) BlockSpace() Space { return v.block }

// Allocation returns the shared storage.
func (v *View[E]) Allocation() *Allocation[E] { return v.alloc }

// Rank returns the number of dimensions.
func (v *View[E]) Rank() int { return v.space.Rank() }

// Extents returns a copy of the view's extents.
func (v *View[E]) Extents() []int { return v.space.Extents() }

// BlockCoord translates a view coordinate into the owning Block's space.
// The result may lie outside the Block.
func (v *View[E]) BlockCoord(coord ...int) []int {
	if v.direct {
		v.space.checkRank(len(coord))
		return clone(coord)
	}
	return v.space.PointwiseMapping(coord, v.block)
}

func (v *View[E]) locate(coord []int) (physical []int, index int) {
	if !v.space.Contains(coord) {
		violate(ErrOutOfBounds, "%v outside view extents %v", coord, v.space.extents)
	}
	bc := v.BlockCoord(coord...)
	if !v.block.Contains(bc) {
		violate(ErrOutOfBounds, "%v maps to %v outside block extents %v", coord, bc, v.block.extents)
	}
	return locateIn(v.block, v.alloc, bc)
}

// locateIn returns the canonical physical coordinate and linear index of
// block coordinate bc.
func locateIn[E Number](block Space, alloc *Allocation[E], bc []int) ([]int, int) {
	index := block.Linearize(bc)
	if alloc.kind == Heap || alloc.kind == Stack || alloc.kind == External {
		if index >= alloc.size {
			violate(ErrOutOfBounds, "linear index %d beyond %s allocation of %d", index, alloc.kind, alloc.size)
		}
		return nil, index
	}
	return toCanonical(bc, block.perm), index
}

// Read returns the element at coord.
func (v *View[E]) Read(coord ...int) E {
	p, i := v.locate(coord)
	return v.alloc.Read(p, i)
}

// Write stores x at coord.
func (v *View[E]) Write(x E, coord ...int) {
	p, i := v.locate(coord)
	v.alloc.Write(p, i, x)
}

// LogicallyExists reports whether coord lands on a non-negative position of
// the owning Block's frame. It answers "is there mesh here at all" for
// neighbour lookups such as the macroblock to the left or above, and may be
// true for coordinates beyond the Block's far edge.
func (v *View[E]) LogicallyExists(coord ...int) bool {
	for _, c := range v.BlockCoord(coord...) {
		if c < 0 {
			return false
		}
	}
	return true
}

// View returns a view identical to v.
func (v *View[E]) View() *View[E] {
	return newView(v.space, v.block, v.alloc)
}

// ViewAs reinterprets the storage through space, which may have a different
// rank. Dimensions correspond right-aligned: missing leading dimensions sit
// at 0 and extra leading dimensions are dropped.
func (v *View[E]) ViewAs(space Space) *View[E] {
	return newView(space, v.block, v.alloc)
}

// Slice selects a sub-lattice of v.
func (v *View[E]) Slice(ranges ...Range) *View[E] {
	return newView(v.space.Slice(ranges...), v.block, v.alloc)
}

// Permute reorders v's dimensions; dimension d of the result is dimension
// order[d] of v.
func (v *View[E]) Permute(order ...int) *View[E] {
	return newView(v.space.Permute(order...), v.block, v.alloc)
}

// VirtuallyRefine addresses the same storage at f times finer granularity.
// Each storage element is visible at f positions per dimension.
func (v *View[E]) VirtuallyRefine(f ...int) *View[E] {
	return newView(v.space.Refine(f...), v.block, v.alloc)
}

// VirtuallyCoarsen addresses the same storage at f times coarser
// granularity. Each coarse position reads the first fine element it covers.
func (v *View[E]) VirtuallyCoarsen(f ...int) *View[E] {
	return newView(v.space.Coarsen(f...), v.block, v.alloc)
}

// PhysicallyRefine copies v into a new heap Block f times finer, repeating
// each element over the cells it covers.
func (v *View[E]) PhysicallyRefine(f ...int) *Block[E] {
	return resample(v, v.space.Refine(f...))
}

// PhysicallyCoarsen copies v into a new heap Block f times coarser, keeping
// the first element of every covered group.
func (v *View[E]) PhysicallyCoarsen(f ...int) *Block[E] {
	return resample(v, v.space.Coarsen(f...))
}

// resample allocates a Block over space and fills every element from the
// spatially corresponding element of src.
func resample[E Number](src *View[E], space Space) *Block[E] {
	L.Debug("physical resample", "from", src.space.extents, "to", space.extents)
	dst := NewBlockIn(space, NewHeap[E](space.Size()))
	for i, n := 0, space.Size(); i < n; i++ {
		c := space.Delinearize(i)
		dst.alloc.data[i] = src.Read(space.PointwiseMapping(c, src.space)...)
	}
	return dst
}

// Colocate returns a window into v's storage covering the region of the mesh
// occupied by other. The window is addressed in v's own dimension order and
// granularity; colocating the same region out of two objects over the same
// mesh yields identical block coordinates for identical indexes.
func (v *View[E]) Colocate(other Spatial) *View[E] {
	return newView(colocate(other.Space(), v.space), v.block, v.alloc)
}

func colocate(other, frame Space) Space {
	start := other.PointwiseMapping(make([]int, other.Rank()), frame)
	extents := other.ExtentMapping(frame)
	ranges := make([]Range, frame.Rank())
	for d := range ranges {
		ranges[d] = Span(start[d], start[d]+extents[d])
	}
	return frame.window(ranges)
}

// Ref starts an index chain on v.
func (v *View[E]) Ref(idx ...interface{}) *Ref[E] {
	return newRef[E](v, idx)
}

// Fill writes x to every element of v.
func (v *View[E]) Fill(x E) {
	forEach(v.space, func(c []int) { v.Write(x, c...) })
}

// Values returns the elements of v in row-major order of its logical
// dimensions.
func (v *View[E]) Values() []E {
	out := make([]E, 0, v.space.Size())
	forEach(v.space, func(c []int) { out = append(out, v.Read(c...)) })
	return out
}

// Materialize copies v into a new heap Block with v's extents in v's
// logical order.
func (v *View[E]) Materialize() *Block[E] {
	b := NewBlock[E](v.space.extents...)
	copy(b.alloc.data, v.Values())
	return b
}

// forEach visits every coordinate of s in row-major logical order. The
// coordinate slice is reused between calls.
func forEach(s Space, fn func(coord []int)) {
	coord := make([]int, s.Rank())
	for {
		fn(coord)
		d := len(coord) - 1
		for ; d >= 0; d-- {
			coord[d]++
			if coord[d] < s.extents[d] {
				break
			}
			coord[d] = 0
		}
		if d < 0 {
			return
		}
	}
}
