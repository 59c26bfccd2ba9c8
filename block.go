package ndmesh

// Block owns an Allocation and the Space that is the root of its coordinate
// system. Every derivation (View, Slice, Permute, refinement, Colocate)
// returns a View sharing the Block's storage.
type Block[E Number] struct {
	space Space
	alloc *Allocation[E]
}

// NewBlock allocates a zeroed heap Block over the canonical space of extents.
func NewBlock[E Number](extents ...int) *Block[E] {
	s := NewSpace(extents...)
	return &Block[E]{space: s, alloc: NewHeap[E](s.Size())}
}

// NewStackBlock allocates a zeroed scratch Block of at most StackCapacity
// elements.
func NewStackBlock[E Number](extents ...int) *Block[E] {
	s := NewSpace(extents...)
	return &Block[E]{space: s, alloc: NewStack[E](s.Size())}
}

// WrapSlice addresses caller-owned data, which must hold at least the
// product of extents elements, in row-major order.
func WrapSlice[E Number](data []E, extents ...int) *Block[E] {
	return NewBlockIn(NewSpace(extents...), WrapExternal(data))
}

// WrapNested2 addresses a caller-owned rectangular row table.
func WrapNested2[E Number](rows [][]E) *Block[E] {
	if len(rows) == 0 || len(rows[0]) == 0 {
		violate(ErrEmptyRange, "empty row table")
	}
	for y, row := range rows {
		if len(row) != len(rows[0]) {
			violate(ErrRankMismatch, "row %d has %d elements, row 0 has %d", y, len(row), len(rows[0]))
		}
	}
	return NewBlockIn(NewSpace(len(rows), len(rows[0])), WrapRows(rows))
}

// WrapNested3 addresses a caller-owned rectangular plane table.
func WrapNested3[E Number](planes [][][]E) *Block[E] {
	if len(planes) == 0 || len(planes[0]) == 0 || len(planes[0][0]) == 0 {
		violate(ErrEmptyRange, "empty plane table")
	}
	for z, plane := range planes {
		if len(plane) != len(planes[0]) {
			violate(ErrRankMismatch, "plane %d has %d rows, plane 0 has %d", z, len(plane), len(planes[0]))
		}
		for y, row := range plane {
			if len(row) != len(planes[0][0]) {
				violate(ErrRankMismatch, "plane %d row %d has %d elements", z, y, len(row))
			}
		}
	}
	return NewBlockIn(NewSpace(len(planes), len(planes[0]), len(planes[0][0])), WrapPlanes(planes))
}

// WrapAccessor addresses storage reached through acc.
func WrapAccessor[E Number](acc Accessor[E], extents ...int) *Block[E] {
	s := NewSpace(extents...)
	return NewBlockIn(s, WrapCustom(acc, s.Size()))
}

// NewBlockIn builds a Block rooted at an arbitrary space, for example one
// with a column-major permutation or an origin away from the mesh origin.
func NewBlockIn[E Number](space Space, alloc *Allocation[E]) *Block[E] {
	if alloc.Len() < space.Size() {
		violate(ErrCapacity, "%s allocation of %d elements for space of %d", alloc.kind, alloc.Len(), space.Size())
	}
	if r := alloc.rank(); r != 0 && r != space.Rank() {
		violate(ErrRankMismatch, "nested allocation of depth %d for rank %d space", r, space.Rank())
	}
	return &Block[E]{space: space, alloc: alloc}
}

// Space returns the Block's root space.
func (b *Block[E]) Space() Space { return b.space }

// Allocation returns the Block's storage.
func (b *Block[E]) Allocation() *Allocation[E] { return b.alloc }

// Rank returns the number of dimensions.
func (b *Block[E]) Rank() int { return b.space.Rank() }

// Extents returns a copy of the Block's extents.
func (b *Block[E]) Extents() []int { return b.space.Extents() }

func (b *Block[E]) locate(coord []int) ([]int, int) {
	if !b.space.Contains(coord) {
		violate(ErrOutOfBounds, "%v outside block extents %v", coord, b.space.extents)
	}
	return locateIn(b.space, b.alloc, coord)
}

// Read returns the element at coord.
func (b *Block[E]) Read(coord ...int) E {
	p, i := b.locate(coord)
	return b.alloc.Read(p, i)
}

// Write stores v at coord.
func (b *Block[E]) Write(v E, coord ...int) {
	p, i := b.locate(coord)
	b.alloc.Write(p, i, v)
}

// Fill writes v to every element.
func (b *Block[E]) Fill(v E) {
	if data := b.alloc.slice(); data != nil {
		data = data[:b.space.Size()]
		for i := range data {
			data[i] = v
		}
		return
	}
	b.View().Fill(v)
}

// Values returns the elements in row-major order of the Block's logical
// dimensions.
func (b *Block[E]) Values() []E {
	return b.View().Values()
}

// LogicallyExists reports whether coord is a non-negative position of the
// Block's frame.
func (b *Block[E]) LogicallyExists(coord ...int) bool {
	return b.View().LogicallyExists(coord...)
}

// View returns an identity View of the Block.
func (b *Block[E]) View() *View[E] {
	return newView(b.space, b.space, b.alloc)
}

// ViewAs reinterprets the Block's storage through space. See View.ViewAs.
func (b *Block[E]) ViewAs(space Space) *View[E] {
	return b.View().ViewAs(space)
}

// Slice returns a View of a sub-lattice of the Block.
func (b *Block[E]) Slice(ranges ...Range) *View[E] {
	return b.View().Slice(ranges...)
}

// Permute returns a View with dimensions reordered.
func (b *Block[E]) Permute(order ...int) *View[E] {
	return b.View().Permute(order...)
}

// VirtuallyRefine returns a finer-grained View of the same storage.
func (b *Block[E]) VirtuallyRefine(f ...int) *View[E] {
	return b.View().VirtuallyRefine(f...)
}

// VirtuallyCoarsen returns a coarser-grained View of the same storage.
func (b *Block[E]) VirtuallyCoarsen(f ...int) *View[E] {
	return b.View().VirtuallyCoarsen(f...)
}

// PhysicallyRefine copies the Block into new storage f times finer.
func (b *Block[E]) PhysicallyRefine(f ...int) *Block[E] {
	return b.View().PhysicallyRefine(f...)
}

// PhysicallyCoarsen copies the Block into new storage f times coarser.
func (b *Block[E]) PhysicallyCoarsen(f ...int) *Block[E] {
	return b.View().PhysicallyCoarsen(f...)
}

// Colocate returns a window into the Block's storage covering the mesh
// region of other.
func (b *Block[E]) Colocate(other Spatial) *View[E] {
	return b.View().Colocate(other)
}

// Ref starts an index chain on the Block.
func (b *Block[E]) Ref(idx ...interface{}) *Ref[E] {
	return newRef[E](b, idx)
}
