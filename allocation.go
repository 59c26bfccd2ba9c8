package ndmesh

import "fmt"

// AllocKind identifies where an Allocation's elements live.
type AllocKind uint8

const (
	// Heap storage is allocated by the engine and shared by every Block and
	// View derived from it. It is released once none of them is reachable.
	Heap AllocKind = iota
	// Stack storage is engine-allocated with a fixed capacity of
	// StackCapacity elements; intended for scratch blocks that do not
	// outlive the function that made them.
	Stack
	// External storage is a caller-supplied slice. The engine never
	// allocates or frees it.
	External
	// Nested storage is a caller-supplied slice of rows ([][]E) or planes
	// ([][][]E) indexed by physical coordinate.
	Nested
	// Custom storage routes every access through a caller Accessor.
	Custom
)

// StackCapacity is the element capacity of Stack allocations. It fits a
// 32x32 region, enough for a macroblock with its neighbour ring.
const StackCapacity = 1024

func (k AllocKind) String() string {
	switch k {
	case Heap:
		return "heap"
	case Stack:
		return "stack"
	case External:
		return "external"
	case Nested:
		return "nested"
	case Custom:
		return "custom"
	default:
		return fmt.Sprintf("AllocKind(%d)", uint8(k))
	}
}

// Accessor is caller-provided storage addressed by physical coordinate, in
// canonical axis order.
type Accessor[E Number] interface {
	Get(coord []int) E
	Set(coord []int, v E)
}

// Allocation maps physical coordinates and linear indexes to storage. The
// set of variants is closed; Kind reports which one is in use. An
// Allocation never changes size.
type Allocation[E Number] struct {
	kind   AllocKind
	data   []E
	stack  *[StackCapacity]E
	rows   [][]E
	planes [][][]E
	acc    Accessor[E]
	size   int
}

// NewHeap allocates n zeroed elements on the heap.
func NewHeap[E Number](n int) *Allocation[E] {
	return &Allocation[E]{kind: Heap, data: make([]E, n), size: n}
}

// NewStack allocates a fixed-capacity scratch buffer holding n elements.
func NewStack[E Number](n int) *Allocation[E] {
	if n > StackCapacity {
		violate(ErrCapacity, "stack allocation of %d elements, capacity %d", n, StackCapacity)
	}
	a := &Allocation[E]{kind: Stack, stack: new([StackCapacity]E), size: n}
	a.data = a.stack[:n]
	return a
}

// WrapExternal addresses caller-owned data.
func WrapExternal[E Number](data []E) *Allocation[E] {
	return &Allocation[E]{kind: External, data: data, size: len(data)}
}

// WrapRows addresses a caller-owned row table as rank 2 storage.
func WrapRows[E Number](rows [][]E) *Allocation[E] {
	n := 0
	if len(rows) > 0 {
		n = len(rows) * len(rows[0])
	}
	return &Allocation[E]{kind: Nested, rows: rows, size: n}
}

// WrapPlanes addresses a caller-owned plane table as rank 3 storage.
func WrapPlanes[E Number](planes [][][]E) *Allocation[E] {
	n := 0
	if len(planes) > 0 && len(planes[0]) > 0 {
		n = len(planes) * len(planes[0]) * len(planes[0][0])
	}
	return &Allocation[E]{kind: Nested, planes: planes, size: n}
}

// WrapCustom routes storage through acc. size is the number of elements
// acc can address.
func WrapCustom[E Number](acc Accessor[E], size int) *Allocation[E] {
	return &Allocation[E]{kind: Custom, acc: acc, size: size}
}

// Kind returns the storage variant.
func (a *Allocation[E]) Kind() AllocKind { return a.kind }

// Len returns the number of addressable elements.
func (a *Allocation[E]) Len() int { return a.size }

// Read returns the element at physical coordinate coord (canonical order)
// whose linear index is index.
func (a *Allocation[E]) Read(coord []int, index int) E {
	switch a.kind {
	case Heap, Stack, External:
		return a.data[index]
	case Nested:
		if a.rows != nil {
			return a.rows[coord[0]][coord[1]]
		}
		return a.planes[coord[0]][coord[1]][coord[2]]
	default:
		return a.acc.Get(coord)
	}
}

// Write stores v at physical coordinate coord whose linear index is index.
func (a *Allocation[E]) Write(coord []int, index int, v E) {
	switch a.kind {
	case Heap, Stack, External:
		a.data[index] = v
	case Nested:
		if a.rows != nil {
			a.rows[coord[0]][coord[1]] = v
			return
		}
		a.planes[coord[0]][coord[1]][coord[2]] = v
	default:
		a.acc.Set(coord, v)
	}
}

// rank returns the coordinate depth a Nested allocation requires, or 0 when
// any rank is acceptable.
func (a *Allocation[E]) rank() int {
	if a.kind != Nested {
		return 0
	}
	if a.rows != nil {
		return 2
	}
	return 3
}

// slice exposes the contiguous backing store, or nil for Nested and Custom.
func (a *Allocation[E]) slice() []E {
	switch a.kind {
	case Heap, Stack, External:
		return a.data
	default:
		return nil
	}
}
