// Package intra chooses 16x16 luma intra-prediction modes by exhaustive
// sum-of-absolute-differences search. Neighbour availability comes from the
// macroblock grid's LogicallyExists and pixels are addressed by colocating
// macroblocks into the reconstructed and original planes.
package intra

import (
	"fmt"

	"github.com/qri-io/ndmesh"
)

// MBSize is the macroblock edge in pixels.
const MBSize = 16

// Mode is a 16x16 intra-prediction mode, numbered as H.264 numbers them.
type Mode int

const (
	Vertical Mode = iota
	Horizontal
	DC
	Plane
)

func (m Mode) String() string {
	switch m {
	case Vertical:
		return "vertical"
	case Horizontal:
		return "horizontal"
	case DC:
		return "dc"
	case Plane:
		return "plane"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Decision is the cheapest mode for one macroblock.
type Decision struct {
	Mode Mode
	Cost int
}

// neighbours holds what a macroblock can predict from.
type neighbours struct {
	top, left *ndmesh.View[uint8] // 1x16 and 16x1 edges, nil when absent
	corner    int                 // top-left pixel, -1 when absent
}

func checkPlanes(recon, orig *ndmesh.Block[uint8]) error {
	re, oe := recon.Extents(), orig.Extents()
	if len(re) != 2 || len(oe) != 2 {
		return fmt.Errorf("planes must be rank 2, got %v and %v", re, oe)
	}
	if re[0] != oe[0] || re[1] != oe[1] {
		return fmt.Errorf("reconstructed plane %v and original plane %v differ", re, oe)
	}
	if re[0]%MBSize != 0 || re[1]%MBSize != 0 {
		return fmt.Errorf("plane %v is not a whole number of %dx%d macroblocks", re, MBSize, MBSize)
	}
	return nil
}

// Search evaluates every available mode for macroblock (mbY, mbX) of orig,
// predicting from recon, and returns the cheapest. Ties go to the lower
// mode number.
func Search(recon, orig *ndmesh.Block[uint8], mbY, mbX int) (Decision, error) {
	if err := checkPlanes(recon, orig); err != nil {
		return Decision{}, err
	}
	grid := recon.VirtuallyCoarsen(MBSize, MBSize)
	ge := grid.Extents()
	if mbY < 0 || mbX < 0 || mbY >= ge[0] || mbX >= ge[1] {
		return Decision{}, fmt.Errorf("macroblock (%d, %d) outside %dx%d grid", mbY, mbX, ge[0], ge[1])
	}
	return search(recon, orig, grid, mbY, mbX), nil
}

// SearchAll runs Search over every macroblock in raster order. The result
// is indexed [mbY][mbX].
func SearchAll(recon, orig *ndmesh.Block[uint8]) ([][]Decision, error) {
	if err := checkPlanes(recon, orig); err != nil {
		return nil, err
	}
	grid := recon.VirtuallyCoarsen(MBSize, MBSize)
	ge := grid.Extents()
	out := make([][]Decision, ge[0])
	for y := range out {
		out[y] = make([]Decision, ge[1])
		for x := range out[y] {
			out[y][x] = search(recon, orig, grid, y, x)
		}
	}
	return out, nil
}

func search(recon, orig *ndmesh.Block[uint8], grid *ndmesh.View[uint8], mbY, mbX int) Decision {
	mb := grid.Slice(ndmesh.Index(mbY), ndmesh.Index(mbX))
	target := orig.Colocate(mb)
	nb := gather(recon, grid, mbY, mbX)

	pred := ndmesh.NewStackBlock[int32](MBSize, MBSize)
	best := Decision{Mode: -1}
	for _, m := range []Mode{Vertical, Horizontal, DC, Plane} {
		if !predict(pred, m, nb) {
			continue
		}
		cost := sad(target, pred)
		if best.Mode < 0 || cost < best.Cost {
			best = Decision{Mode: m, Cost: cost}
		}
	}
	ndmesh.L.Debug("intra decision", "mbY", mbY, "mbX", mbX, "mode", best.Mode.String(), "cost", best.Cost)
	return best
}

// gather collects the reconstructed edges next to macroblock (mbY, mbX).
func gather(recon *ndmesh.Block[uint8], grid *ndmesh.View[uint8], mbY, mbX int) neighbours {
	nb := neighbours{corner: -1}
	last := ndmesh.Index(MBSize - 1)
	if grid.LogicallyExists(mbY-1, mbX) {
		above := recon.Colocate(grid.Slice(ndmesh.Index(mbY-1), ndmesh.Index(mbX)))
		nb.top = above.Slice(last, ndmesh.All())
	}
	if grid.LogicallyExists(mbY, mbX-1) {
		left := recon.Colocate(grid.Slice(ndmesh.Index(mbY), ndmesh.Index(mbX-1)))
		nb.left = left.Slice(ndmesh.All(), last)
	}
	if grid.LogicallyExists(mbY-1, mbX-1) {
		diag := recon.Colocate(grid.Slice(ndmesh.Index(mbY-1), ndmesh.Index(mbX-1)))
		nb.corner = int(diag.Read(MBSize-1, MBSize-1))
	}
	return nb
}

// predict fills pred with mode m and reports whether m was available.
func predict(pred *ndmesh.Block[int32], m Mode, nb neighbours) bool {
	y, x := ndmesh.NewIter("y"), ndmesh.NewIter("x")
	dst := pred.Ref(y, x)
	switch m {
	case Vertical:
		if nb.top == nil {
			return false
		}
		dst.Assign(nb.top.Ref(x))
	case Horizontal:
		if nb.left == nil {
			return false
		}
		dst.Assign(nb.left.Ref(y, 0))
	case DC:
		dst.Assign(dcValue(nb))
	case Plane:
		if nb.top == nil || nb.left == nil || nb.corner < 0 {
			return false
		}
		a, b, c := planeParams(nb)
		v := ndmesh.Shr(ndmesh.Add(ndmesh.Add(ndmesh.Add(a,
			ndmesh.Mul(b, ndmesh.Sub(x, 7))),
			ndmesh.Mul(c, ndmesh.Sub(y, 7))), 16), 5)
		dst.Assign(ndmesh.Select(ndmesh.Lt(v, 0), 0, ndmesh.Select(ndmesh.Gt(v, 255), 255, v)))
	default:
		return false
	}
	return true
}

func sum(v *ndmesh.View[uint8]) int {
	s := 0
	for _, p := range v.Values() {
		s += int(p)
	}
	return s
}

func dcValue(nb neighbours) int {
	switch {
	case nb.top != nil && nb.left != nil:
		return (sum(nb.top) + sum(nb.left) + MBSize) >> 5
	case nb.top != nil:
		return (sum(nb.top) + MBSize/2) >> 4
	case nb.left != nil:
		return (sum(nb.left) + MBSize/2) >> 4
	default:
		return 128
	}
}

// planeParams returns the H.264 plane coefficients a, b and c.
func planeParams(nb neighbours) (a, b, c int) {
	top := func(i int) int {
		if i < 0 {
			return nb.corner
		}
		return int(nb.top.Read(0, i))
	}
	left := func(i int) int {
		if i < 0 {
			return nb.corner
		}
		return int(nb.left.Read(i, 0))
	}
	h, v := 0, 0
	for i := 0; i < 8; i++ {
		h += (i + 1) * (top(8+i) - top(6-i))
		v += (i + 1) * (left(8+i) - left(6-i))
	}
	a = 16 * (left(15) + top(15))
	b = (5*h + 32) >> 6
	c = (5*v + 32) >> 6
	return a, b, c
}

// sad returns the sum of absolute differences between target and pred.
func sad(target *ndmesh.View[uint8], pred *ndmesh.Block[int32]) int {
	diff := ndmesh.NewStackBlock[int32](MBSize, MBSize)
	y, x := ndmesh.NewIter("y"), ndmesh.NewIter("x")
	d := ndmesh.Sub(target.Ref(y, x), pred.Ref(y, x))
	diff.Ref(y, x).Assign(ndmesh.Select(ndmesh.Lt(d, 0), ndmesh.Neg(d), d))

	s := 0
	for _, v := range diff.Values() {
		s += int(v)
	}
	return s
}
