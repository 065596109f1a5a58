package core

import "fmt"

// Grid describes the square, toroidal simulation lattice. It is immutable.
type Grid struct {
	size int
}

// NewGrid returns a size x size grid.
func NewGrid(size int) (Grid, error) {
	if size <= 0 {
		return Grid{}, fmt.Errorf("core: grid size must be positive, got %d", size)
	}
	return Grid{size: size}, nil
}

// Size returns the edge length in cells.
func (g Grid) Size() int { return g.size }

// Cells returns the number of cells, size².
func (g Grid) Cells() int { return g.size * g.size }

// InstanceCount is the number of cell quads drawn per render pass.
func (g Grid) InstanceCount() uint32 { return uint32(g.Cells()) }

// WorkgroupCount returns ceil(size/workgroupSize), the dispatch extent along
// one axis. Workgroups past the edge are expected to bounds-check.
func (g Grid) WorkgroupCount(workgroupSize int) uint32 {
	if workgroupSize <= 0 {
		workgroupSize = 1
	}
	return uint32((g.size + workgroupSize - 1) / workgroupSize)
}

// Index returns the linear buffer index for coordinates (x, y).
func (g Grid) Index(x, y int) int { return y*g.size + x }

// Wrap applies toroidal wrapping to the provided coordinates.
func (g Grid) Wrap(x, y int) (int, int) {
	x = (x%g.size + g.size) % g.size
	y = (y%g.size + g.size) % g.size
	return x, y
}

// CellBuffer is a host-side copy of one cell-state buffer: size² values of
// 0 (dead) or 1 (alive) in row-major order.
type CellBuffer []uint32

// NewCellBuffer allocates an all-dead buffer for g.
func NewCellBuffer(g Grid) CellBuffer { return make(CellBuffer, g.Cells()) }

// Population counts live cells.
func (b CellBuffer) Population() int {
	n := 0
	for _, c := range b {
		if c != 0 {
			n++
		}
	}
	return n
}

// Clear marks every cell dead.
func (b CellBuffer) Clear() {
	for i := range b {
		b[i] = 0
	}
}
