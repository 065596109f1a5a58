package life

import (
	"fmt"

	"gpulife/internal/core"
)

// Next applies B3/S23 to one cell given its live neighbour count.
func Next(self, neighbors uint32) uint32 {
	switch neighbors {
	case 2:
		return self
	case 3:
		return 1
	default:
		return 0
	}
}

// StepRegion advances the cells with x in [x0, x1) and y in [y0, y1), reading
// in and writing out with toroidal wrapping. The region is clipped to the
// grid so over-sized workgroups write nothing past the edge.
func StepRegion(g core.Grid, in, out core.CellBuffer, x0, y0, x1, y1 int) {
	w := g.Size()
	if x1 > w {
		x1 = w
	}
	if y1 > w {
		y1 = w
	}
	for y := y0; y < y1; y++ {
		up := (y + 1) % w
		down := (y + w - 1) % w
		for x := x0; x < x1; x++ {
			right := (x + 1) % w
			left := (x + w - 1) % w
			neighbors := in[up*w+left] + in[up*w+x] + in[up*w+right] +
				in[y*w+left] + in[y*w+right] +
				in[down*w+left] + in[down*w+x] + in[down*w+right]
			idx := y*w + x
			out[idx] = Next(in[idx], neighbors)
		}
	}
}

// Life implements Conway's Game of Life with toroidal wrapping on the host.
// It is the reference the device backends are checked against.
type Life struct {
	grid core.Grid
	cur  core.CellBuffer
	nxt  core.CellBuffer
}

// New returns an all-dead board on g.
func New(g core.Grid) *Life {
	return &Life{grid: g, cur: core.NewCellBuffer(g), nxt: core.NewCellBuffer(g)}
}

// Grid returns the board geometry.
func (l *Life) Grid() core.Grid { return l.grid }

// Cells exposes the current grid values.
func (l *Life) Cells() core.CellBuffer { return l.cur }

// Load replaces the current generation.
func (l *Life) Load(cells core.CellBuffer) error {
	if len(cells) != len(l.cur) {
		return fmt.Errorf("life: load %d cells into a %d-cell grid", len(cells), len(l.cur))
	}
	copy(l.cur, cells)
	return nil
}

// Step advances the simulation by one generation.
func (l *Life) Step() {
	StepRegion(l.grid, l.cur, l.nxt, 0, 0, l.grid.Size(), l.grid.Size())
	l.cur, l.nxt = l.nxt, l.cur
}
