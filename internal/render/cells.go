package render

import (
	"fmt"
	"image"

	"gpulife/internal/core"
)

// DrawCells rasterizes instanceCount copies of quad, a float32x2 triangle
// list in cell-local space, one per cell. Dead cells collapse to a point and
// draw nothing. Cell (0, 0) is the bottom-left corner of dst.
func DrawCells(dst *image.RGBA, g core.Grid, state core.CellBuffer, quad []float32, instanceCount uint32) error {
	size := g.Size()
	if len(quad)%6 != 0 {
		return fmt.Errorf("render: vertex data of %d floats is not a triangle list", len(quad))
	}
	if int(instanceCount) > len(state) {
		return fmt.Errorf("render: %d instances but only %d cells", instanceCount, len(state))
	}
	w := float64(dst.Bounds().Dx())
	h := float64(dst.Bounds().Dy())
	fs := float64(size)

	toScreen := func(px, py float32, cx, cy int) vec2 {
		// same transform as the cell vertex shader, then NDC to pixels
		nx := (float64(px)+1)/fs - 1 + float64(cx)/fs*2
		ny := (float64(py)+1)/fs - 1 + float64(cy)/fs*2
		return vec2{x: (nx + 1) / 2 * w, y: (1 - ny) / 2 * h}
	}

	for i := 0; i < int(instanceCount); i++ {
		if state[i] == 0 {
			continue
		}
		cx, cy := i%size, i/size
		col := CellColor(cx, cy, size)
		for v := 0; v+6 <= len(quad); v += 6 {
			fillTriangle(dst,
				toScreen(quad[v], quad[v+1], cx, cy),
				toScreen(quad[v+2], quad[v+3], cx, cy),
				toScreen(quad[v+4], quad[v+5], cx, cy),
				col)
		}
	}
	return nil
}

// CellAt maps a pixel of a w x h target back to the cell it lies in.
func CellAt(g core.Grid, w, h, px, py int) (int, int) {
	size := g.Size()
	cx := px * size / w
	cy := size - 1 - py*size/h
	return cx, cy
}
