package render

import (
	"image"
	"image/color"
)

// Clear fills every pixel of dst with c.
func Clear(dst *image.RGBA, c color.RGBA) {
	if len(dst.Pix) < 4 {
		return
	}
	row := dst.Pix[:4]
	row[0], row[1], row[2], row[3] = c.R, c.G, c.B, c.A
	// double the filled prefix until the buffer is covered
	for filled := 4; filled < len(dst.Pix); filled *= 2 {
		copy(dst.Pix[filled:], dst.Pix[:filled])
	}
}

// CellColor is the fragment color of a live cell: red and green follow the
// cell position, blue falls off towards the top.
func CellColor(x, y, size int) color.RGBA {
	fx := float64(x) / float64(size)
	fy := float64(y) / float64(size)
	return color.RGBA{R: unit8(fx), G: unit8(fy), B: unit8(1 - fy), A: 0xff}
}

func unit8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 0xff
	}
	return uint8(v*0xff + 0.5)
}

type vec2 struct{ x, y float64 }

// fillTriangle paints the pixels whose centers fall inside a, b, c.
func fillTriangle(dst *image.RGBA, a, b, c vec2, col color.RGBA) {
	minX, maxX := min(a.x, b.x, c.x), max(a.x, b.x, c.x)
	minY, maxY := min(a.y, b.y, c.y), max(a.y, b.y, c.y)
	bounds := dst.Bounds()
	x0 := max(int(minX), bounds.Min.X)
	y0 := max(int(minY), bounds.Min.Y)
	x1 := min(int(maxX)+1, bounds.Max.X)
	y1 := min(int(maxY)+1, bounds.Max.Y)

	area := edge(a, b, c)
	if area == 0 {
		return
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			p := vec2{float64(x) + 0.5, float64(y) + 0.5}
			w0, w1, w2 := edge(b, c, p), edge(c, a, p), edge(a, b, p)
			if area < 0 {
				w0, w1, w2 = -w0, -w1, -w2
			}
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			i := dst.PixOffset(x, y)
			dst.Pix[i+0] = col.R
			dst.Pix[i+1] = col.G
			dst.Pix[i+2] = col.B
			dst.Pix[i+3] = col.A
		}
	}
}

func edge(a, b, p vec2) float64 {
	return (b.x-a.x)*(p.y-a.y) - (b.y-a.y)*(p.x-a.x)
}
