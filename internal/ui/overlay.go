//go:build ebiten

package ui

import (
	"image/color"

	"gpulife/internal/core"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

// Overlay draws optional debugging visuals on top of the cell view.
type Overlay struct {
	grid     core.Grid
	showGrid bool
	paused   bool
	pixel    *ebiten.Image
}

// NewOverlay constructs a new overlay instance.
func NewOverlay(grid core.Grid) *Overlay {
	o := &Overlay{grid: grid}
	o.pixel = ebiten.NewImage(1, 1)
	o.pixel.Fill(color.White)
	return o
}

// Update toggles grid lines with G.
func (o *Overlay) Update(paused bool) {
	if inpututil.IsKeyJustPressed(ebiten.KeyG) {
		o.showGrid = !o.showGrid
	}
	o.paused = paused
}

// Draw renders the overlay onto the provided screen.
func (o *Overlay) Draw(screen *ebiten.Image) {
	size := o.grid.Size()
	if size <= 0 {
		return
	}
	b := screen.Bounds()
	w, h := b.Dx(), b.Dy()

	if o.showGrid {
		line := color.RGBA{R: 255, G: 255, B: 255, A: 40}
		for i := 1; i < size; i++ {
			x := float64(i * w / size)
			o.fillRect(screen, x, 0, 1, float64(h), line)
			y := float64(i * h / size)
			o.fillRect(screen, 0, y, float64(w), 1, line)
		}
	}

	if o.paused {
		label := "PAUSED"
		face := basicfont.Face7x13
		x := w - len(label)*face.Advance - 8
		o.fillRect(screen, float64(x-4), 4, float64(len(label)*face.Advance+8), 18, color.RGBA{A: 180})
		text.Draw(screen, label, face, x, 17, color.RGBA{R: 255, G: 200, B: 80, A: 255})
	}
}

func (o *Overlay) fillRect(dst *ebiten.Image, x, y, w, h float64, c color.RGBA) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(w, h)
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(c)
	dst.DrawImage(o.pixel, op)
}
