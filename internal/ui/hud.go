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

const (
	panelPadding = 8
	lineHeight   = 16
	panelWidth   = 190
)

// HUD renders the parameter panel over the top-left corner of the view.
type HUD struct {
	visible    bool
	panel      *ebiten.Image
	lastHeight int
	snapshot   core.ParameterSnapshot
}

// NewHUD constructs a HUD, initially shown when visible is set.
func NewHUD(visible bool) *HUD {
	return &HUD{visible: visible}
}

// Update toggles the panel with O and caches the latest snapshot.
func (h *HUD) Update(snapshot core.ParameterSnapshot) {
	if h == nil {
		return
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyO) {
		h.visible = !h.visible
	}
	h.snapshot = snapshot
}

// Visible reports whether the panel is drawn.
func (h *HUD) Visible() bool { return h != nil && h.visible }

// Draw paints the panel.
func (h *HUD) Draw(screen *ebiten.Image) {
	if !h.Visible() {
		return
	}
	rows := 0
	for _, g := range h.snapshot.Groups {
		rows += 1 + len(g.Params)
	}
	height := panelPadding*2 + rows*lineHeight
	if h.panel == nil || h.lastHeight != height {
		h.panel = ebiten.NewImage(panelWidth, height)
		h.lastHeight = height
	}
	h.panel.Fill(color.RGBA{R: 16, G: 16, B: 20, A: 200})

	face := basicfont.Face7x13
	y := panelPadding + 11
	for _, g := range h.snapshot.Groups {
		text.Draw(h.panel, g.Name, face, panelPadding, y, color.RGBA{R: 200, G: 200, B: 210, A: 255})
		y += lineHeight
		for _, p := range g.Params {
			text.Draw(h.panel, p.Label, face, panelPadding+8, y, color.RGBA{R: 160, G: 160, B: 170, A: 255})
			valueX := panelWidth - panelPadding - len(p.Value)*face.Advance
			text.Draw(h.panel, p.Value, face, valueX, y, color.RGBA{R: 235, G: 235, B: 240, A: 255})
			y += lineHeight
		}
	}
	screen.DrawImage(h.panel, nil)
}
