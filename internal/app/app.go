//go:build ebiten

package app

import (
	"context"
	"errors"
	"time"

	"gpulife/internal/backend"
	"gpulife/internal/core"
	"gpulife/internal/ui"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Game adapts the frame loop to the ebiten.Game interface. Frames render
// into canvas, which persists between frames so non-step frames keep showing
// the last generation.
type Game struct {
	ctx    context.Context
	canvas *ebiten.Image
	frame  backend.FrameFunc
	ctl    backend.Controller

	overlay *ui.Overlay
	hud     *ui.HUD

	paused   bool
	tickOnce bool
	err      error
}

// New constructs a Game drawing into canvas.
func New(ctx context.Context, canvas *ebiten.Image, grid core.Grid, frame backend.FrameFunc, ctl backend.Controller, showHUD bool) *Game {
	return &Game{
		ctx:     ctx,
		canvas:  canvas,
		frame:   frame,
		ctl:     ctl,
		overlay: ui.NewOverlay(grid),
		hud:     ui.NewHUD(showHUD),
	}
}

// Update handles input and reports termination.
func (g *Game) Update() error {
	if g.err != nil {
		return g.err
	}
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.paused = false
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		g.tickOnce = true
	}

	g.overlay.Update(g.paused)
	if g.ctl != nil {
		g.hud.Update(g.ctl.Parameters())
	}
	return nil
}

// Draw runs one frame into the canvas and shows it.
func (g *Game) Draw(screen *ebiten.Image) {
	now := time.Now()
	switch {
	case g.err != nil:
	case g.tickOnce && g.ctl != nil:
		g.tickOnce = false
		g.err = g.ctl.Advance(now)
	case !g.paused:
		g.err = g.frame(now)
	}

	screen.DrawImage(g.canvas, nil)
	g.overlay.Draw(screen)
	g.hud.Draw(screen)
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	b := g.canvas.Bounds()
	return b.Dx(), b.Dy()
}

// Run opens the window and blocks until the game ends. A user or context
// initiated exit returns nil.
func Run(g *Game, title string) error {
	b := g.canvas.Bounds()
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(b.Dx(), b.Dy())
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}
