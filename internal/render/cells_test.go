package render

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"gpulife/internal/core"
	"gpulife/internal/gpu"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var navy = color.RGBA{B: 102, A: 255}

func TestDrawCellsPlacesQuadsBottomUp(t *testing.T) {
	g, err := core.NewGrid(4)
	require.NoError(t, err)
	state := core.NewCellBuffer(g)
	state[g.Index(0, 0)] = 1
	state[g.Index(3, 2)] = 1

	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	Clear(img, navy)
	require.NoError(t, DrawCells(img, g, state, gpu.CellQuad, g.InstanceCount()))

	// cell (0,0) is bottom-left: pixels x 0..9, y 30..39
	assert.Equal(t, CellColor(0, 0, 4), img.RGBAAt(5, 35))
	// inset border keeps the background
	assert.Equal(t, navy, img.RGBAAt(0, 39))
	// cell (3,2): x 30..39, y 10..19
	assert.Equal(t, CellColor(3, 2, 4), img.RGBAAt(35, 15))
	// dead cell
	assert.Equal(t, navy, img.RGBAAt(15, 15))
}

func TestDrawCellsRejectsBadInput(t *testing.T) {
	g, err := core.NewGrid(2)
	require.NoError(t, err)
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	assert.Error(t, DrawCells(img, g, core.NewCellBuffer(g), []float32{0, 0, 1}, 4))
	assert.Error(t, DrawCells(img, g, core.NewCellBuffer(g), gpu.CellQuad, 5))
}

func TestCellColorGradient(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0, G: 0, B: 255, A: 255}, CellColor(0, 0, 32))
	c := CellColor(16, 16, 32)
	assert.Equal(t, uint8(128), c.R)
	assert.Equal(t, uint8(128), c.G)
	assert.Equal(t, uint8(128), c.B)
}

func TestCellAt(t *testing.T) {
	g, _ := core.NewGrid(4)
	x, y := CellAt(g, 40, 40, 5, 35)
	assert.Equal(t, 0, x)
	assert.Equal(t, 0, y)
	x, y = CellAt(g, 40, 40, 35, 15)
	assert.Equal(t, 3, x)
	assert.Equal(t, 2, y)
}

func TestClearAndWritePNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 7, 3))
	Clear(img, navy)
	for y := 0; y < 3; y++ {
		for x := 0; x < 7; x++ {
			require.Equal(t, navy, img.RGBAAt(x, y))
		}
	}

	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, WritePNG(path, img))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
