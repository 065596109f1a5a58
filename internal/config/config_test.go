package config

import (
	"flag"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("life", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 32, cfg.GridSize)
	assert.Equal(t, 8, cfg.WorkgroupSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Interval)
	assert.Equal(t, color.NRGBA{B: 0x66, A: 0xff}, cfg.BackgroundColor())
}

func TestParseFlags(t *testing.T) {
	cfg, err := Parse(newFlagSet(), []string{"-grid", "64", "-interval", "100ms", "-pattern", "glider"})
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.GridSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Interval)
	assert.Equal(t, "glider", cfg.Pattern)
}

func TestParseFileThenFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "life.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grid: 128\nworkgroup: 16\ninterval: 50ms\nbackground: \"#102030\"\n"), 0o644))

	cfg, err := Parse(newFlagSet(), []string{"-config", path, "-grid", "96"})
	require.NoError(t, err)
	assert.Equal(t, 96, cfg.GridSize)
	assert.Equal(t, 16, cfg.WorkgroupSize)
	assert.Equal(t, 50*time.Millisecond, cfg.Interval)
	assert.Equal(t, color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}, cfg.BackgroundColor())
	assert.Equal(t, path, cfg.File)
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(newFlagSet(), []string{"-config", filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.GridSize = 0
	cfg.WorkgroupSize = -1
	cfg.Density = 2
	cfg.Pattern = "spiral"
	cfg.Background = "blue"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"grid", "workgroup", "density", "spiral", "blue"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#00006680")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{B: 0x66, A: 0x80}, c)

	_, err = ParseColor("#12")
	assert.Error(t, err)
	_, err = ParseColor("#zzzzzz")
	assert.Error(t, err)
}

func TestFrameInterval(t *testing.T) {
	cfg := Default()
	cfg.FPS = 50
	assert.Equal(t, 20*time.Millisecond, cfg.FrameInterval())
}
