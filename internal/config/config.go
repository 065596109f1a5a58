package config

import (
	"errors"
	"flag"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
	"time"

	"gpulife/internal/core"
	"gpulife/internal/logging"

	"gopkg.in/yaml.v3"
)

// Config represents the command-line parameters for the application.
type Config struct {
	Backend       string        `yaml:"backend"`
	GridSize      int           `yaml:"grid"`
	Interval      time.Duration `yaml:"interval"`
	WorkgroupSize int           `yaml:"workgroup"`
	Background    string        `yaml:"background"`

	Seed    int64   `yaml:"seed"`
	Density float64 `yaml:"density"`
	Pattern string  `yaml:"pattern"`

	Scale    int    `yaml:"scale"`
	FPS      int    `yaml:"fps"`
	Frames   int    `yaml:"frames"`
	Snapshot string `yaml:"snapshot"`
	Overlay  bool   `yaml:"overlay"`

	LogLevel    string `yaml:"log_level"`
	Environment string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`

	File string `yaml:"-"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		Backend:       "cpu",
		GridSize:      32,
		Interval:      250 * time.Millisecond,
		WorkgroupSize: 8,
		Background:    "#000066",
		Seed:          42,
		Density:       0.4,
		Pattern:       string(core.PatternRandom),
		Scale:         16,
		FPS:           60,
		LogLevel:      "info",
		Environment:   "development",
	}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.Backend, "backend", c.Backend, "rendering backend (cpu, kage, webgpu, opencl)")
	fs.IntVar(&c.GridSize, "grid", c.GridSize, "cells per grid edge")
	fs.DurationVar(&c.Interval, "interval", c.Interval, "minimum time between simulation steps")
	fs.IntVar(&c.WorkgroupSize, "workgroup", c.WorkgroupSize, "compute workgroup edge length")
	fs.StringVar(&c.Background, "background", c.Background, "clear color as #rrggbb or #rrggbbaa")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for the random pattern")
	fs.Float64Var(&c.Density, "density", c.Density, "fraction of live cells in the random pattern")
	fs.StringVar(&c.Pattern, "pattern", c.Pattern, "initial pattern (random, glider, blinker, blank)")
	fs.IntVar(&c.Scale, "scale", c.Scale, "window pixels per cell")
	fs.IntVar(&c.FPS, "fps", c.FPS, "frame rate for hosts without vsync")
	fs.IntVar(&c.Frames, "frames", c.Frames, "stop after this many frames (0 runs until interrupted)")
	fs.StringVar(&c.Snapshot, "snapshot", c.Snapshot, "write the last frame to this PNG on exit")
	fs.BoolVar(&c.Overlay, "overlay", c.Overlay, "show the stats overlay")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.StringVar(&c.Environment, "env", c.Environment, "development or production logging")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "serve Prometheus metrics on this address")
	fs.StringVar(&c.File, "config", c.File, "YAML file with defaults; flags override it")
}

// Parse reads args into a Config. Values from -config are applied first and
// any flag given explicitly wins over the file.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Default()
	cfg.Bind(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.File == "" {
		return cfg, cfg.Validate()
	}

	merged, err := LoadFile(cfg.File)
	if err != nil {
		return Config{}, err
	}
	merged.File = cfg.File
	override := flag.NewFlagSet(fs.Name(), flag.ContinueOnError)
	merged.Bind(override)
	var setErr error
	fs.Visit(func(f *flag.Flag) {
		if err := override.Set(f.Name, f.Value.String()); err != nil && setErr == nil {
			setErr = err
		}
	})
	if setErr != nil {
		return Config{}, setErr
	}
	return merged, merged.Validate()
}

// LoadFile reads a YAML config on top of Default.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Backend == "" {
		errs = append(errs, errors.New("backend is required"))
	}
	if c.GridSize <= 0 {
		errs = append(errs, fmt.Errorf("grid must be positive, got %d", c.GridSize))
	}
	if c.WorkgroupSize <= 0 {
		errs = append(errs, fmt.Errorf("workgroup must be positive, got %d", c.WorkgroupSize))
	}
	if c.Interval < 0 {
		errs = append(errs, fmt.Errorf("interval must not be negative, got %s", c.Interval))
	}
	if c.Density < 0 || c.Density > 1 {
		errs = append(errs, fmt.Errorf("density must be within [0,1], got %g", c.Density))
	}
	if _, err := core.ParsePattern(c.Pattern); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseColor(c.Background); err != nil {
		errs = append(errs, err)
	}
	if c.Scale <= 0 {
		errs = append(errs, fmt.Errorf("scale must be positive, got %d", c.Scale))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be positive, got %d", c.FPS))
	}
	if c.Frames < 0 {
		errs = append(errs, fmt.Errorf("frames must not be negative, got %d", c.Frames))
	}
	if !logging.ValidLevel(c.LogLevel) {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// BackgroundColor parses Background. Call Validate first.
func (c Config) BackgroundColor() color.NRGBA {
	col, _ := ParseColor(c.Background)
	return col
}

// FrameInterval is the display period derived from FPS.
func (c Config) FrameInterval() time.Duration {
	if c.FPS <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.FPS)
}

// ParseColor accepts #rrggbb or #rrggbbaa.
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("background %q: want #rrggbb or #rrggbbaa", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("background %q: %w", s, err)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
