package cpu

import (
	"context"
	"fmt"
	"image"

	"gpulife/internal/backend"
	"gpulife/internal/config"
	"gpulife/internal/core"
	"gpulife/internal/gpu"

	"go.uber.org/zap"
)

// Name is the registry key of this backend.
const Name = "cpu"

// Backend pairs a Device with a wall-clock ticker host.
type Backend struct {
	device *Device
	host   backend.Ticker
}

// New builds the device from cfg and seeds buffer A.
func New(cfg config.Config, log *zap.Logger) (*Backend, error) {
	g, err := core.NewGrid(cfg.GridSize)
	if err != nil {
		return nil, err
	}
	pattern, err := core.ParsePattern(cfg.Pattern)
	if err != nil {
		return nil, err
	}
	seed, err := core.Seed(g, pattern, cfg.Seed, cfg.Density)
	if err != nil {
		return nil, err
	}
	dev, err := NewDevice(DeviceOptions{
		Grid:          g,
		WorkgroupSize: cfg.WorkgroupSize,
		Seed:          seed,
		Width:         g.Size() * cfg.Scale,
		Height:        g.Size() * cfg.Scale,
	})
	if err != nil {
		return nil, fmt.Errorf("cpu: %w", err)
	}
	w, h := dev.Surface().Size()
	log.Info("device ready",
		zap.Int("grid", g.Size()),
		zap.Int("workgroup", cfg.WorkgroupSize),
		zap.Int("parallelism", dev.parallelism),
		zap.Int("population", seed.Population()),
		zap.Int("width", w),
		zap.Int("height", h))
	return &Backend{
		device: dev,
		host:   backend.Ticker{Interval: cfg.FrameInterval(), Frames: cfg.Frames},
	}, nil
}

func (b *Backend) Name() string             { return Name }
func (b *Backend) Device() gpu.Device       { return b.device }
func (b *Backend) Surface() gpu.Surface     { return b.device.Surface() }
func (b *Backend) Resources() gpu.Resources { return b.device.Resources() }

// CPU exposes the underlying device.
func (b *Backend) CPU() *Device { return b.device }

// Run ticks frames at the configured rate.
func (b *Backend) Run(ctx context.Context, frame backend.FrameFunc) error {
	return b.host.Run(ctx, frame)
}

// Snapshot returns the last presented frame.
func (b *Backend) Snapshot() (image.Image, error) { return b.device.Surface().Snapshot() }

// Close is a no-op; host memory is reclaimed by the GC.
func (b *Backend) Close() error { return nil }

func init() {
	backend.Register(Name, func(cfg config.Config, log *zap.Logger) (backend.Backend, error) {
		b, err := New(cfg, log)
		if err != nil {
			return nil, err
		}
		return b, nil
	})
}
