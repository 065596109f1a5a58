// Package backend holds the registry of device backends and the pieces they
// share.
package backend

import (
	"context"
	"fmt"
	"image"
	"sort"
	"time"

	"gpulife/internal/config"
	"gpulife/internal/core"
	"gpulife/internal/gpu"

	"go.uber.org/zap"
)

// Backend is a set-up device together with the host that drives frames.
type Backend interface {
	Name() string
	Device() gpu.Device
	Surface() gpu.Surface
	Resources() gpu.Resources
	// Run blocks, calling frame once per display frame, until ctx is
	// cancelled, the host is closed or frame fails.
	Run(ctx context.Context, frame FrameFunc) error
	Close() error
}

// Snapshotter is implemented by backends that can hand back the last frame.
type Snapshotter interface {
	Snapshot() (image.Image, error)
}

// Controller is the extra control surface interactive hosts drive.
type Controller interface {
	Advance(now time.Time) error
	Parameters() core.ParameterSnapshot
}

// Interactive is implemented by backends whose host takes user input.
type Interactive interface {
	Attach(ctl Controller)
}

// Factory constructs a Backend from configuration.
type Factory func(cfg config.Config, log *zap.Logger) (Backend, error)

var backends = map[string]Factory{}

// Register adds a backend factory under the provided name.
func Register(name string, f Factory) {
	if name == "" || f == nil {
		return
	}
	backends[name] = f
}

// Names lists the registered backends in order.
func Names() []string {
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Open looks up name and constructs the backend.
func Open(name string, cfg config.Config, log *zap.Logger) (Backend, error) {
	f, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("backend: unknown backend %q (have %v)", name, Names())
	}
	return f(cfg, log)
}

// Unsupported returns a factory for a backend left out of this build.
func Unsupported(name, tag string) Factory {
	return func(config.Config, *zap.Logger) (Backend, error) {
		return nil, fmt.Errorf("%w: the %s backend requires building with `-tags %s`", gpu.ErrUnsupportedPlatform, name, tag)
	}
}
