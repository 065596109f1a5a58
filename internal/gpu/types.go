// Package gpu defines the device contract the frame orchestration runs
// against. Resources are referenced by opaque IDs; each backend maps the IDs
// to its own objects.
package gpu

import (
	"fmt"
	"image/color"

	"gpulife/internal/core"
)

// BufferID is an opaque handle to a device buffer.
type BufferID uint64

// BindGroupID is an opaque handle to a bind group.
type BindGroupID uint64

// ComputePipelineID is an opaque handle to a compute pipeline.
type ComputePipelineID uint64

// RenderPipelineID is an opaque handle to a render pipeline.
type RenderPipelineID uint64

// TextureViewID is an opaque handle to a render target view.
type TextureViewID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// Limits on slots addressable from a pass.
const (
	MaxBindGroups    = 4
	MaxVertexBuffers = 2
)

// Color is a linear RGBA clear value with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

// ColorFrom converts any color.Color.
func ColorFrom(c color.Color) Color {
	r, g, b, a := c.RGBA()
	return Color{
		R: float64(r) / 0xffff,
		G: float64(g) / 0xffff,
		B: float64(b) / 0xffff,
		A: float64(a) / 0xffff,
	}
}

// RGBA returns the color as 8-bit premultiplied RGBA.
func (c Color) RGBA() color.RGBA {
	to8 := func(v float64) uint8 {
		switch {
		case v <= 0:
			return 0
		case v >= 1:
			return 0xff
		}
		return uint8(v*0xff + 0.5)
	}
	return color.RGBA{R: to8(c.R * c.A), G: to8(c.G * c.A), B: to8(c.B * c.A), A: to8(c.A)}
}

// LoadOp controls how a render pass treats the existing target contents.
type LoadOp uint8

const (
	LoadOpClear LoadOp = iota
	LoadOpLoad
)

// RenderPassDescriptor describes the single color attachment of a render pass.
type RenderPassDescriptor struct {
	View       TextureViewID
	LoadOp     LoadOp
	ClearValue Color
}

// Resources is the bundle a backend hands the orchestrator after setup.
// BindGroups[0] reads A and writes B; BindGroups[1] reads B and writes A.
type Resources struct {
	ComputePipeline ComputePipelineID
	RenderPipeline  RenderPipelineID
	BindGroups      core.PingPong[BindGroupID]
	VertexBuffer    BufferID
	VertexCount     uint32
	Grid            core.Grid
	WorkgroupSize   int
}

// Validate checks that every handle is set.
func (r Resources) Validate() error {
	switch {
	case r.ComputePipeline == InvalidID:
		return fmt.Errorf("gpu: resources missing compute pipeline")
	case r.RenderPipeline == InvalidID:
		return fmt.Errorf("gpu: resources missing render pipeline")
	case r.BindGroups[0] == InvalidID || r.BindGroups[1] == InvalidID:
		return fmt.Errorf("gpu: resources need two bind groups")
	case r.BindGroups[0] == r.BindGroups[1]:
		return fmt.Errorf("gpu: bind groups must be distinct")
	case r.VertexBuffer == InvalidID:
		return fmt.Errorf("gpu: resources missing vertex buffer")
	case r.VertexCount == 0:
		return fmt.Errorf("gpu: vertex count is zero")
	case r.Grid.Size() <= 0:
		return fmt.Errorf("gpu: resources missing grid")
	case r.WorkgroupSize <= 0:
		return fmt.Errorf("gpu: workgroup size must be positive, got %d", r.WorkgroupSize)
	}
	return nil
}

// Device is the part of a backend the orchestrator submits work to.
type Device interface {
	Queue() Queue
}

// Queue executes finished command buffers in submission order.
type Queue interface {
	Submit(buffers ...*CommandBuffer) error
}

// Surface yields the render target for the current frame.
type Surface interface {
	CurrentView() (TextureViewID, error)
}
