// Package sim sequences the per-frame compute and render work and gates it
// to the configured step rate.
package sim

import (
	"fmt"

	"gpulife/internal/core"
	"gpulife/internal/gpu"
)

// Stepper advances the simulation by one step and returns the next counter.
type Stepper interface {
	Step(step uint64) (uint64, error)
}

// Orchestrator encodes one compute dispatch followed by one render pass and
// submits them together.
type Orchestrator struct {
	device     gpu.Device
	surface    gpu.Surface
	res        gpu.Resources
	background gpu.Color
	workgroups uint32
}

// NewOrchestrator validates res and precomputes the dispatch extent.
func NewOrchestrator(device gpu.Device, surface gpu.Surface, res gpu.Resources, background gpu.Color) (*Orchestrator, error) {
	if device == nil || surface == nil {
		return nil, fmt.Errorf("sim: orchestrator needs a device and a surface")
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{
		device:     device,
		surface:    surface,
		res:        res,
		background: background,
		workgroups: res.Grid.WorkgroupCount(res.WorkgroupSize),
	}, nil
}

// Workgroups returns the dispatch extent per axis.
func (o *Orchestrator) Workgroups() uint32 { return o.workgroups }

// Resources returns the bundle the orchestrator draws from.
func (o *Orchestrator) Resources() gpu.Resources { return o.res }

// Step encodes and submits step and returns step+1. Nothing is submitted
// when an error is returned.
func (o *Orchestrator) Step(step uint64) (uint64, error) {
	enc := gpu.NewCommandEncoder(fmt.Sprintf("step %d", step))

	cp := enc.BeginComputePass()
	cp.SetPipeline(o.res.ComputePipeline)
	cp.SetBindGroup(0, o.res.BindGroups.At(core.ComputeParity(step)))
	cp.DispatchWorkgroups(o.workgroups, o.workgroups, 1)
	cp.End()

	view, err := o.surface.CurrentView()
	if err != nil {
		return step, fmt.Errorf("sim: acquire view for step %d: %w", step, err)
	}
	rp := enc.BeginRenderPass(gpu.RenderPassDescriptor{
		View:       view,
		LoadOp:     gpu.LoadOpClear,
		ClearValue: o.background,
	})
	rp.SetPipeline(o.res.RenderPipeline)
	rp.SetVertexBuffer(0, o.res.VertexBuffer)
	rp.SetBindGroup(0, o.res.BindGroups.At(core.RenderParity(step)))
	rp.Draw(o.res.VertexCount, o.res.Grid.InstanceCount())
	rp.End()

	cb, err := enc.Finish()
	if err != nil {
		return step, fmt.Errorf("sim: encode step %d: %w", step, err)
	}
	if err := o.device.Queue().Submit(cb); err != nil {
		return step, fmt.Errorf("sim: submit step %d: %w", step, err)
	}
	return step + 1, nil
}
