// Package gputest provides a recording device for exercising frame
// orchestration without a GPU.
package gputest

import (
	"gpulife/internal/core"
	"gpulife/internal/gpu"
)

// Device records every submission. Set SubmitErr or ViewErr to inject
// failures.
type Device struct {
	Submissions []*gpu.CommandBuffer
	Views       int

	SubmitErr error
	ViewErr   error
}

// Queue returns the device itself.
func (d *Device) Queue() gpu.Queue { return d }

// Submit records the buffers unless SubmitErr is set.
func (d *Device) Submit(buffers ...*gpu.CommandBuffer) error {
	if d.SubmitErr != nil {
		return d.SubmitErr
	}
	d.Submissions = append(d.Submissions, buffers...)
	return nil
}

// CurrentView hands out a fresh view ID per call.
func (d *Device) CurrentView() (gpu.TextureViewID, error) {
	if d.ViewErr != nil {
		return gpu.InvalidID, d.ViewErr
	}
	d.Views++
	return gpu.TextureViewID(d.Views), nil
}

// Last returns the most recent submission, or nil.
func (d *Device) Last() *gpu.CommandBuffer {
	if len(d.Submissions) == 0 {
		return nil
	}
	return d.Submissions[len(d.Submissions)-1]
}

// Find returns the commands of type t in cb.
func Find(cb *gpu.CommandBuffer, t gpu.CommandType) []gpu.Command {
	var out []gpu.Command
	for _, c := range cb.Commands {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// Resources returns a fully populated bundle with distinct fake IDs.
func Resources(size, workgroup int) gpu.Resources {
	g, err := core.NewGrid(size)
	if err != nil {
		panic(err)
	}
	return gpu.Resources{
		ComputePipeline: 11,
		RenderPipeline:  12,
		BindGroups:      core.PingPong[gpu.BindGroupID]{21, 22},
		VertexBuffer:    31,
		VertexCount:     gpu.CellQuadVertexCount,
		Grid:            g,
		WorkgroupSize:   workgroup,
	}
}

// Recorder is an Executor that keeps resolved calls for inspection.
type Recorder struct {
	Dispatches []gpu.ComputeCall
	Passes     []gpu.RenderPassDescriptor
	Draws      []gpu.DrawCall
	Ended      int
}

func (r *Recorder) Dispatch(c gpu.ComputeCall) error { r.Dispatches = append(r.Dispatches, c); return nil }

func (r *Recorder) BeginRenderPass(d gpu.RenderPassDescriptor) error {
	r.Passes = append(r.Passes, d)
	return nil
}

func (r *Recorder) Draw(c gpu.DrawCall) error { r.Draws = append(r.Draws, c); return nil }

func (r *Recorder) EndRenderPass() error { r.Ended++; return nil }
