// Package cpu is a pure-Go device: compute workgroups run as goroutines and
// the render pass rasterizes into an in-memory RGBA surface.
package cpu

import (
	"fmt"
	"image"
	"runtime"
	"sync"

	"gpulife/internal/core"
	"gpulife/internal/gpu"
	"gpulife/internal/render"
	"gpulife/internal/sims/life"

	"golang.org/x/sync/errgroup"
)

type buffer struct {
	label  string
	cells  core.CellBuffer
	floats []float32
}

// bindGroup mirrors the three-entry layout: uniform grid, read-only input,
// read-write output.
type bindGroup struct {
	label   string
	uniform gpu.BufferID
	in      gpu.BufferID
	out     gpu.BufferID
}

type computePipeline struct {
	workgroupSize int
}

type renderPipeline struct{}

// DeviceOptions configures NewDevice.
type DeviceOptions struct {
	Grid          core.Grid
	WorkgroupSize int
	Seed          core.CellBuffer
	Width, Height int
	// Parallelism caps concurrently running workgroups; 0 means GOMAXPROCS.
	Parallelism int
}

// Device executes command buffers on the host.
type Device struct {
	grid        core.Grid
	parallelism int

	buffers   gpu.Table[*buffer]
	groups    gpu.Table[bindGroup]
	computes  gpu.Table[computePipeline]
	renders   gpu.Table[renderPipeline]
	surface   *Surface
	resources gpu.Resources

	mu     sync.Mutex
	target *image.RGBA
}

// NewDevice allocates both cell buffers, seeds buffer A, and builds the bind
// groups and pipelines.
func NewDevice(opts DeviceOptions) (*Device, error) {
	g := opts.Grid
	if g.Size() <= 0 {
		return nil, fmt.Errorf("cpu: grid is required")
	}
	if opts.WorkgroupSize <= 0 {
		return nil, fmt.Errorf("cpu: workgroup size must be positive, got %d", opts.WorkgroupSize)
	}
	if opts.Seed != nil && len(opts.Seed) != g.Cells() {
		return nil, fmt.Errorf("cpu: seed has %d cells, grid has %d", len(opts.Seed), g.Cells())
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = g.Size(), g.Size()
	}
	par := opts.Parallelism
	if par <= 0 {
		par = runtime.GOMAXPROCS(0)
	}

	d := &Device{grid: g, parallelism: par}
	d.surface = NewSurface(opts.Width, opts.Height)

	size := float32(g.Size())
	uniform := gpu.BufferID(d.buffers.Add(&buffer{label: "Grid Uniforms", floats: []float32{size, size}}))
	a := core.NewCellBuffer(g)
	copy(a, opts.Seed)
	bufA := gpu.BufferID(d.buffers.Add(&buffer{label: "Cell State A", cells: a}))
	bufB := gpu.BufferID(d.buffers.Add(&buffer{label: "Cell State B", cells: core.NewCellBuffer(g)}))
	verts := gpu.BufferID(d.buffers.Add(&buffer{label: "Cell vertices", floats: append([]float32(nil), gpu.CellQuad...)}))

	groupA := gpu.BindGroupID(d.groups.Add(bindGroup{label: "Cell renderer bind group A", uniform: uniform, in: bufA, out: bufB}))
	groupB := gpu.BindGroupID(d.groups.Add(bindGroup{label: "Cell renderer bind group B", uniform: uniform, in: bufB, out: bufA}))

	d.resources = gpu.Resources{
		ComputePipeline: gpu.ComputePipelineID(d.computes.Add(computePipeline{workgroupSize: opts.WorkgroupSize})),
		RenderPipeline:  gpu.RenderPipelineID(d.renders.Add(renderPipeline{})),
		BindGroups:      core.PingPong[gpu.BindGroupID]{groupA, groupB},
		VertexBuffer:    verts,
		VertexCount:     gpu.CellQuadVertexCount,
		Grid:            g,
		WorkgroupSize:   opts.WorkgroupSize,
	}
	return d, d.resources.Validate()
}

// Resources returns the setup bundle.
func (d *Device) Resources() gpu.Resources { return d.resources }

// Surface returns the render target.
func (d *Device) Surface() *Surface { return d.surface }

// Queue returns the device itself; submissions run synchronously.
func (d *Device) Queue() gpu.Queue { return d }

// Submit replays each buffer in order.
func (d *Device) Submit(buffers ...*gpu.CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, cb := range buffers {
		if err := gpu.Replay(cb, d); err != nil {
			return fmt.Errorf("cpu: %s: %w", cb.Label, err)
		}
	}
	return nil
}

// State returns a copy of the buffer that bind group p reads.
func (d *Device) State(p core.Parity) (core.CellBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	bg, err := d.groups.Lookup("bind group", uint64(d.resources.BindGroups.At(p)))
	if err != nil {
		return nil, err
	}
	buf, err := d.buffers.Lookup("buffer", uint64(bg.in))
	if err != nil {
		return nil, err
	}
	return append(core.CellBuffer(nil), buf.cells...), nil
}

func (d *Device) resolve(id gpu.BindGroupID) (in, out core.CellBuffer, err error) {
	bg, err := d.groups.Lookup("bind group", uint64(id))
	if err != nil {
		return nil, nil, err
	}
	if bg.in == bg.out {
		return nil, nil, fmt.Errorf("cpu: bind group %q reads and writes the same buffer", bg.label)
	}
	inBuf, err := d.buffers.Lookup("buffer", uint64(bg.in))
	if err != nil {
		return nil, nil, err
	}
	outBuf, err := d.buffers.Lookup("buffer", uint64(bg.out))
	if err != nil {
		return nil, nil, err
	}
	return inBuf.cells, outBuf.cells, nil
}

// Dispatch runs every workgroup of the call. Workgroups read only the input
// buffer and write disjoint cells of the output.
func (d *Device) Dispatch(call gpu.ComputeCall) error {
	p, err := d.computes.Lookup("compute pipeline", uint64(call.Pipeline))
	if err != nil {
		return err
	}
	in, out, err := d.resolve(call.BindGroups[0])
	if err != nil {
		return err
	}
	wg := p.workgroupSize
	var eg errgroup.Group
	eg.SetLimit(d.parallelism)
	for gz := uint32(0); gz < call.Z; gz++ {
		for gy := 0; gy < int(call.Y); gy++ {
			for gx := 0; gx < int(call.X); gx++ {
				x0, y0 := gx*wg, gy*wg
				eg.Go(func() error {
					life.StepRegion(d.grid, in, out, x0, y0, x0+wg, y0+wg)
					return nil
				})
			}
		}
	}
	return eg.Wait()
}

// BeginRenderPass binds the target view and applies the load op.
func (d *Device) BeginRenderPass(desc gpu.RenderPassDescriptor) error {
	img, err := d.surface.Target(desc.View)
	if err != nil {
		return err
	}
	d.target = img
	if desc.LoadOp == gpu.LoadOpClear {
		render.Clear(img, desc.ClearValue.RGBA())
	}
	return nil
}

// Draw rasterizes one instanced cell draw from the buffer bound at binding 1.
func (d *Device) Draw(call gpu.DrawCall) error {
	if d.target == nil {
		return fmt.Errorf("%w: draw outside a render pass", gpu.ErrInvalidCommand)
	}
	if _, err := d.renders.Lookup("render pipeline", uint64(call.Pipeline)); err != nil {
		return err
	}
	verts, err := d.buffers.Lookup("buffer", uint64(call.VertexBuffers[0]))
	if err != nil {
		return err
	}
	state, _, err := d.resolve(call.BindGroups[0])
	if err != nil {
		return err
	}
	n := int(call.VertexCount) * 2
	if n > len(verts.floats) {
		return fmt.Errorf("cpu: draw of %d vertices from a %d-vertex buffer", call.VertexCount, len(verts.floats)/2)
	}
	return render.DrawCells(d.target, d.grid, state, verts.floats[:n], call.InstanceCount)
}

// EndRenderPass presents the target.
func (d *Device) EndRenderPass() error {
	d.target = nil
	d.surface.Present()
	return nil
}
