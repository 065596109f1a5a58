//go:build opencl

// Package opencl runs the compute pass as an OpenCL kernel. The render pass
// reads the state buffer back and rasterizes on the host.
package opencl

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"unsafe"

	"gpulife/internal/backend"
	"gpulife/internal/backend/cpu"
	"gpulife/internal/config"
	"gpulife/internal/core"
	"gpulife/internal/gpu"
	"gpulife/internal/render"
	"gpulife/internal/shaders"

	"github.com/jgillich/go-opencl/cl"
	"go.uber.org/zap"
)

// Name is the registry key of this backend.
const Name = "opencl"

type buffer struct {
	label  string
	mem    *cl.MemObject
	floats []float32
}

type bindGroup struct {
	uniform gpu.BufferID
	in      gpu.BufferID
	out     gpu.BufferID
}

type computePipeline struct {
	kernel        *cl.Kernel
	workgroupSize int
}

type renderPipeline struct{}

// Backend owns the OpenCL context and a host surface for the render pass.
type Backend struct {
	log     *zap.Logger
	grid    core.Grid
	host    backend.Ticker
	surface *cpu.Surface

	device  *cl.Device
	context *cl.Context
	queue   *cl.CommandQueue
	program *cl.Program

	buffers  gpu.Table[*buffer]
	groups   gpu.Table[bindGroup]
	computes gpu.Table[computePipeline]
	renders  gpu.Table[renderPipeline]
	res      gpu.Resources

	scratch core.CellBuffer
	target  *image.RGBA
}

// New picks the first GPU device, falling back to a CPU device, and builds
// the kernel and both state buffers.
func New(cfg config.Config, log *zap.Logger) (b *Backend, err error) {
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

	device, err := pickDevice()
	if err != nil {
		return nil, err
	}
	b = &Backend{
		log:     log,
		grid:    g,
		host:    backend.Ticker{Interval: cfg.FrameInterval(), Frames: cfg.Frames},
		surface: cpu.NewSurface(g.Size()*cfg.Scale, g.Size()*cfg.Scale),
		device:  device,
		scratch: core.NewCellBuffer(g),
	}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	b.context, err = cl.CreateContext([]*cl.Device{device})
	if err != nil {
		return nil, fmt.Errorf("%w: opencl context: %v", gpu.ErrContextUnavailable, err)
	}
	b.queue, err = b.context.CreateCommandQueue(device, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: opencl command queue: %v", gpu.ErrContextUnavailable, err)
	}
	b.program, err = b.context.CreateProgramWithSource([]string{shaders.LifeCL()})
	if err != nil {
		return nil, fmt.Errorf("opencl: create program: %w", err)
	}
	if err := b.program.BuildProgram([]*cl.Device{device}, ""); err != nil {
		var buildErr cl.BuildError
		if errors.As(err, &buildErr) {
			return nil, fmt.Errorf("opencl: build program: %s", string(buildErr))
		}
		return nil, fmt.Errorf("opencl: build program: %w", err)
	}
	kernel, err := b.program.CreateKernel(shaders.KernelName)
	if err != nil {
		return nil, fmt.Errorf("opencl: create kernel: %w", err)
	}
	compute := gpu.ComputePipelineID(b.computes.Add(computePipeline{kernel: kernel, workgroupSize: cfg.WorkgroupSize}))

	size := float32(g.Size())
	uniform := gpu.BufferID(b.buffers.Add(&buffer{label: "Grid Uniforms", floats: []float32{size, size}}))
	stateA, err := b.newState("Cell State A", seed)
	if err != nil {
		return nil, err
	}
	stateB, err := b.newState("Cell State B", core.NewCellBuffer(g))
	if err != nil {
		return nil, err
	}
	verts := gpu.BufferID(b.buffers.Add(&buffer{label: "Cell vertices", floats: append([]float32(nil), gpu.CellQuad...)}))

	b.res = gpu.Resources{
		ComputePipeline: compute,
		RenderPipeline:  gpu.RenderPipelineID(b.renders.Add(renderPipeline{})),
		BindGroups: core.PingPong[gpu.BindGroupID]{
			gpu.BindGroupID(b.groups.Add(bindGroup{uniform: uniform, in: stateA, out: stateB})),
			gpu.BindGroupID(b.groups.Add(bindGroup{uniform: uniform, in: stateB, out: stateA})),
		},
		VertexBuffer:  verts,
		VertexCount:   gpu.CellQuadVertexCount,
		Grid:          g,
		WorkgroupSize: cfg.WorkgroupSize,
	}
	if err := b.res.Validate(); err != nil {
		return nil, err
	}
	log.Info("device ready",
		zap.String("device", device.Name()),
		zap.Int("grid", g.Size()),
		zap.Int("workgroup", cfg.WorkgroupSize),
		zap.Int("population", seed.Population()))
	return b, nil
}

func pickDevice() (*cl.Device, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "querying OpenCL platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms"
		}
		return nil, fmt.Errorf("%w: %s: %v", gpu.ErrAdapterUnavailable, msg, err)
	}
	for _, typ := range []cl.DeviceType{cl.DeviceTypeGPU, cl.DeviceTypeCPU} {
		for _, p := range platforms {
			devices, err := p.GetDevices(typ)
			if err != nil && err != cl.ErrDeviceNotFound {
				continue
			}
			if len(devices) > 0 {
				return devices[0], nil
			}
		}
	}
	return nil, fmt.Errorf("%w: no OpenCL GPU or CPU device", gpu.ErrAdapterUnavailable)
}

func (b *Backend) newState(label string, cells core.CellBuffer) (gpu.BufferID, error) {
	byteSize := len(cells) * int(unsafe.Sizeof(uint32(0)))
	mem, err := b.context.CreateEmptyBuffer(cl.MemReadWrite, byteSize)
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("opencl: create %s: %w", label, err)
	}
	if _, err := b.queue.EnqueueWriteBuffer(mem, true, 0, byteSize, unsafe.Pointer(&cells[0]), nil); err != nil {
		mem.Release()
		return gpu.InvalidID, fmt.Errorf("opencl: write %s: %w", label, err)
	}
	return gpu.BufferID(b.buffers.Add(&buffer{label: label, mem: mem})), nil
}

func (b *Backend) Name() string             { return Name }
func (b *Backend) Device() gpu.Device       { return b }
func (b *Backend) Surface() gpu.Surface     { return b.surface }
func (b *Backend) Resources() gpu.Resources { return b.res }
func (b *Backend) Queue() gpu.Queue         { return b }

// Submit replays each buffer; kernels are enqueued in order on one queue.
func (b *Backend) Submit(buffers ...*gpu.CommandBuffer) error {
	for _, cb := range buffers {
		if err := gpu.Replay(cb, b); err != nil {
			return fmt.Errorf("opencl: %s: %w", cb.Label, err)
		}
	}
	return nil
}

func (b *Backend) resolve(id gpu.BindGroupID) (in, out *cl.MemObject, err error) {
	bg, err := b.groups.Lookup("bind group", uint64(id))
	if err != nil {
		return nil, nil, err
	}
	inBuf, err := b.buffers.Lookup("buffer", uint64(bg.in))
	if err != nil {
		return nil, nil, err
	}
	outBuf, err := b.buffers.Lookup("buffer", uint64(bg.out))
	if err != nil {
		return nil, nil, err
	}
	if inBuf.mem == nil || outBuf.mem == nil || inBuf.mem == outBuf.mem {
		return nil, nil, fmt.Errorf("opencl: bind group %d needs two distinct state buffers", id)
	}
	return inBuf.mem, outBuf.mem, nil
}

// Dispatch enqueues the kernel over X*wg by Y*wg work items in wg x wg
// local groups. The kernel discards items past the grid edge.
func (b *Backend) Dispatch(call gpu.ComputeCall) error {
	p, err := b.computes.Lookup("compute pipeline", uint64(call.Pipeline))
	if err != nil {
		return err
	}
	in, out, err := b.resolve(call.BindGroups[0])
	if err != nil {
		return err
	}
	if err := p.kernel.SetArgs(int32(b.grid.Size()), in, out); err != nil {
		return fmt.Errorf("opencl: kernel args: %w", err)
	}
	wg := p.workgroupSize
	global := []int{int(call.X) * wg, int(call.Y) * wg}
	local := []int{wg, wg}
	for z := uint32(0); z < call.Z; z++ {
		if _, err := b.queue.EnqueueNDRangeKernel(p.kernel, nil, global, local, nil); err != nil {
			return fmt.Errorf("opencl: enqueue kernel: %w", err)
		}
	}
	return nil
}

// BeginRenderPass binds the host surface and applies the load op.
func (b *Backend) BeginRenderPass(desc gpu.RenderPassDescriptor) error {
	img, err := b.surface.Target(desc.View)
	if err != nil {
		return err
	}
	b.target = img
	if desc.LoadOp == gpu.LoadOpClear {
		render.Clear(img, desc.ClearValue.RGBA())
	}
	return nil
}

// Draw reads the bound state buffer back and rasterizes the instances.
func (b *Backend) Draw(call gpu.DrawCall) error {
	if b.target == nil {
		return fmt.Errorf("%w: draw outside a render pass", gpu.ErrInvalidCommand)
	}
	if _, err := b.renders.Lookup("render pipeline", uint64(call.Pipeline)); err != nil {
		return err
	}
	verts, err := b.buffers.Lookup("buffer", uint64(call.VertexBuffers[0]))
	if err != nil {
		return err
	}
	state, _, err := b.resolve(call.BindGroups[0])
	if err != nil {
		return err
	}
	byteSize := len(b.scratch) * int(unsafe.Sizeof(uint32(0)))
	if _, err := b.queue.EnqueueReadBuffer(state, true, 0, byteSize, unsafe.Pointer(&b.scratch[0]), nil); err != nil {
		return fmt.Errorf("opencl: read state: %w", err)
	}
	n := int(call.VertexCount) * 2
	if n > len(verts.floats) {
		return fmt.Errorf("opencl: draw of %d vertices from a %d-vertex buffer", call.VertexCount, len(verts.floats)/2)
	}
	return render.DrawCells(b.target, b.grid, b.scratch, verts.floats[:n], call.InstanceCount)
}

// EndRenderPass presents the surface.
func (b *Backend) EndRenderPass() error {
	b.target = nil
	b.surface.Present()
	return nil
}

// Run ticks frames at the configured rate.
func (b *Backend) Run(ctx context.Context, frame backend.FrameFunc) error {
	return b.host.Run(ctx, frame)
}

// Snapshot returns the last presented frame.
func (b *Backend) Snapshot() (image.Image, error) { return b.surface.Snapshot() }

// Close releases kernels, buffers, program, queue and context.
func (b *Backend) Close() error {
	b.computes.Each(func(_ uint64, p computePipeline) { p.kernel.Release() })
	b.buffers.Each(func(_ uint64, buf *buffer) {
		if buf.mem != nil {
			buf.mem.Release()
		}
	})
	if b.program != nil {
		b.program.Release()
		b.program = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.context != nil {
		b.context.Release()
		b.context = nil
	}
	return nil
}

func init() {
	backend.Register(Name, func(cfg config.Config, log *zap.Logger) (backend.Backend, error) {
		b, err := New(cfg, log)
		if err != nil {
			return nil, err
		}
		return b, nil
	})
}
