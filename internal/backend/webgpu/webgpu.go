//go:build webgpu

// Package webgpu runs the simulation on a native WebGPU device behind a GLFW
// window. Recorded command buffers are re-encoded into wgpu command encoders
// at submit time.
package webgpu

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"gpulife/internal/backend"
	"gpulife/internal/config"
	"gpulife/internal/core"
	"gpulife/internal/gpu"
	"gpulife/internal/shaders"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"
)

// Name is the registry key of this backend.
const Name = "webgpu"

const surfaceView gpu.TextureViewID = 1

var errWindowClosed = errors.New("webgpu: window closed")

func init() {
	// GLFW must be driven from the main thread.
	runtime.LockOSThread()

	backend.Register(Name, func(cfg config.Config, log *zap.Logger) (backend.Backend, error) {
		b, err := New(cfg, log)
		if err != nil {
			return nil, err
		}
		return b, nil
	})
}

// Backend owns the window, the wgpu device and every resource the frame
// orchestration references by ID.
type Backend struct {
	log    *zap.Logger
	grid   core.Grid
	window *glfw.Window
	host   backend.Ticker

	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	format   wgpu.TextureFormat
	config   *wgpu.SurfaceConfiguration

	layout   *wgpu.BindGroupLayout
	pipeLay  *wgpu.PipelineLayout
	buffers  gpu.Table[*wgpu.Buffer]
	groups   gpu.Table[*wgpu.BindGroup]
	computes gpu.Table[*wgpu.ComputePipeline]
	renders  gpu.Table[*wgpu.RenderPipeline]
	res      gpu.Resources

	// per-frame state, valid between CurrentView and the end of Submit
	texture *wgpu.Texture
	view    *wgpu.TextureView
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
}

// New opens a window, requests a low-power adapter and builds the buffers,
// bind groups and pipelines.
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

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("%w: glfw: %v", gpu.ErrContextUnavailable, err)
	}
	b = &Backend{
		log:  log,
		grid: g,
		host: backend.Ticker{Interval: cfg.FrameInterval(), Frames: cfg.Frames},
	}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	side := g.Size() * cfg.Scale
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	b.window, err = glfw.CreateWindow(side, side, fmt.Sprintf("gpulife %dx%d", g.Size(), g.Size()), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create window: %v", gpu.ErrContextUnavailable, err)
	}

	b.instance = wgpu.CreateInstance(nil)
	b.surface = b.instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(b.window))
	if b.surface == nil {
		return nil, fmt.Errorf("%w: no surface for window", gpu.ErrContextUnavailable)
	}
	b.adapter, err = b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: b.surface,
		PowerPreference:   wgpu.PowerPreferenceLowPower,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gpu.ErrAdapterUnavailable, err)
	}
	b.device, err = b.adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "gpulife device"})
	if err != nil {
		return nil, fmt.Errorf("%w: request device: %v", gpu.ErrAdapterUnavailable, err)
	}
	b.queue = b.device.GetQueue()

	caps := b.surface.GetCapabilities(b.adapter)
	if len(caps.Formats) == 0 {
		return nil, fmt.Errorf("%w: surface reports no formats", gpu.ErrContextUnavailable)
	}
	b.format = caps.Formats[0]
	w, h := b.window.GetFramebufferSize()
	b.config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.format,
		Width:       uint32(w),
		Height:      uint32(h),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	b.surface.Configure(b.adapter, b.device, b.config)
	b.window.SetFramebufferSizeCallback(func(_ *glfw.Window, w, h int) {
		if w <= 0 || h <= 0 {
			return
		}
		b.config.Width, b.config.Height = uint32(w), uint32(h)
		b.surface.Configure(b.adapter, b.device, b.config)
	})

	if err := b.setup(seed, cfg.WorkgroupSize); err != nil {
		return nil, err
	}
	log.Info("device ready",
		zap.Int("grid", g.Size()),
		zap.Int("workgroup", cfg.WorkgroupSize),
		zap.Int("population", seed.Population()),
		zap.Any("format", b.format))
	return b, nil
}

func (b *Backend) setup(seed core.CellBuffer, workgroupSize int) error {
	size := b.grid.Size()

	uniform, err := b.newBuffer("Grid Uniforms", wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst,
		float32Bytes([]float32{float32(size), float32(size)}))
	if err != nil {
		return err
	}
	stateA, err := b.newBuffer("Cell State A", wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst, uint32Bytes(seed))
	if err != nil {
		return err
	}
	stateB, err := b.newBuffer("Cell State B", wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst, uint32Bytes(make([]uint32, len(seed))))
	if err != nil {
		return err
	}
	verts, err := b.newBuffer("Cell vertices", wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst, float32Bytes(gpu.CellQuad))
	if err != nil {
		return err
	}

	b.layout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Cell Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageCompute | wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageCompute | wgpu.ShaderStageVertex,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("webgpu: bind group layout: %w", err)
	}

	groupA, err := b.newBindGroup("Cell renderer bind group A", uniform, stateA, stateB)
	if err != nil {
		return err
	}
	groupB, err := b.newBindGroup("Cell renderer bind group B", uniform, stateB, stateA)
	if err != nil {
		return err
	}

	b.pipeLay, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Cell Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.layout},
	})
	if err != nil {
		return fmt.Errorf("webgpu: pipeline layout: %w", err)
	}

	compute, err := b.newComputePipeline(workgroupSize)
	if err != nil {
		return err
	}
	render, err := b.newRenderPipeline()
	if err != nil {
		return err
	}

	b.res = gpu.Resources{
		ComputePipeline: compute,
		RenderPipeline:  render,
		BindGroups:      core.PingPong[gpu.BindGroupID]{groupA, groupB},
		VertexBuffer:    verts,
		VertexCount:     gpu.CellQuadVertexCount,
		Grid:            b.grid,
		WorkgroupSize:   workgroupSize,
	}
	return b.res.Validate()
}

func (b *Backend) newBuffer(label string, usage wgpu.BufferUsage, data []byte) (gpu.BufferID, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("webgpu: create %s: %w", label, err)
	}
	if err := b.queue.WriteBuffer(buf, 0, data); err != nil {
		buf.Release()
		return gpu.InvalidID, fmt.Errorf("webgpu: write %s: %w", label, err)
	}
	return gpu.BufferID(b.buffers.Add(buf)), nil
}

func (b *Backend) newBindGroup(label string, uniform, in, out gpu.BufferID) (gpu.BindGroupID, error) {
	entries := make([]wgpu.BindGroupEntry, 0, 3)
	for i, id := range []gpu.BufferID{uniform, in, out} {
		buf, err := b.buffers.Lookup("buffer", uint64(id))
		if err != nil {
			return gpu.InvalidID, err
		}
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: uint32(i),
			Buffer:  buf,
			Size:    wgpu.WholeSize,
		})
	}
	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  b.layout,
		Entries: entries,
	})
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("webgpu: %s: %w", label, err)
	}
	return gpu.BindGroupID(b.groups.Add(bg)), nil
}

func (b *Backend) newComputePipeline(workgroupSize int) (gpu.ComputePipelineID, error) {
	src, err := shaders.SimulationWGSL(workgroupSize)
	if err != nil {
		return gpu.InvalidID, err
	}
	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Game of Life simulation shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: src},
	})
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("webgpu: simulation shader: %w", err)
	}
	defer module.Release()

	p, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  "Simulation pipeline",
		Layout: b.pipeLay,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: shaders.ComputeEntry,
		},
	})
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("webgpu: simulation pipeline: %w", err)
	}
	return gpu.ComputePipelineID(b.computes.Add(p)), nil
}

func (b *Backend) newRenderPipeline() (gpu.RenderPipelineID, error) {
	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Cell shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.CellWGSL()},
	})
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("webgpu: cell shader: %w", err)
	}
	defer module.Release()

	p, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Cell pipeline",
		Layout: b.pipeLay,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: shaders.VertexEntry,
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: gpu.CellQuadStride,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{{
					Format:         wgpu.VertexFormatFloat32x2,
					Offset:         0,
					ShaderLocation: 0,
				}},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: shaders.FragmentEntry,
			Targets: []wgpu.ColorTargetState{{
				Format:    b.format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("webgpu: cell pipeline: %w", err)
	}
	return gpu.RenderPipelineID(b.renders.Add(p)), nil
}

func (b *Backend) Name() string             { return Name }
func (b *Backend) Device() gpu.Device       { return b }
func (b *Backend) Surface() gpu.Surface     { return b }
func (b *Backend) Resources() gpu.Resources { return b.res }
func (b *Backend) Queue() gpu.Queue         { return b }

// CurrentView acquires the swapchain texture for this frame.
func (b *Backend) CurrentView() (gpu.TextureViewID, error) {
	if b.view != nil {
		return surfaceView, nil
	}
	tex, err := b.surface.GetCurrentTexture()
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("%w: %v", gpu.ErrContextUnavailable, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return gpu.InvalidID, fmt.Errorf("webgpu: surface view: %w", err)
	}
	b.texture, b.view = tex, view
	return surfaceView, nil
}

// Submit re-encodes each buffer into one wgpu command buffer, submits them
// together and presents the acquired surface texture.
func (b *Backend) Submit(buffers ...*gpu.CommandBuffer) error {
	defer b.releaseFrame()

	native := make([]*wgpu.CommandBuffer, 0, len(buffers))
	defer func() {
		for _, cb := range native {
			cb.Release()
		}
	}()
	for _, cb := range buffers {
		enc, err := b.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: cb.Label})
		if err != nil {
			return fmt.Errorf("webgpu: command encoder: %w", err)
		}
		b.encoder = enc
		err = gpu.Replay(cb, b)
		if err == nil {
			var out *wgpu.CommandBuffer
			out, err = enc.Finish(nil)
			if err == nil {
				native = append(native, out)
			}
		}
		enc.Release()
		b.encoder, b.pass = nil, nil
		if err != nil {
			return fmt.Errorf("webgpu: %s: %w", cb.Label, err)
		}
	}
	b.queue.Submit(native...)
	if b.texture != nil {
		b.surface.Present()
	}
	return nil
}

func (b *Backend) releaseFrame() {
	if b.view != nil {
		b.view.Release()
		b.view = nil
	}
	if b.texture != nil {
		b.texture.Release()
		b.texture = nil
	}
}

// Dispatch records one compute pass on the active encoder.
func (b *Backend) Dispatch(call gpu.ComputeCall) error {
	p, err := b.computes.Lookup("compute pipeline", uint64(call.Pipeline))
	if err != nil {
		return err
	}
	pass := b.encoder.BeginComputePass(nil)
	pass.SetPipeline(p)
	if err := b.bindGroups(call.BindGroups, pass.SetBindGroup); err != nil {
		pass.End()
		pass.Release()
		return err
	}
	pass.DispatchWorkgroups(call.X, call.Y, call.Z)
	pass.End()
	pass.Release()
	return nil
}

func (b *Backend) bindGroups(ids [gpu.MaxBindGroups]gpu.BindGroupID, set func(uint32, *wgpu.BindGroup, []uint32)) error {
	for slot, id := range ids {
		if id == gpu.InvalidID {
			continue
		}
		bg, err := b.groups.Lookup("bind group", uint64(id))
		if err != nil {
			return err
		}
		set(uint32(slot), bg, nil)
	}
	return nil
}

// BeginRenderPass opens a pass on the acquired surface view.
func (b *Backend) BeginRenderPass(desc gpu.RenderPassDescriptor) error {
	if desc.View != surfaceView || b.view == nil {
		return fmt.Errorf("%w: texture view %d", gpu.ErrUnknownResource, desc.View)
	}
	load := wgpu.LoadOpClear
	if desc.LoadOp == gpu.LoadOpLoad {
		load = wgpu.LoadOpLoad
	}
	b.pass = b.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Cell render pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    b.view,
			LoadOp:  load,
			StoreOp: wgpu.StoreOpStore,
			ClearValue: wgpu.Color{
				R: desc.ClearValue.R,
				G: desc.ClearValue.G,
				B: desc.ClearValue.B,
				A: desc.ClearValue.A,
			},
		}},
	})
	return nil
}

// Draw records one instanced draw into the open render pass.
func (b *Backend) Draw(call gpu.DrawCall) error {
	if b.pass == nil {
		return fmt.Errorf("%w: draw outside a render pass", gpu.ErrInvalidCommand)
	}
	p, err := b.renders.Lookup("render pipeline", uint64(call.Pipeline))
	if err != nil {
		return err
	}
	b.pass.SetPipeline(p)
	for slot, id := range call.VertexBuffers {
		if id == gpu.InvalidID {
			continue
		}
		buf, err := b.buffers.Lookup("buffer", uint64(id))
		if err != nil {
			return err
		}
		b.pass.SetVertexBuffer(uint32(slot), buf, 0, wgpu.WholeSize)
	}
	if err := b.bindGroups(call.BindGroups, b.pass.SetBindGroup); err != nil {
		return err
	}
	b.pass.Draw(call.VertexCount, call.InstanceCount, 0, 0)
	return nil
}

// EndRenderPass closes the open render pass.
func (b *Backend) EndRenderPass() error {
	if b.pass == nil {
		return fmt.Errorf("%w: end without a render pass", gpu.ErrInvalidCommand)
	}
	b.pass.End()
	b.pass.Release()
	b.pass = nil
	return nil
}

// Run ticks frames on the calling thread, polling window events between
// frames. Closing the window ends the run cleanly.
func (b *Backend) Run(ctx context.Context, frame backend.FrameFunc) error {
	err := b.host.Run(ctx, func(now time.Time) error {
		glfw.PollEvents()
		if b.window.ShouldClose() {
			return errWindowClosed
		}
		return frame(now)
	})
	if errors.Is(err, errWindowClosed) {
		b.log.Info("window closed")
		return nil
	}
	return err
}

// Close releases every wgpu object and the window.
func (b *Backend) Close() error {
	b.releaseFrame()
	b.renders.Each(func(_ uint64, p *wgpu.RenderPipeline) { p.Release() })
	b.computes.Each(func(_ uint64, p *wgpu.ComputePipeline) { p.Release() })
	b.groups.Each(func(_ uint64, g *wgpu.BindGroup) { g.Release() })
	b.buffers.Each(func(_ uint64, buf *wgpu.Buffer) { buf.Release() })
	if b.pipeLay != nil {
		b.pipeLay.Release()
	}
	if b.layout != nil {
		b.layout.Release()
	}
	if b.queue != nil {
		b.queue.Release()
	}
	if b.device != nil {
		b.device.Release()
	}
	if b.adapter != nil {
		b.adapter.Release()
	}
	if b.surface != nil {
		b.surface.Release()
	}
	if b.instance != nil {
		b.instance.Release()
	}
	if b.window != nil {
		b.window.Destroy()
	}
	glfw.Terminate()
	return nil
}

func float32Bytes(vs []float32) []byte {
	out := make([]byte, 0, len(vs)*4)
	for _, v := range vs {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

func uint32Bytes(vs []uint32) []byte {
	out := make([]byte, 0, len(vs)*4)
	for _, v := range vs {
		out = binary.LittleEndian.AppendUint32(out, v)
	}
	return out
}
