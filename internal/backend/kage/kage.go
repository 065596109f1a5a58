//go:build ebiten

// Package kage runs the simulation on ebiten: cell buffers are images, the
// compute pipeline is a Kage shader drawn from one image into the other and
// the render pipeline is a Kage shader drawn over the window canvas.
package kage

import (
	"context"
	"fmt"
	"image"

	"gpulife/internal/app"
	"gpulife/internal/backend"
	"gpulife/internal/config"
	"gpulife/internal/core"
	"gpulife/internal/gpu"
	"gpulife/internal/shaders"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"
)

// Name is the registry key of this backend.
const Name = "kage"

const canvasView gpu.TextureViewID = 1

type buffer struct {
	label  string
	img    *ebiten.Image
	floats []float32
}

type bindGroup struct {
	uniform gpu.BufferID
	in      gpu.BufferID
	out     gpu.BufferID
}

type computePipeline struct {
	shader        *ebiten.Shader
	workgroupSize int
}

type renderPipeline struct {
	shader *ebiten.Shader
}

// Backend owns the ebiten resources and the game host.
type Backend struct {
	cfg  config.Config
	log  *zap.Logger
	grid core.Grid

	buffers  gpu.Table[*buffer]
	groups   gpu.Table[bindGroup]
	computes gpu.Table[computePipeline]
	renders  gpu.Table[renderPipeline]
	res      gpu.Resources

	canvas  *ebiten.Image
	target  *ebiten.Image
	pending []byte
	ctl     backend.Controller
}

// New compiles both shaders and allocates the ping-pong images.
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

	lifeShader, err := ebiten.NewShader(shaders.LifeKage())
	if err != nil {
		return nil, fmt.Errorf("kage: compile life shader: %w", err)
	}
	cellShader, err := ebiten.NewShader(shaders.CellKage())
	if err != nil {
		return nil, fmt.Errorf("kage: compile cell shader: %w", err)
	}

	b := &Backend{cfg: cfg, log: log, grid: g}
	size := g.Size()
	b.canvas = ebiten.NewImage(size*cfg.Scale, size*cfg.Scale)
	b.pending = encodeCells(seed)

	uniform := gpu.BufferID(b.buffers.Add(&buffer{label: "Grid Uniforms", floats: []float32{float32(size), float32(size)}}))
	bufA := gpu.BufferID(b.buffers.Add(&buffer{label: "Cell State A", img: ebiten.NewImage(size, size)}))
	bufB := gpu.BufferID(b.buffers.Add(&buffer{label: "Cell State B", img: ebiten.NewImage(size, size)}))
	verts := gpu.BufferID(b.buffers.Add(&buffer{label: "Cell vertices", floats: append([]float32(nil), gpu.CellQuad...)}))

	b.res = gpu.Resources{
		ComputePipeline: gpu.ComputePipelineID(b.computes.Add(computePipeline{shader: lifeShader, workgroupSize: cfg.WorkgroupSize})),
		RenderPipeline:  gpu.RenderPipelineID(b.renders.Add(renderPipeline{shader: cellShader})),
		BindGroups: core.PingPong[gpu.BindGroupID]{
			gpu.BindGroupID(b.groups.Add(bindGroup{uniform: uniform, in: bufA, out: bufB})),
			gpu.BindGroupID(b.groups.Add(bindGroup{uniform: uniform, in: bufB, out: bufA})),
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
		zap.Int("grid", size),
		zap.Int("workgroup", cfg.WorkgroupSize),
		zap.Int("population", seed.Population()))
	return b, nil
}

// encodeCells packs 0/1 cells as opaque black/white RGBA pixels.
func encodeCells(cells core.CellBuffer) []byte {
	pix := make([]byte, len(cells)*4)
	for i, c := range cells {
		v := byte(0)
		if c != 0 {
			v = 0xff
		}
		pix[i*4+0], pix[i*4+1], pix[i*4+2], pix[i*4+3] = v, v, v, 0xff
	}
	return pix
}

func (b *Backend) Name() string             { return Name }
func (b *Backend) Device() gpu.Device       { return b }
func (b *Backend) Surface() gpu.Surface     { return b }
func (b *Backend) Resources() gpu.Resources { return b.res }
func (b *Backend) Queue() gpu.Queue         { return b }

// Attach wires the pause/step controls and the HUD.
func (b *Backend) Attach(ctl backend.Controller) { b.ctl = ctl }

// CurrentView returns the window canvas.
func (b *Backend) CurrentView() (gpu.TextureViewID, error) { return canvasView, nil }

// Submit replays each buffer against the ebiten images. The seed is
// uploaded on the first submission, once the game loop is running.
func (b *Backend) Submit(buffers ...*gpu.CommandBuffer) error {
	if b.pending != nil {
		a, err := b.stateImage(b.res.BindGroups[0])
		if err != nil {
			return err
		}
		a.WritePixels(b.pending)
		b.pending = nil
	}
	for _, cb := range buffers {
		if err := gpu.Replay(cb, b); err != nil {
			return fmt.Errorf("kage: %s: %w", cb.Label, err)
		}
	}
	return nil
}

func (b *Backend) stateImage(id gpu.BindGroupID) (*ebiten.Image, error) {
	in, _, err := b.resolve(id)
	return in, err
}

func (b *Backend) resolve(id gpu.BindGroupID) (in, out *ebiten.Image, err error) {
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
	if inBuf.img == nil || outBuf.img == nil || inBuf.img == outBuf.img {
		return nil, nil, fmt.Errorf("kage: bind group %d needs two distinct state images", id)
	}
	return inBuf.img, outBuf.img, nil
}

// Dispatch draws the life shader over the covered region of the output
// image. Workgroups are a compute notion; here they only bound the region.
func (b *Backend) Dispatch(call gpu.ComputeCall) error {
	p, err := b.computes.Lookup("compute pipeline", uint64(call.Pipeline))
	if err != nil {
		return err
	}
	in, out, err := b.resolve(call.BindGroups[0])
	if err != nil {
		return err
	}
	size := b.grid.Size()
	w := min(int(call.X)*p.workgroupSize, size)
	h := min(int(call.Y)*p.workgroupSize, size)
	if call.Z == 0 || w <= 0 || h <= 0 {
		return nil
	}
	src := in
	if w != size || h != size {
		src = in.SubImage(image.Rect(0, 0, w, h)).(*ebiten.Image)
	}
	op := &ebiten.DrawRectShaderOptions{}
	op.Images[0] = src
	op.Uniforms = map[string]any{"Grid": float32(size)}
	op.Blend = ebiten.BlendCopy
	out.DrawRectShader(w, h, p.shader, op)
	return nil
}

// BeginRenderPass selects the canvas and applies the load op.
func (b *Backend) BeginRenderPass(desc gpu.RenderPassDescriptor) error {
	if desc.View != canvasView {
		return fmt.Errorf("%w: texture view %d", gpu.ErrUnknownResource, desc.View)
	}
	b.target = b.canvas
	if desc.LoadOp == gpu.LoadOpClear {
		b.target.Fill(desc.ClearValue.RGBA())
	}
	return nil
}

// Draw covers the target with one quad whose source coordinates span the
// state image bottom-up. The cell shader works out each pixel's cell.
func (b *Backend) Draw(call gpu.DrawCall) error {
	if b.target == nil {
		return fmt.Errorf("%w: draw outside a render pass", gpu.ErrInvalidCommand)
	}
	p, err := b.renders.Lookup("render pipeline", uint64(call.Pipeline))
	if err != nil {
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
	if int(call.InstanceCount) != b.grid.Cells() {
		return fmt.Errorf("kage: instance count %d does not cover the %d-cell grid", call.InstanceCount, b.grid.Cells())
	}

	tb := b.target.Bounds()
	w, h := float32(tb.Dx()), float32(tb.Dy())
	s := float32(b.grid.Size())
	vs := []ebiten.Vertex{
		{DstX: 0, DstY: 0, SrcX: 0, SrcY: s, ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1},
		{DstX: w, DstY: 0, SrcX: s, SrcY: s, ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1},
		{DstX: 0, DstY: h, SrcX: 0, SrcY: 0, ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1},
		{DstX: w, DstY: h, SrcX: s, SrcY: 0, ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1},
	}
	is := []uint16{0, 1, 2, 1, 2, 3}
	op := &ebiten.DrawTrianglesShaderOptions{}
	op.Images[0] = state
	op.Uniforms = map[string]any{
		"Grid":  float32(b.grid.Size()),
		"Inset": gpu.QuadExtent(verts.floats[:min(len(verts.floats), int(call.VertexCount)*2)]),
	}
	b.target.DrawTrianglesShader(vs, is, p.shader, op)
	return nil
}

// EndRenderPass releases the target; ebiten presents the canvas in Draw.
func (b *Backend) EndRenderPass() error {
	b.target = nil
	return nil
}

// Run opens the window and drives frames from ebiten's draw loop.
func (b *Backend) Run(ctx context.Context, frame backend.FrameFunc) error {
	ebiten.SetTPS(b.cfg.FPS)
	game := app.New(ctx, b.canvas, b.grid, frame, b.ctl, b.cfg.Overlay)
	return app.Run(game, fmt.Sprintf("gpulife %dx%d", b.grid.Size(), b.grid.Size()))
}

// Close disposes of the GPU images.
func (b *Backend) Close() error {
	b.buffers.Each(func(_ uint64, buf *buffer) {
		if buf.img != nil {
			buf.img.Dispose()
		}
	})
	b.canvas.Dispose()
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
