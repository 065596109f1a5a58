package gpu

import "fmt"

// CommandType identifies a recorded pass command.
type CommandType uint8

const (
	CmdBeginComputePass CommandType = iota
	CmdSetComputePipeline
	CmdDispatch
	CmdEndComputePass
	CmdBeginRenderPass
	CmdSetRenderPipeline
	CmdSetVertexBuffer
	CmdDraw
	CmdEndRenderPass
	CmdSetBindGroup
)

var commandNames = [...]string{
	CmdBeginComputePass:   "BeginComputePass",
	CmdSetComputePipeline: "SetComputePipeline",
	CmdDispatch:           "DispatchWorkgroups",
	CmdEndComputePass:     "EndComputePass",
	CmdBeginRenderPass:    "BeginRenderPass",
	CmdSetRenderPipeline:  "SetRenderPipeline",
	CmdSetVertexBuffer:    "SetVertexBuffer",
	CmdDraw:               "Draw",
	CmdEndRenderPass:      "EndRenderPass",
	CmdSetBindGroup:       "SetBindGroup",
}

func (t CommandType) String() string {
	if int(t) < len(commandNames) {
		return commandNames[t]
	}
	return fmt.Sprintf("CommandType(%d)", t)
}

// Command is one recorded operation. Only the fields relevant to Type are set.
type Command struct {
	Type CommandType

	ComputePipeline ComputePipelineID
	RenderPipeline  RenderPipelineID
	BindGroup       BindGroupID
	Buffer          BufferID
	Slot            uint32

	X, Y, Z       uint32
	VertexCount   uint32
	InstanceCount uint32

	Pass RenderPassDescriptor
}

// CommandBuffer is a finished, immutable command list ready for submission.
type CommandBuffer struct {
	Label    string
	Commands []Command
}

// CommandEncoder records compute and render passes. Only one pass may be
// open at a time.
type CommandEncoder struct {
	label    string
	cmds     []Command
	open     bool
	finished bool
	err      error
}

// NewCommandEncoder starts an empty recording.
func NewCommandEncoder(label string) *CommandEncoder {
	return &CommandEncoder{label: label}
}

func (e *CommandEncoder) push(c Command) {
	if e.finished {
		e.fail(fmt.Errorf("%w: %s after Finish", ErrInvalidCommand, c.Type))
		return
	}
	e.cmds = append(e.cmds, c)
}

func (e *CommandEncoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *CommandEncoder) begin(t CommandType) {
	if e.open {
		e.fail(fmt.Errorf("%w: %s while a pass is open", ErrInvalidCommand, t))
	}
	e.open = true
}

func (e *CommandEncoder) end() { e.open = false }

// BeginComputePass opens a compute pass.
func (e *CommandEncoder) BeginComputePass() *ComputePassEncoder {
	e.begin(CmdBeginComputePass)
	e.push(Command{Type: CmdBeginComputePass})
	return &ComputePassEncoder{enc: e}
}

// BeginRenderPass opens a render pass targeting desc.View.
func (e *CommandEncoder) BeginRenderPass(desc RenderPassDescriptor) *RenderPassEncoder {
	e.begin(CmdBeginRenderPass)
	e.push(Command{Type: CmdBeginRenderPass, Pass: desc})
	return &RenderPassEncoder{enc: e}
}

// Finish closes the recording. Any misuse recorded along the way is
// reported here.
func (e *CommandEncoder) Finish() (*CommandBuffer, error) {
	if e.open {
		e.fail(fmt.Errorf("%w: Finish with an open pass", ErrInvalidCommand))
	}
	if e.finished {
		e.fail(fmt.Errorf("%w: Finish called twice", ErrInvalidCommand))
	}
	e.finished = true
	if e.err != nil {
		return nil, e.err
	}
	return &CommandBuffer{Label: e.label, Commands: e.cmds}, nil
}

// ComputePassEncoder records compute commands.
type ComputePassEncoder struct {
	enc   *CommandEncoder
	ended bool
}

// SetPipeline sets the active compute pipeline.
func (p *ComputePassEncoder) SetPipeline(id ComputePipelineID) {
	p.enc.push(Command{Type: CmdSetComputePipeline, ComputePipeline: id})
}

// SetBindGroup binds group at index.
func (p *ComputePassEncoder) SetBindGroup(index uint32, group BindGroupID) {
	p.enc.push(Command{Type: CmdSetBindGroup, Slot: index, BindGroup: group})
}

// DispatchWorkgroups launches x*y*z workgroups.
func (p *ComputePassEncoder) DispatchWorkgroups(x, y, z uint32) {
	p.enc.push(Command{Type: CmdDispatch, X: x, Y: y, Z: z})
}

// End closes the pass.
func (p *ComputePassEncoder) End() {
	if p.ended {
		return
	}
	p.ended = true
	p.enc.push(Command{Type: CmdEndComputePass})
	p.enc.end()
}

// RenderPassEncoder records draw commands.
type RenderPassEncoder struct {
	enc   *CommandEncoder
	ended bool
}

// SetPipeline sets the active render pipeline.
func (p *RenderPassEncoder) SetPipeline(id RenderPipelineID) {
	p.enc.push(Command{Type: CmdSetRenderPipeline, RenderPipeline: id})
}

// SetVertexBuffer binds buf to a vertex slot.
func (p *RenderPassEncoder) SetVertexBuffer(slot uint32, buf BufferID) {
	p.enc.push(Command{Type: CmdSetVertexBuffer, Slot: slot, Buffer: buf})
}

// SetBindGroup binds group at index.
func (p *RenderPassEncoder) SetBindGroup(index uint32, group BindGroupID) {
	p.enc.push(Command{Type: CmdSetBindGroup, Slot: index, BindGroup: group})
}

// Draw issues an instanced draw.
func (p *RenderPassEncoder) Draw(vertexCount, instanceCount uint32) {
	p.enc.push(Command{Type: CmdDraw, VertexCount: vertexCount, InstanceCount: instanceCount})
}

// End closes the pass.
func (p *RenderPassEncoder) End() {
	if p.ended {
		return
	}
	p.ended = true
	p.enc.push(Command{Type: CmdEndRenderPass})
	p.enc.end()
}
