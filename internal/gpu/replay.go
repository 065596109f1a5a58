package gpu

import "fmt"

// ComputeCall is the resolved state of one dispatch.
type ComputeCall struct {
	Pipeline   ComputePipelineID
	BindGroups [MaxBindGroups]BindGroupID
	X, Y, Z    uint32
}

// DrawCall is the resolved state of one draw.
type DrawCall struct {
	Pipeline      RenderPipelineID
	BindGroups    [MaxBindGroups]BindGroupID
	VertexBuffers [MaxVertexBuffers]BufferID
	VertexCount   uint32
	InstanceCount uint32
}

// Executor runs resolved pass work. Backends without a native command
// encoder implement it and call Replay from Queue.Submit.
type Executor interface {
	Dispatch(call ComputeCall) error
	BeginRenderPass(desc RenderPassDescriptor) error
	Draw(call DrawCall) error
	EndRenderPass() error
}

// Replay walks cb in order, tracking pass state, and forwards each dispatch
// and draw to ex.
func Replay(cb *CommandBuffer, ex Executor) error {
	if cb == nil {
		return fmt.Errorf("%w: nil command buffer", ErrInvalidCommand)
	}
	var (
		compute ComputeCall
		draw    DrawCall
		inPass  CommandType = CmdEndComputePass
		open    bool
	)
	for i, c := range cb.Commands {
		switch c.Type {
		case CmdBeginComputePass:
			compute, inPass, open = ComputeCall{}, CmdBeginComputePass, true
		case CmdBeginRenderPass:
			draw, inPass, open = DrawCall{}, CmdBeginRenderPass, true
			if err := ex.BeginRenderPass(c.Pass); err != nil {
				return err
			}
		case CmdSetComputePipeline:
			compute.Pipeline = c.ComputePipeline
		case CmdSetRenderPipeline:
			draw.Pipeline = c.RenderPipeline
		case CmdSetBindGroup:
			if c.Slot >= MaxBindGroups {
				return fmt.Errorf("%w: bind group slot %d (command %d)", ErrInvalidCommand, c.Slot, i)
			}
			if inPass == CmdBeginComputePass {
				compute.BindGroups[c.Slot] = c.BindGroup
			} else {
				draw.BindGroups[c.Slot] = c.BindGroup
			}
		case CmdSetVertexBuffer:
			if c.Slot >= MaxVertexBuffers {
				return fmt.Errorf("%w: vertex slot %d (command %d)", ErrInvalidCommand, c.Slot, i)
			}
			draw.VertexBuffers[c.Slot] = c.Buffer
		case CmdDispatch:
			if !open || inPass != CmdBeginComputePass || compute.Pipeline == InvalidID {
				return fmt.Errorf("%w: dispatch without compute pipeline (command %d)", ErrInvalidCommand, i)
			}
			compute.X, compute.Y, compute.Z = c.X, c.Y, c.Z
			if err := ex.Dispatch(compute); err != nil {
				return err
			}
		case CmdDraw:
			if !open || inPass != CmdBeginRenderPass || draw.Pipeline == InvalidID {
				return fmt.Errorf("%w: draw without render pipeline (command %d)", ErrInvalidCommand, i)
			}
			draw.VertexCount, draw.InstanceCount = c.VertexCount, c.InstanceCount
			if err := ex.Draw(draw); err != nil {
				return err
			}
		case CmdEndComputePass:
			open = false
		case CmdEndRenderPass:
			open = false
			if err := ex.EndRenderPass(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %s (command %d)", ErrInvalidCommand, c.Type, i)
		}
	}
	return nil
}

// Table maps opaque IDs to backend objects. IDs start at 1 so the zero
// value stays invalid.
type Table[T any] struct {
	next  uint64
	items map[uint64]T
}

// Add stores v and returns its new ID.
func (t *Table[T]) Add(v T) uint64 {
	if t.items == nil {
		t.items = make(map[uint64]T)
	}
	t.next++
	t.items[t.next] = v
	return t.next
}

// Get resolves id.
func (t *Table[T]) Get(id uint64) (T, bool) {
	v, ok := t.items[id]
	return v, ok
}

// Lookup resolves id or returns ErrUnknownResource.
func (t *Table[T]) Lookup(kind string, id uint64) (T, error) {
	v, ok := t.items[id]
	if !ok {
		return v, fmt.Errorf("%w: %s %d", ErrUnknownResource, kind, id)
	}
	return v, nil
}

// Each calls fn for every stored object.
func (t *Table[T]) Each(fn func(id uint64, v T)) {
	for id, v := range t.items {
		fn(id, v)
	}
}

// Len returns the number of stored objects.
func (t *Table[T]) Len() int { return len(t.items) }
