package sim

import (
	"errors"
	"testing"

	"gpulife/internal/gpu"
	"gpulife/internal/gpu/gputest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var background = gpu.Color{R: 0, G: 0, B: 0.4, A: 1}

func newTestOrchestrator(t *testing.T, dev *gputest.Device) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(dev, dev, gputest.Resources(32, 8), background)
	require.NoError(t, err)
	return o
}

func TestStepEncodesComputeThenRender(t *testing.T) {
	dev := &gputest.Device{}
	o := newTestOrchestrator(t, dev)

	next, err := o.Step(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), next)
	require.Len(t, dev.Submissions, 1)

	cb := dev.Last()
	rec := &gputest.Recorder{}
	require.NoError(t, gpu.Replay(cb, rec))

	require.Len(t, rec.Dispatches, 1)
	d := rec.Dispatches[0]
	assert.Equal(t, gpu.ComputePipelineID(11), d.Pipeline)
	assert.Equal(t, gpu.BindGroupID(21), d.BindGroups[0])
	assert.Equal(t, uint32(4), d.X)
	assert.Equal(t, uint32(4), d.Y)
	assert.Equal(t, uint32(1), d.Z)

	require.Len(t, rec.Passes, 1)
	assert.Equal(t, gpu.LoadOpClear, rec.Passes[0].LoadOp)
	assert.Equal(t, background, rec.Passes[0].ClearValue)
	assert.Equal(t, gpu.TextureViewID(1), rec.Passes[0].View)

	require.Len(t, rec.Draws, 1)
	dr := rec.Draws[0]
	assert.Equal(t, gpu.RenderPipelineID(12), dr.Pipeline)
	assert.Equal(t, gpu.BindGroupID(22), dr.BindGroups[0])
	assert.Equal(t, gpu.BufferID(31), dr.VertexBuffers[0])
	assert.Equal(t, uint32(6), dr.VertexCount)
	assert.Equal(t, uint32(1024), dr.InstanceCount)

	// compute strictly before render within the one buffer
	assert.Equal(t, gpu.CmdBeginComputePass, cb.Commands[0].Type)
	assert.Equal(t, gpu.CmdEndRenderPass, cb.Commands[len(cb.Commands)-1].Type)
}

func TestStepParityAlternates(t *testing.T) {
	dev := &gputest.Device{}
	o := newTestOrchestrator(t, dev)

	step := uint64(0)
	var computeGroups, renderGroups []gpu.BindGroupID
	for i := 0; i < 5; i++ {
		var err error
		step, err = o.Step(step)
		require.NoError(t, err)

		cb := dev.Last()
		groups := gputest.Find(cb, gpu.CmdSetBindGroup)
		require.Len(t, groups, 2)
		computeGroups = append(computeGroups, groups[0].BindGroup)
		renderGroups = append(renderGroups, groups[1].BindGroup)
	}

	assert.Equal(t, uint64(5), step)
	assert.Equal(t, []gpu.BindGroupID{21, 22, 21, 22, 21}, computeGroups)
	assert.Equal(t, []gpu.BindGroupID{22, 21, 22, 21, 22}, renderGroups)
	assert.Len(t, dev.Submissions, 5)
	assert.Equal(t, 5, dev.Views)
}

func TestStepDispatchRoundsUp(t *testing.T) {
	dev := &gputest.Device{}
	o, err := NewOrchestrator(dev, dev, gputest.Resources(33, 8), background)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), o.Workgroups())

	_, err = o.Step(0)
	require.NoError(t, err)
	d := gputest.Find(dev.Last(), gpu.CmdDispatch)
	require.Len(t, d, 1)
	assert.Equal(t, uint32(5), d[0].X)
	assert.Equal(t, uint32(1089), gputest.Find(dev.Last(), gpu.CmdDraw)[0].InstanceCount)
}

func TestStepPropagatesSubmitError(t *testing.T) {
	boom := errors.New("device lost")
	dev := &gputest.Device{SubmitErr: boom}
	o := newTestOrchestrator(t, dev)

	next, err := o.Step(3)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, uint64(3), next)
}

func TestStepPropagatesViewError(t *testing.T) {
	dev := &gputest.Device{ViewErr: gpu.ErrContextUnavailable}
	o := newTestOrchestrator(t, dev)

	_, err := o.Step(0)
	assert.ErrorIs(t, err, gpu.ErrContextUnavailable)
	assert.Empty(t, dev.Submissions)
}

func TestNewOrchestratorValidates(t *testing.T) {
	dev := &gputest.Device{}
	res := gputest.Resources(32, 8)
	res.RenderPipeline = gpu.InvalidID
	_, err := NewOrchestrator(dev, dev, res, background)
	assert.Error(t, err)

	_, err = NewOrchestrator(nil, dev, gputest.Resources(32, 8), background)
	assert.Error(t, err)
}
