package gpu_test

import (
	"errors"
	"image/color"
	"testing"

	"gpulife/internal/gpu"
	"gpulife/internal/gpu/gputest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoderRecordsPassesInOrder(t *testing.T) {
	enc := gpu.NewCommandEncoder("frame")
	cp := enc.BeginComputePass()
	cp.SetPipeline(1)
	cp.SetBindGroup(0, 5)
	cp.DispatchWorkgroups(4, 4, 1)
	cp.End()
	rp := enc.BeginRenderPass(gpu.RenderPassDescriptor{View: 9})
	rp.SetPipeline(2)
	rp.SetVertexBuffer(0, 7)
	rp.SetBindGroup(0, 6)
	rp.Draw(6, 1024)
	rp.End()

	cb, err := enc.Finish()
	require.NoError(t, err)
	assert.Equal(t, "frame", cb.Label)

	var types []gpu.CommandType
	for _, c := range cb.Commands {
		types = append(types, c.Type)
	}
	assert.Equal(t, []gpu.CommandType{
		gpu.CmdBeginComputePass, gpu.CmdSetComputePipeline, gpu.CmdSetBindGroup, gpu.CmdDispatch, gpu.CmdEndComputePass,
		gpu.CmdBeginRenderPass, gpu.CmdSetRenderPipeline, gpu.CmdSetVertexBuffer, gpu.CmdSetBindGroup, gpu.CmdDraw, gpu.CmdEndRenderPass,
	}, types)
}

func TestEncoderRejectsNestedPasses(t *testing.T) {
	enc := gpu.NewCommandEncoder("bad")
	enc.BeginComputePass()
	enc.BeginRenderPass(gpu.RenderPassDescriptor{})
	_, err := enc.Finish()
	assert.True(t, errors.Is(err, gpu.ErrInvalidCommand))
}

func TestEncoderRejectsOpenPassAtFinish(t *testing.T) {
	enc := gpu.NewCommandEncoder("open")
	enc.BeginComputePass()
	_, err := enc.Finish()
	assert.ErrorIs(t, err, gpu.ErrInvalidCommand)
}

func TestReplayResolvesState(t *testing.T) {
	enc := gpu.NewCommandEncoder("frame")
	cp := enc.BeginComputePass()
	cp.SetPipeline(1)
	cp.SetBindGroup(0, 5)
	cp.DispatchWorkgroups(3, 2, 1)
	cp.End()
	rp := enc.BeginRenderPass(gpu.RenderPassDescriptor{View: 9, ClearValue: gpu.Color{B: 0.4, A: 1}})
	rp.SetPipeline(2)
	rp.SetVertexBuffer(0, 7)
	rp.SetBindGroup(0, 6)
	rp.Draw(6, 9)
	rp.End()
	cb, err := enc.Finish()
	require.NoError(t, err)

	rec := &gputest.Recorder{}
	require.NoError(t, gpu.Replay(cb, rec))

	require.Len(t, rec.Dispatches, 1)
	assert.Equal(t, gpu.ComputePipelineID(1), rec.Dispatches[0].Pipeline)
	assert.Equal(t, gpu.BindGroupID(5), rec.Dispatches[0].BindGroups[0])
	assert.Equal(t, [3]uint32{3, 2, 1}, [3]uint32{rec.Dispatches[0].X, rec.Dispatches[0].Y, rec.Dispatches[0].Z})

	require.Len(t, rec.Draws, 1)
	assert.Equal(t, gpu.BindGroupID(6), rec.Draws[0].BindGroups[0])
	assert.Equal(t, gpu.BufferID(7), rec.Draws[0].VertexBuffers[0])
	assert.Equal(t, uint32(9), rec.Draws[0].InstanceCount)
	assert.Equal(t, gpu.TextureViewID(9), rec.Passes[0].View)
	assert.Equal(t, 1, rec.Ended)
}

func TestReplayRejectsDispatchWithoutPipeline(t *testing.T) {
	enc := gpu.NewCommandEncoder("frame")
	cp := enc.BeginComputePass()
	cp.DispatchWorkgroups(1, 1, 1)
	cp.End()
	cb, err := enc.Finish()
	require.NoError(t, err)
	assert.ErrorIs(t, gpu.Replay(cb, &gputest.Recorder{}), gpu.ErrInvalidCommand)
}

func TestResourcesValidate(t *testing.T) {
	res := gputest.Resources(32, 8)
	require.NoError(t, res.Validate())

	res.BindGroups[1] = res.BindGroups[0]
	assert.Error(t, res.Validate())

	res = gputest.Resources(32, 8)
	res.WorkgroupSize = 0
	assert.Error(t, res.Validate())
}

func TestColorRoundTrip(t *testing.T) {
	c := gpu.ColorFrom(color.RGBA{R: 0, G: 0, B: 102, A: 255})
	assert.InDelta(t, 0.4, c.B, 0.001)
	assert.Equal(t, color.RGBA{B: 102, A: 255}, c.RGBA())
}

func TestTable(t *testing.T) {
	var tab gpu.Table[string]
	a := tab.Add("a")
	b := tab.Add("b")
	assert.NotEqual(t, a, b)
	assert.NotZero(t, a)

	v, err := tab.Lookup("thing", b)
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	_, err = tab.Lookup("thing", 99)
	assert.ErrorIs(t, err, gpu.ErrUnknownResource)
	assert.Equal(t, 2, tab.Len())
}
