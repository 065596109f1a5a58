package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkgroupCountDefaultGrid(t *testing.T) {
	g, err := NewGrid(32)
	require.NoError(t, err)

	n := g.WorkgroupCount(8)
	assert.Equal(t, uint32(4), n)
	assert.Equal(t, uint32(16), n*n)
	assert.Equal(t, uint32(1024), g.InstanceCount())
}

func TestWorkgroupCountRoundsUp(t *testing.T) {
	g, err := NewGrid(33)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), g.WorkgroupCount(8))
	assert.Equal(t, uint32(33), g.WorkgroupCount(1))
	assert.Equal(t, uint32(1), g.WorkgroupCount(64))
}

func TestNewGridRejectsNonPositive(t *testing.T) {
	_, err := NewGrid(0)
	assert.Error(t, err)
	_, err = NewGrid(-4)
	assert.Error(t, err)
}

func TestWrap(t *testing.T) {
	g, err := NewGrid(5)
	require.NoError(t, err)
	x, y := g.Wrap(-1, 5)
	assert.Equal(t, 4, x)
	assert.Equal(t, 0, y)
	assert.Equal(t, 7, g.Index(2, 1))
}

func TestParityNeverAliases(t *testing.T) {
	for step := uint64(0); step < 64; step++ {
		c, r := ComputeParity(step), RenderParity(step)
		assert.Equal(t, Parity(step%2), c)
		assert.Equal(t, Parity((step+1)%2), r)
		assert.NotEqual(t, c, r, "step %d", step)
		assert.Equal(t, c.Other(), r)
	}
}

func TestParityRoundTripsAfterTwoSteps(t *testing.T) {
	for step := uint64(0); step < 16; step++ {
		assert.Equal(t, ComputeParity(step), ComputeParity(step+2))
		assert.Equal(t, RenderParity(step), RenderParity(step+2))
	}
}

func TestPingPongAt(t *testing.T) {
	pp := PingPong[string]{"a->b", "b->a"}
	assert.Equal(t, "a->b", pp.At(ComputeParity(4)))
	assert.Equal(t, "b->a", pp.At(RenderParity(4)))
	assert.Equal(t, "A", ParityA.Buffer())
	assert.Equal(t, "B", ParityB.Buffer())
}
