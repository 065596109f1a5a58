package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"gpulife/internal/gpu/gputest"
	"gpulife/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStepper struct {
	calls []uint64
	err   error
}

func (s *countingStepper) Step(step uint64) (uint64, error) {
	if s.err != nil {
		return step, s.err
	}
	s.calls = append(s.calls, step)
	return step + 1, nil
}

func TestTickSkipsUntilIntervalElapses(t *testing.T) {
	start := time.Unix(0, 0)
	stepper := &countingStepper{}
	rec := metrics.NewRecorder("test")
	d := NewDriver(stepper, rec, nil)

	st := NewState(250*time.Millisecond, start)
	var steppedAt []int
	for _, ms := range []int{0, 16, 33, 49, 66, 83, 99, 116, 133, 149, 166, 183, 199, 216, 233, 249, 266} {
		var stepped bool
		var err error
		st, stepped, err = d.Tick(st, start.Add(time.Duration(ms)*time.Millisecond))
		require.NoError(t, err)
		if stepped {
			steppedAt = append(steppedAt, ms)
		}
	}

	assert.Equal(t, []int{266}, steppedAt)
	assert.Equal(t, uint64(1), st.Step)
	assert.Equal(t, uint64(17), st.Frames)
	assert.Equal(t, start.Add(266*time.Millisecond), st.LastRender)
	assert.Equal(t, []uint64{0}, stepper.calls)
	assert.Equal(t, 16.0, testutil.ToFloat64(rec.SkippedFrames))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.Steps))
}

func TestTickNoOpSubmitsNothing(t *testing.T) {
	start := time.Unix(0, 0)
	dev := &gputest.Device{}
	o, err := NewOrchestrator(dev, dev, gputest.Resources(32, 8), background)
	require.NoError(t, err)
	d := NewDriver(o, nil, nil)

	st := NewState(time.Second, start)
	st.Step = 7
	next, stepped, err := d.Tick(st, start.Add(10*time.Millisecond))
	require.NoError(t, err)

	assert.False(t, stepped)
	assert.Empty(t, dev.Submissions)
	assert.Equal(t, uint64(7), next.Step)
	assert.Equal(t, start, next.Scheduler.LastStep())
}

func TestTickFiveStepsParitySequence(t *testing.T) {
	start := time.Unix(0, 0)
	dev := &gputest.Device{}
	o, err := NewOrchestrator(dev, dev, gputest.Resources(32, 8), background)
	require.NoError(t, err)
	d := NewDriver(o, nil, nil)

	st := NewState(0, start)
	for i := 1; i <= 5; i++ {
		st, _, err = d.Tick(st, start.Add(time.Duration(i)*time.Millisecond))
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(5), st.Step)
	require.Len(t, dev.Submissions, 5)

	res := gputest.Resources(32, 8)
	for i, cb := range dev.Submissions {
		// compute bind group of step i is group i%2
		got := cb.Commands[2].BindGroup
		assert.Equal(t, res.BindGroups[i%2], got, "submission %d", i)
	}
}

func TestTickErrorKeepsState(t *testing.T) {
	start := time.Unix(0, 0)
	boom := errors.New("lost")
	d := NewDriver(&countingStepper{err: boom}, nil, nil)

	st := NewState(0, start)
	st.Step = 4
	next, stepped, err := d.Tick(st, start.Add(time.Second))
	assert.ErrorIs(t, err, boom)
	assert.False(t, stepped)
	assert.Equal(t, st, next)
}

func TestForceIgnoresInterval(t *testing.T) {
	start := time.Unix(0, 0)
	stepper := &countingStepper{}
	d := NewDriver(stepper, nil, nil)

	st := NewState(time.Hour, start)
	st, err := d.Force(st, start.Add(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), st.Step)
	assert.Equal(t, start.Add(time.Millisecond), st.Scheduler.LastStep())
}

func TestLoopRunStopsOnCancel(t *testing.T) {
	start := time.Unix(0, 0)
	stepper := &countingStepper{}
	loop := NewLoop(NewDriver(stepper, nil, nil), NewState(0, start), Info{})

	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan time.Time)
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx, ticks) }()

	for i := 1; i <= 3; i++ {
		ticks <- start.Add(time.Duration(i) * time.Millisecond)
	}
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, uint64(3), loop.State().Step)
}

func TestLoopRunReturnsFrameError(t *testing.T) {
	start := time.Unix(0, 0)
	boom := errors.New("lost")
	loop := NewLoop(NewDriver(&countingStepper{err: boom}, nil, nil), NewState(0, start), Info{})

	ticks := make(chan time.Time, 1)
	ticks <- start.Add(time.Millisecond)
	err := loop.Run(context.Background(), ticks)
	assert.ErrorIs(t, err, boom)
}

func TestLoopRunEndsWhenTicksClose(t *testing.T) {
	loop := NewLoop(NewDriver(&countingStepper{}, nil, nil), NewState(0, time.Unix(0, 0)), Info{})
	ticks := make(chan time.Time)
	close(ticks)
	assert.NoError(t, loop.Run(context.Background(), ticks))
}

func TestParametersSnapshot(t *testing.T) {
	res := gputest.Resources(32, 8)
	loop := NewLoop(NewDriver(&countingStepper{}, nil, nil), NewState(250*time.Millisecond, time.Unix(0, 0)),
		Info{Backend: "cpu", Grid: res.Grid, WorkgroupSize: 8, Workgroups: 4})

	snap := loop.Parameters()
	p, ok := snap.Lookup("workgroups")
	require.True(t, ok)
	assert.Equal(t, "4x4", p.Value)
	p, _ = snap.Lookup("instances")
	assert.Equal(t, "1024", p.Value)
	p, _ = snap.Lookup("shown")
	assert.Equal(t, "A", p.Value)

	require.NoError(t, loop.Advance(time.Unix(1, 0)))
	p, _ = snap.Lookup("interval")
	assert.Equal(t, "250ms", p.Value)
	p, _ = loop.Parameters().Lookup("shown")
	assert.Equal(t, "B", p.Value)
}
