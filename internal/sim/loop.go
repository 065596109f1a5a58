package sim

import (
	"context"
	"fmt"
	"time"

	"gpulife/internal/core"
)

// FrameFunc is called by a host once per display frame.
type FrameFunc func(now time.Time) error

// Info describes the dispatch geometry shown on the overlay.
type Info struct {
	Backend       string
	Grid          core.Grid
	WorkgroupSize int
	Workgroups    uint32
}

// Loop owns the driver state for a host. It is not safe for concurrent use;
// hosts call it from their frame goroutine.
type Loop struct {
	driver *Driver
	state  State
	info   Info
}

// NewLoop starts a loop at step 0.
func NewLoop(driver *Driver, st State, info Info) *Loop {
	return &Loop{driver: driver, state: st, info: info}
}

// State returns a copy of the current driver state.
func (l *Loop) State() State { return l.state }

// Frame is the per-frame entry point.
func (l *Loop) Frame(now time.Time) error {
	st, _, err := l.driver.Tick(l.state, now)
	if err != nil {
		return err
	}
	l.state = st
	return nil
}

// Advance forces a single step at now.
func (l *Loop) Advance(now time.Time) error {
	st, err := l.driver.Force(l.state, now)
	if err != nil {
		return err
	}
	l.state = st
	return nil
}

// Run calls Frame for every tick until ctx is cancelled, ticks is closed or
// a frame fails.
func (l *Loop) Run(ctx context.Context, ticks <-chan time.Time) error {
	return Drive(ctx, ticks, func(now time.Time) error {
		if err := l.Frame(now); err != nil {
			return fmt.Errorf("sim: frame at step %d: %w", l.state.Step, err)
		}
		return nil
	})
}

// Drive calls frame for every tick until ctx is cancelled, ticks is closed
// or frame fails.
func Drive(ctx context.Context, ticks <-chan time.Time, frame FrameFunc) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case now, ok := <-ticks:
			if !ok || ctx.Err() != nil {
				return nil
			}
			if err := frame(now); err != nil {
				return err
			}
		}
	}
}

// Parameters snapshots the loop for display.
func (l *Loop) Parameters() core.ParameterSnapshot {
	st := l.state
	size := l.info.Grid.Size()
	return core.ParameterSnapshot{Groups: []core.ParameterGroup{
		{Name: "Grid", Params: []core.Parameter{
			core.StringParam("backend", "Backend", l.info.Backend),
			core.IntParam("size", "Size", int64(size)),
			core.IntParam("instances", "Instances", int64(l.info.Grid.InstanceCount())),
		}},
		{Name: "Dispatch", Params: []core.Parameter{
			core.IntParam("workgroup", "Workgroup", int64(l.info.WorkgroupSize)),
			core.StringParam("workgroups", "Workgroups", fmt.Sprintf("%dx%d", l.info.Workgroups, l.info.Workgroups)),
		}},
		{Name: "Timing", Params: []core.Parameter{
			core.DurationParam("interval", "Interval", st.Scheduler.Interval()),
			core.IntParam("step", "Step", int64(st.Step)),
			core.IntParam("frames", "Frames", int64(st.Frames)),
			core.StringParam("shown", "Showing", displayedBuffer(st.Step)),
		}},
	}}
}

// displayedBuffer names the buffer on screen after step-1 ran, i.e. the one
// written last. Before any step it is the seeded buffer A.
func displayedBuffer(step uint64) string {
	if step == 0 {
		return "A"
	}
	return core.RenderParity(step - 1).Buffer()
}
