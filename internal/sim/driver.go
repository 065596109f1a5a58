package sim

import (
	"time"

	"gpulife/internal/core"
	"gpulife/internal/metrics"

	"go.uber.org/zap"
)

// State is everything the driver carries between frames.
type State struct {
	Step       uint64
	Scheduler  core.StepScheduler
	LastRender time.Time
	Frames     uint64
}

// NewState starts at step 0 with the first step one interval after start.
func NewState(interval time.Duration, start time.Time) State {
	return State{Scheduler: core.NewStepScheduler(interval, start)}
}

// Driver decides per frame whether to run a step.
type Driver struct {
	stepper Stepper
	metrics *metrics.Recorder
	log     *zap.Logger
	clock   func() time.Time
}

// NewDriver wraps stepper. rec may be nil.
func NewDriver(stepper Stepper, rec *metrics.Recorder, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{stepper: stepper, metrics: rec, log: log, clock: time.Now}
}

// Tick handles one display frame. It returns the next state and whether a
// step was submitted. On error the input state is returned unchanged.
func (d *Driver) Tick(st State, now time.Time) (State, bool, error) {
	next := st
	next.Frames++
	if !next.Scheduler.ShouldStep(now) {
		d.metrics.ObserveSkip()
		return next, false, nil
	}
	return d.run(st, next, now)
}

// Force runs a step regardless of the interval and restarts the interval
// window at now.
func (d *Driver) Force(st State, now time.Time) (State, error) {
	next := st
	next.Frames++
	next.Scheduler.MarkStep(now)
	next, _, err := d.run(st, next, now)
	return next, err
}

func (d *Driver) run(prev, next State, now time.Time) (State, bool, error) {
	began := d.clock()
	step, err := d.stepper.Step(prev.Step)
	if err != nil {
		return prev, false, err
	}
	next.Step = step
	next.LastRender = now
	d.metrics.ObserveStep(step, d.clock().Sub(began))
	d.log.Debug("step",
		zap.Uint64("step", prev.Step),
		zap.String("compute", core.ComputeParity(prev.Step).Buffer()),
		zap.String("render", core.RenderParity(prev.Step).Buffer()))
	return next, true, nil
}
