package backend

import (
	"context"
	"time"

	"gpulife/internal/sim"
)

// FrameFunc is called by a host once per display frame.
type FrameFunc = sim.FrameFunc

// Ticker is the host for backends without a window: frames arrive from a
// wall-clock ticker.
type Ticker struct {
	Interval time.Duration
	// Frames stops the host after this many frames; 0 runs until cancelled.
	Frames int
}

// Ticks returns a channel of frame times that closes after t.Frames frames or
// when ctx is done.
func (t Ticker) Ticks(ctx context.Context) <-chan time.Time {
	out := make(chan time.Time)
	interval := t.Interval
	if interval <= 0 {
		interval = time.Second / 60
	}
	go func() {
		defer close(out)
		tk := time.NewTicker(interval)
		defer tk.Stop()
		for n := 0; t.Frames == 0 || n < t.Frames; n++ {
			select {
			case <-ctx.Done():
				return
			case now := <-tk.C:
				select {
				case out <- now:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Run drives frame until the frame budget is spent or ctx is cancelled.
func (t Ticker) Run(ctx context.Context, frame FrameFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	return sim.Drive(ctx, t.Ticks(ctx), frame)
}
