// Package sweep benchmarks the frame orchestration over grid and workgroup
// sizes on the cpu device, checking every run against the reference stepper.
package sweep

import (
	"context"
	"fmt"
	"slices"
	"time"

	"gpulife/internal/backend/cpu"
	"gpulife/internal/core"
	"gpulife/internal/gpu"
	"gpulife/internal/sim"
	"gpulife/internal/sims/life"

	"golang.org/x/sync/errgroup"
)

// Case is one grid/workgroup combination.
type Case struct {
	Grid      int
	Workgroup int
	Steps     int
	Seed      int64
	Density   float64
}

func (c Case) String() string {
	return fmt.Sprintf("grid=%d wg=%d steps=%d", c.Grid, c.Workgroup, c.Steps)
}

// Result is the outcome of one Case.
type Result struct {
	Case       Case
	Workgroups uint32
	Elapsed    time.Duration
	Population int
	// Match reports whether the device state equals the reference stepper
	// after the last step.
	Match bool
}

// PerStep is the mean wall time of one step.
func (r Result) PerStep() time.Duration {
	if r.Case.Steps <= 0 {
		return 0
	}
	return r.Elapsed / time.Duration(r.Case.Steps)
}

// Cases expands the cross product of grids and workgroups.
func Cases(grids, workgroups []int, steps int, seed int64, density float64) []Case {
	out := make([]Case, 0, len(grids)*len(workgroups))
	for _, g := range grids {
		for _, wg := range workgroups {
			out = append(out, Case{Grid: g, Workgroup: wg, Steps: steps, Seed: seed, Density: density})
		}
	}
	return out
}

// Run evaluates every case with at most workers running at once. Results
// come back in case order.
func Run(ctx context.Context, cases []Case, workers int) ([]Result, error) {
	results := make([]Result, len(cases))
	eg, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		eg.SetLimit(workers)
	}
	for i, c := range cases {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := RunCase(c)
			if err != nil {
				return fmt.Errorf("%s: %w", c, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// RunCase steps a fresh single-threaded cpu device c.Steps times.
func RunCase(c Case) (Result, error) {
	g, err := core.NewGrid(c.Grid)
	if err != nil {
		return Result{}, err
	}
	seed, err := core.Seed(g, core.PatternRandom, c.Seed, c.Density)
	if err != nil {
		return Result{}, err
	}
	dev, err := cpu.NewDevice(cpu.DeviceOptions{
		Grid:          g,
		WorkgroupSize: c.Workgroup,
		Seed:          seed,
		Parallelism:   1,
	})
	if err != nil {
		return Result{}, err
	}
	orch, err := sim.NewOrchestrator(dev, dev.Surface(), dev.Resources(), gpu.Color{A: 1})
	if err != nil {
		return Result{}, err
	}

	var step uint64
	start := time.Now()
	for i := 0; i < c.Steps; i++ {
		if step, err = orch.Step(step); err != nil {
			return Result{}, err
		}
	}
	elapsed := time.Since(start)

	got, err := dev.State(core.ComputeParity(step))
	if err != nil {
		return Result{}, err
	}
	ref := life.New(g)
	if err := ref.Load(seed); err != nil {
		return Result{}, err
	}
	for i := 0; i < c.Steps; i++ {
		ref.Step()
	}

	return Result{
		Case:       c,
		Workgroups: orch.Workgroups(),
		Elapsed:    elapsed,
		Population: got.Population(),
		Match:      slices.Equal(got, ref.Cells()),
	}, nil
}
