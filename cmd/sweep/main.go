package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"gpulife/internal/sweep"

	"github.com/olekukonko/tablewriter"
)

type intList []int

func (l *intList) String() string {
	parts := make([]string, len(*l))
	for i, v := range *l {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func (l *intList) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return fmt.Errorf("invalid size %q: %w", part, err)
		}
		*l = append(*l, v)
	}
	return nil
}

func main() {
	steps := flag.Int("steps", 200, "steps to run per case")
	workers := flag.Int("workers", runtime.NumCPU(), "cases evaluated in parallel")
	seed := flag.Int64("seed", 42, "seed for the random board")
	density := flag.Float64("density", 0.4, "live cell probability")
	var grids, workgroups intList
	flag.Var(&grids, "grid", "grid edge length (repeatable or comma separated)")
	flag.Var(&workgroups, "workgroup", "workgroup edge length (repeatable or comma separated)")
	flag.Parse()

	if len(grids) == 0 {
		grids = intList{32, 128, 512}
	}
	if len(workgroups) == 0 {
		workgroups = intList{4, 8, 16}
	}

	cases := sweep.Cases(grids, workgroups, *steps, *seed, *density)
	fmt.Printf("Sweeping %d cases (%d workers, %d steps)\n", len(cases), *workers, *steps)

	results, err := sweep.Run(context.Background(), cases, *workers)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	table := tablewriter.NewWriter(os.Stdout)
	if err := table.Append([]string{"Grid", "Workgroup", "Dispatch", "Steps", "Per step", "Population", "Reference"}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to append header row: %v\n", err)
		os.Exit(1)
	}
	failed := 0
	for _, r := range results {
		ref := "ok"
		if !r.Match {
			ref = "MISMATCH"
			failed++
		}
		row := []string{
			strconv.Itoa(r.Case.Grid),
			strconv.Itoa(r.Case.Workgroup),
			fmt.Sprintf("%dx%dx1", r.Workgroups, r.Workgroups),
			strconv.Itoa(r.Case.Steps),
			r.PerStep().String(),
			strconv.Itoa(r.Population),
			ref,
		}
		if err := table.Append(row); err != nil {
			fmt.Fprintf(os.Stderr, "failed to append row: %v\n", err)
			continue
		}
	}
	if err := table.Render(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to render table: %v\n", err)
		os.Exit(1)
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d case(s) diverged from the reference stepper\n", failed)
		os.Exit(1)
	}
}
