package core

import (
	"fmt"
	"math/rand/v2"
)

// RNG is a thin convenience wrapper around math/rand/v2 for deterministic seeding.
type RNG struct {
	r *rand.Rand
}

// NewRNG creates a deterministic RNG using the provided seed.
func NewRNG(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewPCG(uint64(seed), 0))}
}

// Source exposes the underlying rand.Rand for advanced use.
func (r *RNG) Source() *rand.Rand { return r.r }

// FillBinary sets each cell alive with probability density.
func FillBinary(r *rand.Rand, buf CellBuffer, density float64) {
	for i := range buf {
		buf[i] = 0
		if r.Float64() < density {
			buf[i] = 1
		}
	}
}

// Pattern names an initial board layout.
type Pattern string

const (
	PatternRandom  Pattern = "random"
	PatternGlider  Pattern = "glider"
	PatternBlinker Pattern = "blinker"
	PatternBlank   Pattern = "blank"
)

// Patterns lists the accepted pattern names.
func Patterns() []Pattern {
	return []Pattern{PatternRandom, PatternGlider, PatternBlinker, PatternBlank}
}

// ParsePattern validates a pattern name.
func ParsePattern(name string) (Pattern, error) {
	for _, p := range Patterns() {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("core: unknown pattern %q", name)
}

// Seed returns the initial contents of buffer A.
func Seed(g Grid, p Pattern, seed int64, density float64) (CellBuffer, error) {
	buf := NewCellBuffer(g)
	c := g.Size() / 2
	set := func(x, y int) {
		x, y = g.Wrap(x, y)
		buf[g.Index(x, y)] = 1
	}
	switch p {
	case PatternRandom, "":
		FillBinary(NewRNG(seed).Source(), buf, density)
	case PatternGlider:
		set(c+1, c)
		set(c+2, c+1)
		set(c, c+2)
		set(c+1, c+2)
		set(c+2, c+2)
	case PatternBlinker:
		set(c, c-1)
		set(c, c)
		set(c, c+1)
	case PatternBlank:
	default:
		return nil, fmt.Errorf("core: unknown pattern %q", p)
	}
	return buf, nil
}
