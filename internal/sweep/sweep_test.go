package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCasesCrossProduct(t *testing.T) {
	cs := Cases([]int{16, 32}, []int{4, 8, 16}, 10, 7, 0.4)
	require.Len(t, cs, 6)
	assert.Equal(t, Case{Grid: 16, Workgroup: 4, Steps: 10, Seed: 7, Density: 0.4}, cs[0])
	assert.Equal(t, Case{Grid: 32, Workgroup: 16, Steps: 10, Seed: 7, Density: 0.4}, cs[5])
	assert.Equal(t, "grid=32 wg=16 steps=10", cs[5].String())
}

func TestRunMatchesReference(t *testing.T) {
	cases := Cases([]int{12, 17}, []int{1, 5, 8}, 9, 3, 0.4)
	results, err := Run(context.Background(), cases, 2)
	require.NoError(t, err)
	require.Len(t, results, len(cases))
	for i, r := range results {
		assert.Equal(t, cases[i], r.Case)
		assert.True(t, r.Match, "%s diverged from reference", r.Case)
	}
	// 17 cells with workgroup 5 rounds up to 4 workgroups per axis
	assert.Equal(t, uint32(4), results[4].Workgroups)
}

func TestRunCaseRejectsBadWorkgroup(t *testing.T) {
	_, err := RunCase(Case{Grid: 8, Workgroup: 0, Steps: 1})
	assert.Error(t, err)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Cases([]int{8}, []int{4}, 1, 1, 0.5), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPerStep(t *testing.T) {
	r := Result{Case: Case{Steps: 4}, Elapsed: 8 * time.Millisecond}
	assert.Equal(t, 2*time.Millisecond, r.PerStep())
	assert.Zero(t, Result{}.PerStep())
}
