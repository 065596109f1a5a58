package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"gpulife/internal/config"
	"gpulife/internal/gpu"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUnsupportedFactory(t *testing.T) {
	Register("test-missing", Unsupported("test-missing", "nothing"))
	defer delete(backends, "test-missing")

	_, err := Open("test-missing", config.Default(), zap.NewNop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, gpu.ErrUnsupportedPlatform))
	assert.Contains(t, err.Error(), "-tags nothing")
	assert.Contains(t, Names(), "test-missing")
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open("does-not-exist", config.Default(), zap.NewNop())
	assert.Error(t, err)
}

func TestRegisterIgnoresEmpty(t *testing.T) {
	before := len(Names())
	Register("", Unsupported("x", "y"))
	Register("nil-factory", nil)
	assert.Len(t, Names(), before)
}

func TestTickerStopsAfterBudget(t *testing.T) {
	var got []time.Time
	err := Ticker{Interval: time.Millisecond, Frames: 4}.Run(context.Background(), func(now time.Time) error {
		got = append(got, now)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].After(got[i-1]))
	}
}

func TestTickerReturnsFrameError(t *testing.T) {
	boom := errors.New("boom")
	err := Ticker{Interval: time.Millisecond}.Run(context.Background(), func(time.Time) error { return boom })
	assert.ErrorIs(t, err, boom)
}
