package main

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunWritesSPIRV(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, run(dir, 8, zap.NewNop()))
	for _, name := range []string{"simulation.spv", "cell.spv"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		require.GreaterOrEqual(t, len(data), 4)
		assert.Equal(t, uint32(0x07230203), binary.LittleEndian.Uint32(data), name)
	}
}

func TestRunRejectsZeroWorkgroup(t *testing.T) {
	assert.Error(t, run("", 0, zap.NewNop()))
}
