package shaders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

func TestSimulationWGSLWorkgroupSize(t *testing.T) {
	src, err := SimulationWGSL(16)
	require.NoError(t, err)
	assert.Contains(t, src, "@workgroup_size(16, 16)")
	assert.NotContains(t, src, workgroupPlaceholder)

	_, err = SimulationWGSL(0)
	assert.Error(t, err)
}

func TestEntryPointsPresent(t *testing.T) {
	src, err := SimulationWGSL(8)
	require.NoError(t, err)
	assert.Contains(t, src, "fn "+ComputeEntry)
	assert.Contains(t, CellWGSL(), "fn "+VertexEntry)
	assert.Contains(t, CellWGSL(), "fn "+FragmentEntry)
	assert.Contains(t, LifeCL(), KernelName)
	assert.True(t, strings.HasPrefix(string(LifeKage()), "//kage:unit pixels"))
	assert.True(t, strings.HasPrefix(string(CellKage()), "//kage:unit pixels"))
}

func TestCompileSPIRV(t *testing.T) {
	sources, err := WGSLSources(8)
	require.NoError(t, err)
	for _, s := range sources {
		t.Run(s.Name, func(t *testing.T) {
			words, err := CompileSPIRV(s.WGSL)
			require.NoError(t, err)
			require.NotEmpty(t, words)
			assert.Equal(t, uint32(spirvMagic), words[0])
		})
	}
}

func TestCompileSPIRVRejectsGarbage(t *testing.T) {
	_, err := CompileSPIRV("fn broken( {")
	assert.Error(t, err)
}
