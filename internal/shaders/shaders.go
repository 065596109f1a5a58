// Package shaders embeds the simulation and cell shaders for every backend.
package shaders

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/naga"
)

var (
	//go:embed simulation.wgsl
	simulationWGSL string
	//go:embed cell.wgsl
	cellWGSL string
	//go:embed life.kage
	lifeKage []byte
	//go:embed cell.kage
	cellKage []byte
	//go:embed life.cl
	lifeCL string
)

const workgroupPlaceholder = "{{WORKGROUP_SIZE}}"

// Entry points shared by the WGSL pipelines.
const (
	ComputeEntry  = "computeMain"
	VertexEntry   = "vertexMain"
	FragmentEntry = "fragmentMain"
	KernelName    = "life_step"
)

// SimulationWGSL returns the compute shader with its workgroup size fixed
// to workgroupSize x workgroupSize.
func SimulationWGSL(workgroupSize int) (string, error) {
	if workgroupSize <= 0 {
		return "", fmt.Errorf("shaders: workgroup size must be positive, got %d", workgroupSize)
	}
	return strings.ReplaceAll(simulationWGSL, workgroupPlaceholder, strconv.Itoa(workgroupSize)), nil
}

// CellWGSL returns the instanced cell render shader.
func CellWGSL() string { return cellWGSL }

// LifeKage returns the Kage port of the simulation shader.
func LifeKage() []byte { return lifeKage }

// CellKage returns the Kage cell shader.
func CellKage() []byte { return cellKage }

// LifeCL returns the OpenCL C kernel.
func LifeCL() string { return lifeCL }

// CompileSPIRV compiles WGSL source to SPIR-V words.
func CompileSPIRV(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("shaders: compile: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("shaders: SPIR-V length %d is not word aligned", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// Source is one compilable WGSL module.
type Source struct {
	Name string
	WGSL string
}

// WGSLSources lists the WGSL modules for a given workgroup size.
func WGSLSources(workgroupSize int) ([]Source, error) {
	sim, err := SimulationWGSL(workgroupSize)
	if err != nil {
		return nil, err
	}
	return []Source{
		{Name: "simulation", WGSL: sim},
		{Name: "cell", WGSL: cellWGSL},
	}, nil
}
