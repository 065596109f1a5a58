//go:build !opencl

package opencl

import "gpulife/internal/backend"

// Name is the registry key of this backend.
const Name = "opencl"

func init() {
	backend.Register(Name, backend.Unsupported(Name, "opencl"))
}
