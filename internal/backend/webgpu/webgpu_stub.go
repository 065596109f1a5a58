//go:build !webgpu

package webgpu

import "gpulife/internal/backend"

// Name is the registry key of this backend.
const Name = "webgpu"

func init() {
	backend.Register(Name, backend.Unsupported(Name, "webgpu"))
}
