//go:build !ebiten

package kage

import "gpulife/internal/backend"

// Name is the registry key of this backend.
const Name = "kage"

func init() {
	backend.Register(Name, backend.Unsupported(Name, "ebiten"))
}
