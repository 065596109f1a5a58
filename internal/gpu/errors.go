package gpu

import "errors"

var (
	// ErrUnsupportedPlatform means the graphics API is missing from this
	// build or this host. Callers surface it to the user and stop.
	ErrUnsupportedPlatform = errors.New("gpu: graphics API not supported on this platform")
	// ErrAdapterUnavailable means no adapter or device could be acquired.
	ErrAdapterUnavailable = errors.New("gpu: no appropriate adapter found")
	// ErrContextUnavailable means no drawing surface could be acquired.
	ErrContextUnavailable = errors.New("gpu: failed to initialize drawing context")
	// ErrInvalidCommand is returned for malformed command streams.
	ErrInvalidCommand = errors.New("gpu: invalid command")
	// ErrUnknownResource is returned when an ID has no backing object.
	ErrUnknownResource = errors.New("gpu: unknown resource")
)
