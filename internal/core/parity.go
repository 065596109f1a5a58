package core

// Parity selects one of the two ping-pong slots.
type Parity uint8

const (
	// ParityA reads buffer A and writes buffer B.
	ParityA Parity = 0
	// ParityB reads buffer B and writes buffer A.
	ParityB Parity = 1
)

// ComputeParity is the bind group the compute pass uses on step n.
func ComputeParity(step uint64) Parity { return Parity(step % 2) }

// RenderParity is the bind group the render pass uses on step n. It always
// differs from ComputeParity(step) so the draw samples the freshly written
// buffer.
func RenderParity(step uint64) Parity { return Parity((step + 1) % 2) }

// Other returns the opposite slot.
func (p Parity) Other() Parity { return p ^ 1 }

// Buffer names the buffer read under this parity.
func (p Parity) Buffer() string {
	if p == ParityA {
		return "A"
	}
	return "B"
}

// PingPong holds the two slots of a double-buffered resource.
type PingPong[T any] [2]T

// At returns the slot for p.
func (pp PingPong[T]) At(p Parity) T { return pp[p&1] }
