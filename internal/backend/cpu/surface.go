package cpu

import (
	"fmt"
	"image"
	"sync"

	"gpulife/internal/gpu"
)

const backView gpu.TextureViewID = 1

// Surface is a double-buffered RGBA target. Render passes draw into the back
// image; ending a pass copies it to the front image that Snapshot reads.
type Surface struct {
	mu    sync.Mutex
	back  *image.RGBA
	front *image.RGBA
	views int
}

// NewSurface allocates a w x h surface.
func NewSurface(w, h int) *Surface {
	r := image.Rect(0, 0, w, h)
	return &Surface{back: image.NewRGBA(r), front: image.NewRGBA(r)}
}

// CurrentView returns the back image's view.
func (s *Surface) CurrentView() (gpu.TextureViewID, error) {
	s.mu.Lock()
	s.views++
	s.mu.Unlock()
	return backView, nil
}

// Target resolves a view to the image render passes draw into.
func (s *Surface) Target(id gpu.TextureViewID) (*image.RGBA, error) {
	if id != backView {
		return nil, fmt.Errorf("%w: texture view %d", gpu.ErrUnknownResource, id)
	}
	return s.back, nil
}

// Present publishes the back image to Snapshot.
func (s *Surface) Present() {
	s.mu.Lock()
	copy(s.front.Pix, s.back.Pix)
	s.mu.Unlock()
}

// Snapshot returns a copy of the last presented frame.
func (s *Surface) Snapshot() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := image.NewRGBA(s.front.Rect)
	copy(out.Pix, s.front.Pix)
	return out, nil
}

// Size returns the target dimensions.
func (s *Surface) Size() (int, int) { return s.back.Rect.Dx(), s.back.Rect.Dy() }
