package screenshot

import (
	"fmt"
	"image"
	"sync"

	"github.com/kbinani/screenshot"

	"github.com/BAK-ZIM/camstudio/src/hookstream"
)

// PortableDisplay reads pixels through kbinani/screenshot. Window targets are
// not supported; the pointer position comes from the shared input stream.
type PortableDisplay struct{}

func (PortableDisplay) Open(target Target) (Surface, error) {
	if target.Window != 0 {
		return nil, fmt.Errorf("window 0x%x: %w", target.Window, ErrUnsupported)
	}
	vs, err := VirtualScreen()
	if err != nil {
		return nil, err
	}
	return &portableSurface{bounds: vs}, nil
}

func (PortableDisplay) CursorPos() (image.Point, error) {
	if p, ok := hookstream.CursorPos(); ok {
		return p, nil
	}
	return image.Point{}, ErrCursorUnknown
}

func (PortableDisplay) VirtualScreen() (Region, error) { return VirtualScreen() }

// portableSurface addresses pixels in global desktop coordinates.
type portableSurface struct {
	mu     sync.Mutex
	bounds Region
	closed bool
}

func (s *portableSurface) Bounds() Region { return s.bounds }

func (s *portableSurface) Origin() image.Point { return image.Point{} }

func (s *portableSurface) Blit(dst *Frame, r Region) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSurfaceClosed
	}
	if err := checkBlit(dst, s.bounds, r); err != nil {
		return err
	}
	img, err := screenshot.CaptureRect(r.Rect())
	if err != nil {
		return fmt.Errorf("failed to capture region %v: %w", r, err)
	}
	dst.CopyFromRGBA(img)
	return nil
}

func (s *portableSurface) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// checkBlit validates that r lies inside bounds and fits in dst.
func checkBlit(dst *Frame, bounds, r Region) error {
	if dst == nil || r.Empty() {
		return fmt.Errorf("%w: %v", ErrInvalidRegion, r)
	}
	if !r.Rect().In(bounds.Rect()) {
		return fmt.Errorf("%w: %v outside %v", ErrInvalidRegion, r, bounds)
	}
	w, h := dst.Capacity()
	if r.Width > w || r.Height > h {
		return fmt.Errorf("%w: %v exceeds buffer %dx%d", ErrInvalidRegion, r, w, h)
	}
	return nil
}
