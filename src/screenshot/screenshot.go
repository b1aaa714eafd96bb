package screenshot

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/kbinani/screenshot"
)

var (
	ErrNoDisplays     = errors.New("no active displays found")
	ErrInvalidRegion  = errors.New("invalid capture region")
	ErrUnsupported    = errors.New("capture target not supported on this platform")
	ErrCursorUnknown  = errors.New("cursor position unknown")
	ErrSurfaceClosed  = errors.New("capture surface closed")
	ErrWindowNotFound = errors.New("capture window not found")
)

// Region represents a screen region to capture. Coordinates are global
// desktop coordinates for desktop targets and may be negative on
// multi-monitor layouts.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// RegionFromRect converts an image rectangle.
func RegionFromRect(r image.Rectangle) Region {
	r = r.Canon()
	return Region{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Rect returns the region as an image rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Empty reports whether the region covers no pixels.
func (r Region) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

func (r Region) String() string {
	return fmt.Sprintf("%dx%d@(%d,%d)", r.Width, r.Height, r.X, r.Y)
}

// Target selects what a surface reads from.
type Target struct {
	// Window is a native window handle. Zero selects the whole virtual desktop.
	Window uintptr
}

// Desktop is the whole-virtual-desktop target.
var Desktop = Target{}

// Display is the window-system collaborator used by the capture source.
type Display interface {
	// Open acquires a surface for target. The caller owns it and must Close it.
	Open(target Target) (Surface, error)
	// CursorPos returns the pointer position in global desktop coordinates.
	CursorPos() (image.Point, error)
	// VirtualScreen returns the bounding rectangle of all monitors.
	VirtualScreen() (Region, error)
}

// Surface is an acquired pixel source.
type Surface interface {
	// Bounds is the readable area in surface coordinates.
	Bounds() Region
	// Origin is the global desktop position of surface coordinate (0,0).
	Origin() image.Point
	// Blit copies r (surface coordinates) into the top-left of dst.
	Blit(dst *Frame, r Region) error
	Close() error
}

// DisplayInfo describes one active monitor.
type DisplayInfo struct {
	Index  int
	Bounds Region
}

// Displays lists the active monitors.
func Displays() ([]DisplayInfo, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, ErrNoDisplays
	}
	out := make([]DisplayInfo, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, DisplayInfo{Index: i, Bounds: RegionFromRect(screenshot.GetDisplayBounds(i))})
	}
	return out, nil
}

// VirtualScreen computes the union of all display bounds.
func VirtualScreen() (Region, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return Region{}, ErrNoDisplays
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return RegionFromRect(union), nil
}

// GetDisplayBounds returns the bounds of the primary display
func GetDisplayBounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}, ErrNoDisplays
	}
	return screenshot.GetDisplayBounds(0), nil
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return buf.Bytes(), nil
}
