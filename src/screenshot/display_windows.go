//go:build windows

package screenshot

import (
	"fmt"
	"image"
	"sync"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

// captureBlt includes layered windows in BitBlt output.
const captureBlt = 0x40000000

// DefaultDisplay returns the platform display collaborator.
func DefaultDisplay() Display { return GDIDisplay{} }

// GDIDisplay reads pixels with BitBlt from a screen or window DC.
type GDIDisplay struct{}

func (GDIDisplay) CursorPos() (image.Point, error) {
	var pt win.POINT
	if !win.GetCursorPos(&pt) {
		return image.Point{}, fmt.Errorf("GetCursorPos failed: %v", windows.GetLastError())
	}
	return image.Pt(int(pt.X), int(pt.Y)), nil
}

func (GDIDisplay) VirtualScreen() (Region, error) {
	r := Region{
		X:      int(win.GetSystemMetrics(win.SM_XVIRTUALSCREEN)),
		Y:      int(win.GetSystemMetrics(win.SM_YVIRTUALSCREEN)),
		Width:  int(win.GetSystemMetrics(win.SM_CXVIRTUALSCREEN)),
		Height: int(win.GetSystemMetrics(win.SM_CYVIRTUALSCREEN)),
	}
	if r.Empty() {
		return Region{}, ErrNoDisplays
	}
	return r, nil
}

// Open acquires the device contexts and a DIB section sized to the target.
// Every handle acquired before a failure is released before returning.
func (d GDIDisplay) Open(target Target) (Surface, error) {
	hwnd := win.HWND(target.Window)
	var bounds Region
	var origin image.Point

	if hwnd == 0 {
		vs, err := d.VirtualScreen()
		if err != nil {
			return nil, err
		}
		// the screen DC addresses global desktop coordinates
		bounds = vs
	} else {
		if !win.IsWindow(hwnd) {
			return nil, fmt.Errorf("%w: 0x%x", ErrWindowNotFound, target.Window)
		}
		var rc win.RECT
		if !win.GetClientRect(hwnd, &rc) {
			return nil, fmt.Errorf("GetClientRect failed winerr=%v", windows.GetLastError())
		}
		pt := win.POINT{}
		win.ClientToScreen(hwnd, &pt)
		origin = image.Pt(int(pt.X), int(pt.Y))
		bounds = Region{Width: int(rc.Right - rc.Left), Height: int(rc.Bottom - rc.Top)}
		if bounds.Empty() {
			return nil, fmt.Errorf("%w: window 0x%x has empty client area", ErrInvalidRegion, target.Window)
		}
	}

	srcDC := win.GetDC(hwnd)
	if srcDC == 0 {
		return nil, fmt.Errorf("GetDC failed winerr=%v", windows.GetLastError())
	}
	ok := false
	defer func() {
		if !ok {
			win.ReleaseDC(hwnd, srcDC)
		}
	}()

	memDC := win.CreateCompatibleDC(srcDC)
	if memDC == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC failed winerr=%v", windows.GetLastError())
	}
	defer func() {
		if !ok {
			win.DeleteDC(memDC)
		}
	}()

	var bi win.BITMAPINFOHEADER
	bi.BiSize = uint32(unsafe.Sizeof(bi))
	bi.BiWidth = int32(bounds.Width)
	bi.BiHeight = -int32(bounds.Height) // top-down
	bi.BiPlanes = 1
	bi.BiBitCount = BitsPerPixel
	bi.BiCompression = win.BI_RGB
	bi.BiSizeImage = uint32(bounds.Width * bounds.Height * bytesPerPixel)

	var bits unsafe.Pointer
	bmp := win.CreateDIBSection(memDC, &bi, win.DIB_RGB_COLORS, &bits, 0, 0)
	if bmp == 0 || bits == nil {
		return nil, fmt.Errorf("CreateDIBSection failed winerr=%v", windows.GetLastError())
	}

	ok = true
	n := int(bi.BiSizeImage)
	return &gdiSurface{
		hwnd:   hwnd,
		srcDC:  srcDC,
		memDC:  memDC,
		bmp:    bmp,
		bits:   unsafe.Slice((*byte)(bits), n),
		stride: bounds.Width * bytesPerPixel,
		bounds: bounds,
		origin: origin,
	}, nil
}

type gdiSurface struct {
	mu     sync.Mutex
	hwnd   win.HWND
	srcDC  win.HDC
	memDC  win.HDC
	bmp    win.HBITMAP
	bits   []byte
	stride int
	bounds Region
	origin image.Point
	closed bool
}

func (s *gdiSurface) Bounds() Region { return s.bounds }

func (s *gdiSurface) Origin() image.Point { return s.origin }

func (s *gdiSurface) Blit(dst *Frame, r Region) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSurfaceClosed
	}
	if err := checkBlit(dst, s.bounds, r); err != nil {
		return err
	}

	prev := win.SelectObject(s.memDC, win.HGDIOBJ(s.bmp))
	if prev == 0 {
		return fmt.Errorf("SelectObject failed winerr=%v", windows.GetLastError())
	}
	defer win.SelectObject(s.memDC, prev)

	if !win.BitBlt(s.memDC, 0, 0, int32(r.Width), int32(r.Height),
		s.srcDC, int32(r.X), int32(r.Y), win.SRCCOPY|captureBlt) {
		return fmt.Errorf("BitBlt failed x=%d y=%d w=%d h=%d winerr=%v",
			r.X, r.Y, r.Width, r.Height, windows.GetLastError())
	}

	rowBytes := r.Width * bytesPerPixel
	for y := 0; y < r.Height; y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+rowBytes], s.bits[y*s.stride:y*s.stride+rowBytes])
	}
	return nil
}

func (s *gdiSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	win.DeleteObject(win.HGDIOBJ(s.bmp))
	win.DeleteDC(s.memDC)
	win.ReleaseDC(s.hwnd, s.srcDC)
	s.bits = nil
	return nil
}
