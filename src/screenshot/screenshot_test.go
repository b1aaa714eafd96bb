package screenshot

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestVirtualScreen(t *testing.T) {
	// Requires a display; only check that the call does not panic.
	vs, err := VirtualScreen()
	if err != nil {
		t.Logf("Failed to get virtual screen (expected in headless environment): %v", err)
		return
	}
	if vs.Empty() {
		t.Errorf("virtual screen is empty: %v", vs)
	}
}

func TestGetDisplayBounds(t *testing.T) {
	_, err := GetDisplayBounds()
	if err != nil {
		t.Logf("Failed to get display bounds (expected in headless environment): %v", err)
	}
}

func TestRegionRect(t *testing.T) {
	r := Region{X: -1920, Y: 0, Width: 3840, Height: 1080}
	if got, want := r.Rect(), image.Rect(-1920, 0, 1920, 1080); got != want {
		t.Fatalf("Rect() = %v, want %v", got, want)
	}
	if back := RegionFromRect(r.Rect()); back != r {
		t.Fatalf("RegionFromRect round trip = %v, want %v", back, r)
	}
	if !(Region{Width: 0, Height: 5}).Empty() {
		t.Error("zero-width region not empty")
	}
}

func TestFrameSetAtSwizzles(t *testing.T) {
	f := NewFrame(4, 3)
	f.Set(1, 2, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	i := f.PixOffset(1, 2)
	if f.Pix[i] != 30 || f.Pix[i+1] != 20 || f.Pix[i+2] != 10 {
		t.Fatalf("stored bytes = %v, want BGR 30,20,10", f.Pix[i:i+4])
	}
	got := f.At(1, 2).(color.RGBA)
	if got != (color.RGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Fatalf("At = %v", got)
	}

	// out of bounds writes are ignored
	f.Set(-1, 0, color.White)
	f.Set(4, 0, color.White)
}

func TestFrameNarrowerThanStride(t *testing.T) {
	f := NewFrame(8, 2)
	f.Width = 3
	if w, h := f.Capacity(); w != 8 || h != 2 {
		t.Fatalf("capacity = %dx%d, want 8x2", w, h)
	}
	if len(f.Row(1)) != 12 {
		t.Fatalf("row length = %d, want 12", len(f.Row(1)))
	}
	f.Set(2, 1, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	img := f.RGBA()
	if img.Bounds() != image.Rect(0, 0, 3, 2) {
		t.Fatalf("RGBA bounds = %v", img.Bounds())
	}
	if c := img.RGBAAt(2, 1); c.R != 1 || c.G != 2 || c.B != 3 {
		t.Fatalf("RGBAAt = %v", c)
	}
	if c := f.Clone(); c.Stride != 12 || c.At(2, 1) != f.At(2, 1) {
		t.Fatalf("clone mismatch: stride %d", c.Stride)
	}
}

func TestCopyFromRGBA(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.SetRGBA(1, 1, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	f := NewFrame(4, 4)
	f.CopyFromRGBA(src)
	i := f.PixOffset(1, 1)
	if f.Pix[i] != 50 || f.Pix[i+1] != 100 || f.Pix[i+2] != 200 {
		t.Fatalf("bytes = %v", f.Pix[i:i+4])
	}
}

func TestCheckBlit(t *testing.T) {
	bounds := Region{X: -1920, Y: 0, Width: 3840, Height: 1080}
	buf := NewFrame(3840, 1080)
	tests := []struct {
		name string
		dst  *Frame
		r    Region
		ok   bool
	}{
		{"full", buf, bounds, true},
		{"left monitor", buf, Region{X: -1920, Y: 0, Width: 1920, Height: 1080}, true},
		{"empty", buf, Region{X: 0, Y: 0}, false},
		{"outside", buf, Region{X: 1900, Y: 0, Width: 100, Height: 10}, false},
		{"nil dst", nil, Region{X: 0, Y: 0, Width: 1, Height: 1}, false},
		{"buffer too small", NewFrame(10, 10), Region{X: 0, Y: 0, Width: 20, Height: 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkBlit(tt.dst, bounds, tt.r)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidRegion) {
				t.Fatalf("err = %v, want ErrInvalidRegion", err)
			}
		})
	}
}

func TestEncodePNG(t *testing.T) {
	f := NewFrame(2, 2)
	b, err := EncodePNG(f)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	if len(b) < 8 || string(b[1:4]) != "PNG" {
		t.Fatalf("not a PNG: % x", b[:8])
	}
}
