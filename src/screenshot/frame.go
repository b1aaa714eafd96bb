package screenshot

import (
	"image"
	"image/color"
	"image/draw"
)

// BitsPerPixel is the only pixel depth frames use.
const BitsPerPixel = 32

const bytesPerPixel = BitsPerPixel / 8

// Frame is a top-down BGRA pixel buffer. The alpha byte is not meaningful for
// captured desktop pixels, so frames are treated as opaque.
//
// Width and Height describe the visible image; Stride is fixed by the surface
// the buffer was allocated for and may exceed Width*4.
type Frame struct {
	Pix    []byte
	Width  int
	Height int
	Stride int
}

var _ draw.Image = (*Frame)(nil)

// NewFrame allocates a frame able to hold width x height pixels.
func NewFrame(width, height int) *Frame {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	stride := width * bytesPerPixel
	return &Frame{
		Pix:    make([]byte, stride*height),
		Width:  width,
		Height: height,
		Stride: stride,
	}
}

// Capacity returns the largest image the buffer can hold.
func (f *Frame) Capacity() (width, height int) {
	if f.Stride == 0 {
		return 0, 0
	}
	return f.Stride / bytesPerPixel, len(f.Pix) / f.Stride
}

// PixOffset returns the index of the first byte of pixel (x, y).
func (f *Frame) PixOffset(x, y int) int {
	return y*f.Stride + x*bytesPerPixel
}

// Row returns the visible bytes of row y.
func (f *Frame) Row(y int) []byte {
	i := y * f.Stride
	return f.Pix[i : i+f.Width*bytesPerPixel]
}

func (f *Frame) ColorModel() color.Model { return color.RGBAModel }

func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

func (f *Frame) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(f.Bounds())) {
		return color.RGBA{}
	}
	i := f.PixOffset(x, y)
	return color.RGBA{R: f.Pix[i+2], G: f.Pix[i+1], B: f.Pix[i], A: 0xff}
}

func (f *Frame) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(f.Bounds())) {
		return
	}
	r, g, b, _ := c.RGBA()
	i := f.PixOffset(x, y)
	f.Pix[i] = uint8(b >> 8)
	f.Pix[i+1] = uint8(g >> 8)
	f.Pix[i+2] = uint8(r >> 8)
	f.Pix[i+3] = 0xff
}

// RGBA converts the visible image to a freshly allocated *image.RGBA.
func (f *Frame) RGBA() *image.RGBA {
	img := image.NewRGBA(f.Bounds())
	for y := 0; y < f.Height; y++ {
		src := f.Row(y)
		dst := img.Pix[y*img.Stride : y*img.Stride+f.Width*4]
		for i := 0; i < len(src); i += 4 {
			dst[i] = src[i+2]
			dst[i+1] = src[i+1]
			dst[i+2] = src[i]
			dst[i+3] = 0xff
		}
	}
	return img
}

// CopyFromRGBA writes src into the top-left of f, swizzling RGBA to BGRA.
// src must fit inside the frame capacity.
func (f *Frame) CopyFromRGBA(src *image.RGBA) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		s := src.Pix[y*src.Stride : y*src.Stride+b.Dx()*4]
		d := f.Pix[y*f.Stride : y*f.Stride+b.Dx()*4]
		for i := 0; i < len(s); i += 4 {
			d[i] = s[i+2]
			d[i+1] = s[i+1]
			d[i+2] = s[i]
			d[i+3] = 0xff
		}
	}
}

// Clone returns a deep copy of the visible image with a tight stride.
func (f *Frame) Clone() *Frame {
	c := NewFrame(f.Width, f.Height)
	for y := 0; y < f.Height; y++ {
		copy(c.Row(y), f.Row(y))
	}
	return c
}
