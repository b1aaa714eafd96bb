package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"runtime"

	"golang.org/x/image/vector"
)

const iconSize = 32

var (
	idleColor      = color.NRGBA{R: 0x60, G: 0x60, B: 0x60, A: 0xff}
	recordingColor = color.NRGBA{R: 0xe0, G: 0x20, B: 0x20, A: 0xff}
	pausedColor    = color.NRGBA{R: 0xe0, G: 0xa0, B: 0x20, A: 0xff}
)

// iconPNG draws a filled dot in c.
func iconPNG(c color.NRGBA) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	z := vector.NewRasterizer(iconSize, iconSize)

	const k = 0.5522847498
	cx, cy, r := float32(iconSize)/2, float32(iconSize)/2, float32(iconSize)/2-2
	z.MoveTo(cx+r, cy)
	z.CubeTo(cx+r, cy+k*r, cx+k*r, cy+r, cx, cy+r)
	z.CubeTo(cx-k*r, cy+r, cx-r, cy+k*r, cx-r, cy)
	z.CubeTo(cx-r, cy-k*r, cx-k*r, cy-r, cx, cy-r)
	z.CubeTo(cx+k*r, cy-r, cx+r, cy-k*r, cx+r, cy)
	z.ClosePath()
	z.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{})

	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// wrapICO embeds a PNG image in a single-entry ICO container, which the
// Windows tray requires.
func wrapICO(pngData []byte) []byte {
	var buf bytes.Buffer
	// ICONDIR
	_ = binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY: width, height, colours, reserved, planes, bpp, size, offset
	buf.Write([]byte{iconSize, iconSize, 0, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(32))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pngData)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(6+16))
	buf.Write(pngData)
	return buf.Bytes()
}

func icon(c color.NRGBA) []byte {
	data := iconPNG(c)
	if runtime.GOOS == "windows" {
		return wrapICO(data)
	}
	return data
}

