package annotation

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// kappa places cubic control points so four segments approximate a quarter
// ellipse each.
const kappa = 0.5522847498

// canvas rasterises filled paths in absolute frame coordinates. The
// rasteriser only covers the part of the shape inside dst.
type canvas struct {
	z   vector.Rasterizer
	off image.Point
}

// begin prepares the rasteriser for a shape with the given bounds and
// reports whether any of it is visible.
func (c *canvas) begin(dst draw.Image, shape image.Rectangle) bool {
	clip := shape.Intersect(dst.Bounds())
	if clip.Empty() {
		return false
	}
	c.off = clip.Min
	c.z.Reset(clip.Dx(), clip.Dy())
	c.z.DrawOp = draw.Over
	return true
}

func (c *canvas) fill(dst draw.Image, col color.Color) {
	b := c.z.Bounds().Add(c.off)
	c.z.Draw(dst, b, image.NewUniform(col), image.Point{})
}

func (c *canvas) moveTo(x, y float64) {
	c.z.MoveTo(float32(x-float64(c.off.X)), float32(y-float64(c.off.Y)))
}

func (c *canvas) lineTo(x, y float64) {
	c.z.LineTo(float32(x-float64(c.off.X)), float32(y-float64(c.off.Y)))
}

func (c *canvas) cubeTo(bx, by, cx, cy, dx, dy float64) {
	ox, oy := float64(c.off.X), float64(c.off.Y)
	c.z.CubeTo(float32(bx-ox), float32(by-oy), float32(cx-ox), float32(cy-oy), float32(dx-ox), float32(dy-oy))
}

// ellipse adds a closed ellipse subpath. Reversed subpaths cut holes.
func (c *canvas) ellipse(cx, cy, rx, ry float64, reverse bool) {
	kx, ky := rx*kappa, ry*kappa
	c.moveTo(cx+rx, cy)
	if !reverse {
		c.cubeTo(cx+rx, cy+ky, cx+kx, cy+ry, cx, cy+ry)
		c.cubeTo(cx-kx, cy+ry, cx-rx, cy+ky, cx-rx, cy)
		c.cubeTo(cx-rx, cy-ky, cx-kx, cy-ry, cx, cy-ry)
		c.cubeTo(cx+kx, cy-ry, cx+rx, cy-ky, cx+rx, cy)
	} else {
		c.cubeTo(cx+rx, cy-ky, cx+kx, cy-ry, cx, cy-ry)
		c.cubeTo(cx-kx, cy-ry, cx-rx, cy-ky, cx-rx, cy)
		c.cubeTo(cx-rx, cy+ky, cx-kx, cy+ry, cx, cy+ry)
		c.cubeTo(cx+kx, cy+ry, cx+rx, cy+ky, cx+rx, cy)
	}
	c.z.ClosePath()
}

func (c *canvas) rect(r image.Rectangle) {
	c.moveTo(float64(r.Min.X), float64(r.Min.Y))
	c.lineTo(float64(r.Max.X), float64(r.Min.Y))
	c.lineTo(float64(r.Max.X), float64(r.Max.Y))
	c.lineTo(float64(r.Min.X), float64(r.Max.Y))
	c.z.ClosePath()
}

func (c *canvas) polygon(pts [][2]float64) {
	if len(pts) < 3 {
		return
	}
	c.moveTo(pts[0][0], pts[0][1])
	for _, p := range pts[1:] {
		c.lineTo(p[0], p[1])
	}
	c.z.ClosePath()
}

// fillEllipse fills an axis-aligned ellipse centred on (cx, cy).
func (c *canvas) fillEllipse(dst draw.Image, cx, cy, rx, ry float64, col color.Color) {
	if rx <= 0 || ry <= 0 {
		return
	}
	if !c.begin(dst, boundsAround(cx, cy, rx, ry)) {
		return
	}
	c.ellipse(cx, cy, rx, ry, false)
	c.fill(dst, col)
}

// strokeCircle draws a ring of the given line width centred on radius r.
func (c *canvas) strokeCircle(dst draw.Image, cx, cy, r, width float64, col color.Color) {
	if r <= 0 || width <= 0 {
		return
	}
	outer := r + width/2
	inner := r - width/2
	if !c.begin(dst, boundsAround(cx, cy, outer, outer)) {
		return
	}
	c.ellipse(cx, cy, outer, outer, false)
	if inner > 0 {
		c.ellipse(cx, cy, inner, inner, true)
	}
	c.fill(dst, col)
}

func (c *canvas) fillRect(dst draw.Image, r image.Rectangle, col color.Color) {
	if !c.begin(dst, r) {
		return
	}
	c.rect(r)
	c.fill(dst, col)
}

func (c *canvas) fillPolygon(dst draw.Image, pts [][2]float64, col color.Color) {
	if len(pts) < 3 {
		return
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p[0]), math.Max(maxX, p[0])
		minY, maxY = math.Min(minY, p[1]), math.Max(maxY, p[1])
	}
	b := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
	if !c.begin(dst, b) {
		return
	}
	c.polygon(pts)
	c.fill(dst, col)
}

func boundsAround(cx, cy, rx, ry float64) image.Rectangle {
	return image.Rect(
		int(math.Floor(cx-rx)), int(math.Floor(cy-ry)),
		int(math.Ceil(cx+rx)), int(math.Ceil(cy+ry)),
	)
}
