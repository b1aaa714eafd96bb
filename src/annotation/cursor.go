package annotation

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
)

// HaloShape is the outline of the cursor halo.
type HaloShape uint8

const (
	ShapeCircle HaloShape = iota
	ShapeEllipse
	ShapeSquare
	ShapeRectangle
)

func (s HaloShape) String() string {
	switch s {
	case ShapeCircle:
		return "circle"
	case ShapeEllipse:
		return "ellipse"
	case ShapeSquare:
		return "square"
	case ShapeRectangle:
		return "rectangle"
	}
	return fmt.Sprintf("shape(%d)", uint8(s))
}

// ParseHaloShape accepts the names returned by HaloShape.String.
func ParseHaloShape(s string) (HaloShape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "circle":
		return ShapeCircle, nil
	case "ellipse":
		return ShapeEllipse, nil
	case "square":
		return ShapeSquare, nil
	case "rectangle", "rect":
		return ShapeRectangle, nil
	}
	return ShapeCircle, fmt.Errorf("unknown halo shape %q", s)
}

// CursorConfig controls the cursor renderer.
type CursorConfig struct {
	// Enabled draws a pointer arrow at the cursor position.
	Enabled      bool
	HaloEnabled  bool
	HaloShape    HaloShape
	HaloSize     int
	HaloColor    color.NRGBA
	ClickEnabled bool
	LeftColor    color.NRGBA
	RightColor   color.NRGBA
	MiddleColor  color.NRGBA
}

// DefaultCursorConfig returns the stock cursor settings.
func DefaultCursorConfig() CursorConfig {
	return CursorConfig{
		Enabled:     true,
		HaloShape:   ShapeCircle,
		HaloSize:    100,
		HaloColor:   ARGB(0xa0ffff80),
		LeftColor:   ARGB(0xa0ff0000),
		RightColor:  ARGB(0xa00000ff),
		MiddleColor: ARGB(0xa000ff00),
	}
}

// Cursor draws the halo and pointer. A pressed button recolours the halo
// until its release is observed. When one frame carries both edges for a
// button, a button that was already held is taken as released and pressed
// again and stays held; otherwise the frame is a click and the button is
// cleared after drawing.
type Cursor struct {
	cfg  CursorConfig
	held Buttons
	cv   canvas
}

// NewCursor returns a cursor renderer.
func NewCursor(cfg CursorConfig) *Cursor {
	if cfg.HaloSize <= 0 {
		cfg.HaloSize = DefaultCursorConfig().HaloSize
	}
	return &Cursor{cfg: cfg}
}

func (c *Cursor) Kind() Kind { return KindCursor }

// Held returns the buttons currently considered pressed.
func (c *Cursor) Held() Buttons { return c.held }

func (c *Cursor) Draw(dst draw.Image, dc DrawContext) {
	// a press and release inside one frame still highlights that frame
	b := dc.Buttons
	repressed := c.held & b.Downs() & b.Released()
	c.held |= b.Downs()
	defer func() { c.held = c.held&^b.Released() | repressed }()

	if !c.cfg.Enabled && !c.cfg.HaloEnabled && !c.cfg.ClickEnabled {
		return
	}

	col, highlighted := c.clickColor()
	switch {
	case c.cfg.ClickEnabled && highlighted:
		c.drawHalo(dst, dc.Cursor, col)
	case c.cfg.HaloEnabled:
		c.drawHalo(dst, dc.Cursor, c.cfg.HaloColor)
	}

	if c.cfg.Enabled {
		c.drawPointer(dst, dc.Cursor)
	}
}

// clickColor picks the colour of the highest-priority held button.
func (c *Cursor) clickColor() (color.NRGBA, bool) {
	switch {
	case c.held&LeftDown != 0:
		return c.cfg.LeftColor, true
	case c.held&RightDown != 0:
		return c.cfg.RightColor, true
	case c.held&MiddleDown != 0:
		return c.cfg.MiddleColor, true
	}
	return color.NRGBA{}, false
}

func (c *Cursor) drawHalo(dst draw.Image, at image.Point, col color.NRGBA) {
	size := float64(c.cfg.HaloSize)
	cx, cy := float64(at.X), float64(at.Y)
	switch c.cfg.HaloShape {
	case ShapeEllipse:
		c.cv.fillEllipse(dst, cx, cy, size/2, size/3, col)
	case ShapeSquare:
		half := c.cfg.HaloSize / 2
		c.cv.fillRect(dst, image.Rect(at.X-half, at.Y-half, at.X+half, at.Y+half), col)
	case ShapeRectangle:
		hw, hh := c.cfg.HaloSize/2, c.cfg.HaloSize/3
		c.cv.fillRect(dst, image.Rect(at.X-hw, at.Y-hh, at.X+hw, at.Y+hh), col)
	default:
		c.cv.fillEllipse(dst, cx, cy, size/2, size/2, col)
	}
}

// arrow is a standard pointer outline with the hotspot at (0,0).
var arrow = [][2]float64{
	{0, 0}, {0, 17}, {4, 13}, {7, 20}, {10, 19}, {7, 12}, {12, 12},
}

func (c *Cursor) drawPointer(dst draw.Image, at image.Point) {
	outline := make([][2]float64, len(arrow))
	inner := make([][2]float64, len(arrow))
	ox, oy := float64(at.X), float64(at.Y)
	for i, p := range arrow {
		outline[i] = [2]float64{ox + p[0], oy + p[1]}
		inner[i] = [2]float64{ox + 1.2 + p[0]*0.78, oy + 2.4 + p[1]*0.78}
	}
	c.cv.fillPolygon(dst, outline, color.Black)
	c.cv.fillPolygon(dst, inner, color.White)
}
