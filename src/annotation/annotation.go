// Package annotation draws overlays onto captured frames: a cursor halo with
// click highlighting, expanding click rings and a timestamp.
//
// Renderers are driven once per captured frame by the capture source with a
// freshly built DrawContext. They keep their own animation state between
// frames and are not safe for concurrent use.
package annotation

import (
	"image"
	"image/color"
	"image/draw"
	"time"
)

// Buttons is the set of mouse actions observed since the previous frame.
// Several events of the same kind within one frame collapse into one bit.
type Buttons uint16

const (
	LeftDown Buttons = 1 << iota
	LeftUp
	RightDown
	RightUp
	MiddleDown
	MiddleUp
	Wheel
)

// Has reports whether every bit of x is set.
func (b Buttons) Has(x Buttons) bool { return b&x == x && x != 0 }

// Downs returns only the button-press bits.
func (b Buttons) Downs() Buttons { return b & (LeftDown | RightDown | MiddleDown) }

// Ups returns only the button-release bits.
func (b Buttons) Ups() Buttons { return b & (LeftUp | RightUp | MiddleUp) }

// Released maps each release bit onto the matching press bit.
func (b Buttons) Released() Buttons { return b.Ups() >> 1 }

// DrawContext carries the per-frame inputs to every renderer.
type DrawContext struct {
	// Elapsed is the time since the previous annotation pass.
	Elapsed time.Duration
	// Cursor is the pointer position in frame coordinates.
	Cursor image.Point
	// Buttons holds the actions drained for this frame.
	Buttons Buttons
	// Region is the captured area in surface coordinates.
	Region image.Rectangle
	// Now is the wall-clock time of the pass.
	Now time.Time
}

// Kind names a renderer variant.
type Kind uint8

const (
	KindCursor Kind = iota + 1
	KindClickRing
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindCursor:
		return "cursor"
	case KindClickRing:
		return "click-ring"
	case KindTimestamp:
		return "timestamp"
	}
	return "unknown"
}

// Annotation draws one overlay. Draw must tolerate any DrawContext; disabled
// renderers draw nothing.
type Annotation interface {
	Kind() Kind
	Draw(dst draw.Image, dc DrawContext)
}

// Config groups the settings of every renderer.
type Config struct {
	Cursor    CursorConfig
	Ring      RingConfig
	Timestamp TimestampConfig
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		Cursor:    DefaultCursorConfig(),
		Ring:      DefaultRingConfig(),
		Timestamp: DefaultTimestampConfig(),
	}
}

// Build returns the enabled renderers in drawing order: rings below the
// cursor, the timestamp on top.
func Build(cfg Config) []Annotation {
	var out []Annotation
	if cfg.Ring.Enabled {
		out = append(out, NewClickRing(cfg.Ring))
	}
	if cfg.Cursor.Enabled || cfg.Cursor.HaloEnabled || cfg.Cursor.ClickEnabled {
		out = append(out, NewCursor(cfg.Cursor))
	}
	if cfg.Timestamp.Enabled {
		out = append(out, NewTimestamp(cfg.Timestamp))
	}
	return out
}

// ARGB converts a 0xAARRGGBB value to a colour.
func ARGB(v uint32) color.NRGBA {
	return color.NRGBA{A: uint8(v >> 24), R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}
}
