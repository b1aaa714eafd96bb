package annotation

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// TimestampFormat selects the clock shown by the timestamp.
type TimestampFormat uint8

const (
	// FormatWallClock prints the local time of the frame.
	FormatWallClock TimestampFormat = iota
	// FormatElapsed prints the recording time accumulated from frame deltas.
	FormatElapsed
)

// ParseTimestampFormat accepts "wallclock" and "elapsed".
func ParseTimestampFormat(s string) (TimestampFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wallclock", "wall", "clock":
		return FormatWallClock, nil
	case "elapsed":
		return FormatElapsed, nil
	}
	return FormatWallClock, fmt.Errorf("unknown timestamp format %q", s)
}

// Anchor is the frame corner the timestamp is attached to.
type Anchor uint8

const (
	TopLeft Anchor = iota
	TopRight
	BottomLeft
	BottomRight
)

// ParseAnchor accepts names like "top-left" or "bottomright".
func ParseAnchor(s string) (Anchor, error) {
	switch strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(s)) {
	case "topleft":
		return TopLeft, nil
	case "topright":
		return TopRight, nil
	case "bottomleft":
		return BottomLeft, nil
	case "bottomright":
		return BottomRight, nil
	}
	return TopLeft, fmt.Errorf("unknown anchor %q", s)
}

// TimestampConfig controls the timestamp overlay.
type TimestampConfig struct {
	Enabled bool
	Format  TimestampFormat
	// Layout is a time.Format layout used by FormatWallClock.
	Layout     string
	Anchor     Anchor
	Margin     int
	Color      color.NRGBA
	Background color.NRGBA
}

// DefaultTimestampConfig returns the stock timestamp settings.
func DefaultTimestampConfig() TimestampConfig {
	return TimestampConfig{
		Format:     FormatWallClock,
		Layout:     "2006-01-02 15:04:05",
		Anchor:     TopLeft,
		Margin:     8,
		Color:      ARGB(0xffffffff),
		Background: ARGB(0xa0000000),
	}
}

const textPadding = 3

// Timestamp prints a clock in a corner of the frame.
type Timestamp struct {
	cfg     TimestampConfig
	elapsed time.Duration
	face    font.Face
	cv      canvas
}

// NewTimestamp returns a timestamp renderer using the built-in 7x13 face.
func NewTimestamp(cfg TimestampConfig) *Timestamp {
	if cfg.Layout == "" {
		cfg.Layout = DefaultTimestampConfig().Layout
	}
	if cfg.Margin < 0 {
		cfg.Margin = 0
	}
	return &Timestamp{cfg: cfg, face: basicfont.Face7x13}
}

func (t *Timestamp) Kind() Kind { return KindTimestamp }

// text returns the string drawn for dc and advances the elapsed clock.
func (t *Timestamp) text(dc DrawContext) string {
	if t.cfg.Format == FormatElapsed {
		t.elapsed += dc.Elapsed
		return formatElapsed(t.elapsed)
	}
	now := dc.Now
	if now.IsZero() {
		now = time.Now()
	}
	return now.Format(t.cfg.Layout)
}

func (t *Timestamp) Draw(dst draw.Image, dc DrawContext) {
	if !t.cfg.Enabled {
		return
	}
	s := t.text(dc)

	d := &font.Drawer{Dst: dst, Src: image.NewUniform(t.cfg.Color), Face: t.face}
	m := t.face.Metrics()
	w := d.MeasureString(s).Ceil()
	h := (m.Ascent + m.Descent).Ceil()

	box := t.place(dst.Bounds(), w+2*textPadding, h+2*textPadding)
	if t.cfg.Background.A > 0 {
		t.cv.fillRect(dst, box, t.cfg.Background)
	}
	d.Dot = fixed.Point26_6{
		X: fixed.I(box.Min.X + textPadding),
		Y: fixed.I(box.Min.Y+textPadding) + m.Ascent,
	}
	d.DrawString(s)
}

// place positions a w x h box at the configured corner of b.
func (t *Timestamp) place(b image.Rectangle, w, h int) image.Rectangle {
	m := t.cfg.Margin
	var p image.Point
	switch t.cfg.Anchor {
	case TopRight:
		p = image.Pt(b.Max.X-m-w, b.Min.Y+m)
	case BottomLeft:
		p = image.Pt(b.Min.X+m, b.Max.Y-m-h)
	case BottomRight:
		p = image.Pt(b.Max.X-m-w, b.Max.Y-m-h)
	default:
		p = image.Pt(b.Min.X+m, b.Min.Y+m)
	}
	return image.Rectangle{Min: p, Max: p.Add(image.Pt(w, h))}
}

func formatElapsed(d time.Duration) string {
	d = d.Truncate(time.Millisecond)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return fmt.Sprintf("%02d:%02d:%02d.%03d", int64(h), int64(m), int64(s), int64(d/time.Millisecond))
}
