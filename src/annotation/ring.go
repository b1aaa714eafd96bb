package annotation

import (
	"image"
	"image/color"
	"image/draw"
	"time"
)

// RingConfig controls click rings.
type RingConfig struct {
	Enabled bool
	// Threshold is the lifetime of a ring. It reaches Size at this age.
	Threshold   time.Duration
	Size        float64
	Width       float64
	LeftColor   color.NRGBA
	RightColor  color.NRGBA
	MiddleColor color.NRGBA
}

// DefaultRingConfig returns the stock ring settings.
func DefaultRingConfig() RingConfig {
	return RingConfig{
		Threshold:   100 * time.Millisecond,
		Size:        20,
		Width:       1.5,
		LeftColor:   ARGB(0xa0ff0000),
		RightColor:  ARGB(0xa00000ff),
		MiddleColor: ARGB(0xa000ff00),
	}
}

type ring struct {
	center image.Point
	col    color.NRGBA
	age    time.Duration
	done   bool
}

// ClickRing spawns an expanding ring at the cursor for every button press.
// A ring that reaches its threshold is drawn once at full size and removed on
// the following frame.
type ClickRing struct {
	cfg   RingConfig
	rings []ring
	cv    canvas
}

// NewClickRing returns a ring renderer.
func NewClickRing(cfg RingConfig) *ClickRing {
	def := DefaultRingConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Size <= 0 {
		cfg.Size = def.Size
	}
	if cfg.Width <= 0 {
		cfg.Width = def.Width
	}
	return &ClickRing{cfg: cfg}
}

func (r *ClickRing) Kind() Kind { return KindClickRing }

// Active returns the number of live rings.
func (r *ClickRing) Active() int { return len(r.rings) }

func (r *ClickRing) Draw(dst draw.Image, dc DrawContext) {
	if !r.cfg.Enabled {
		return
	}

	live := r.rings[:0]
	for _, rg := range r.rings {
		if !rg.done {
			live = append(live, rg)
		}
	}
	r.rings = live

	for i := range r.rings {
		r.rings[i].age += dc.Elapsed
		if r.rings[i].age >= r.cfg.Threshold {
			r.rings[i].done = true
		}
	}

	for _, b := range []struct {
		bit Buttons
		col color.NRGBA
	}{
		{LeftDown, r.cfg.LeftColor},
		{RightDown, r.cfg.RightColor},
		{MiddleDown, r.cfg.MiddleColor},
	} {
		if dc.Buttons&b.bit != 0 {
			r.rings = append(r.rings, ring{center: dc.Cursor, col: b.col})
		}
	}

	for _, rg := range r.rings {
		r.cv.strokeCircle(dst, float64(rg.center.X), float64(rg.center.Y), r.radius(rg.age), r.cfg.Width, rg.col)
	}
}

// radius grows linearly with age and stops at Size.
func (r *ClickRing) radius(age time.Duration) float64 {
	p := float64(age) / float64(r.cfg.Threshold)
	if p > 1 {
		p = 1
	}
	return r.cfg.Size * p
}
