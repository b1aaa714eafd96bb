package annotation

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
	"time"
)

func blackCanvas(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	return img
}

func isBlack(c color.RGBA) bool { return c.R == 0 && c.G == 0 && c.B == 0 }

func TestClickRingRetiresAfterThreshold(t *testing.T) {
	cfg := DefaultRingConfig()
	cfg.Enabled = true
	cfg.Threshold = 100 * time.Millisecond
	cfg.Size = 20
	cfg.Width = 3
	r := NewClickRing(cfg)
	center := image.Pt(50, 50)

	r.Draw(blackCanvas(100, 100), DrawContext{Cursor: center, Buttons: LeftDown})
	if r.Active() != 1 {
		t.Fatalf("after press active = %d, want 1", r.Active())
	}

	img := blackCanvas(100, 100)
	r.Draw(img, DrawContext{Elapsed: 120 * time.Millisecond, Cursor: image.Pt(10, 10)})
	if r.Active() != 1 {
		t.Fatalf("ring retired on the frame it completed")
	}
	if c := img.RGBAAt(center.X+20, center.Y); c.R < 100 || c.G > 10 {
		t.Errorf("full-size ring not drawn at radius 20: %v", c)
	}
	if c := img.RGBAAt(center.X, center.Y); !isBlack(c) {
		t.Errorf("ring centre painted: %v", c)
	}

	r.Draw(blackCanvas(100, 100), DrawContext{Elapsed: 16 * time.Millisecond})
	if r.Active() != 0 {
		t.Fatalf("completed ring still active: %d", r.Active())
	}
}

func TestClickRingRadiusMonotonic(t *testing.T) {
	cfg := DefaultRingConfig()
	cfg.Threshold = 100 * time.Millisecond
	cfg.Size = 20
	r := NewClickRing(cfg)

	prev := -1.0
	for _, age := range []time.Duration{0, 10 * time.Millisecond, 50 * time.Millisecond, 100 * time.Millisecond, 400 * time.Millisecond} {
		got := r.radius(age)
		if got < prev {
			t.Fatalf("radius(%v) = %v shrank from %v", age, got, prev)
		}
		if got > cfg.Size {
			t.Fatalf("radius(%v) = %v exceeds size", age, got)
		}
		prev = got
	}
	if r.radius(50*time.Millisecond) != 10 {
		t.Errorf("radius(50ms) = %v, want 10", r.radius(50*time.Millisecond))
	}
}

func TestClickRingsCoexist(t *testing.T) {
	cfg := DefaultRingConfig()
	cfg.Enabled = true
	r := NewClickRing(cfg)
	img := blackCanvas(64, 64)

	r.Draw(img, DrawContext{Cursor: image.Pt(10, 10), Buttons: LeftDown | RightDown})
	if r.Active() != 2 {
		t.Fatalf("active = %d, want 2", r.Active())
	}
	r.Draw(img, DrawContext{Elapsed: 40 * time.Millisecond, Cursor: image.Pt(30, 30), Buttons: MiddleDown | LeftUp})
	if r.Active() != 3 {
		t.Fatalf("active = %d, want 3", r.Active())
	}
}

func TestClickRingDisabledDrawsNothing(t *testing.T) {
	r := NewClickRing(DefaultRingConfig())
	img := blackCanvas(32, 32)
	r.Draw(img, DrawContext{Cursor: image.Pt(16, 16), Buttons: LeftDown})
	r.Draw(img, DrawContext{Elapsed: 50 * time.Millisecond, Cursor: image.Pt(16, 16)})
	if r.Active() != 0 {
		t.Fatal("disabled renderer spawned rings")
	}
	for i := range img.Pix {
		if i%4 != 3 && img.Pix[i] != 0 {
			t.Fatal("disabled renderer painted pixels")
		}
	}
}

func TestCursorHaloFollowsButtons(t *testing.T) {
	cfg := DefaultCursorConfig()
	cfg.Enabled = false
	cfg.HaloEnabled = true
	cfg.ClickEnabled = true
	cfg.HaloSize = 20
	c := NewCursor(cfg)
	at := image.Pt(30, 30)

	img := blackCanvas(60, 60)
	c.Draw(img, DrawContext{Cursor: at, Buttons: LeftDown})
	if px := img.RGBAAt(at.X, at.Y); px.R < 100 || px.G > 10 || px.B > 10 {
		t.Fatalf("held left button halo = %v, want red", px)
	}
	if c.Held() != LeftDown {
		t.Fatalf("held = %b", c.Held())
	}

	img = blackCanvas(60, 60)
	c.Draw(img, DrawContext{Cursor: at})
	if px := img.RGBAAt(at.X, at.Y); px.R < 100 || px.G > 10 {
		t.Fatalf("halo lost highlight while held: %v", px)
	}

	img = blackCanvas(60, 60)
	c.Draw(img, DrawContext{Cursor: at, Buttons: LeftUp})
	if c.Held() != 0 {
		t.Fatalf("release not applied, held = %b", c.Held())
	}

	img = blackCanvas(60, 60)
	c.Draw(img, DrawContext{Cursor: at})
	if px := img.RGBAAt(at.X, at.Y); px.R < 100 || px.G < 100 || px.B > px.G {
		t.Fatalf("idle halo = %v, want yellow", px)
	}
	if px := img.RGBAAt(at.X+15, at.Y); !isBlack(px) {
		t.Fatalf("halo larger than its size: %v", px)
	}
}

func TestCursorPressAndReleaseInOneFrame(t *testing.T) {
	cfg := DefaultCursorConfig()
	cfg.Enabled = false
	cfg.ClickEnabled = true
	cfg.HaloSize = 10
	c := NewCursor(cfg)
	at := image.Pt(8, 8)

	img := blackCanvas(16, 16)
	c.Draw(img, DrawContext{Cursor: at, Buttons: RightDown | RightUp})
	if px := img.RGBAAt(at.X, at.Y); px.B < 100 || px.R > 10 {
		t.Fatalf("click frame not highlighted blue: %v", px)
	}
	if c.Held() != 0 {
		t.Fatalf("held = %b after click", c.Held())
	}

	img = blackCanvas(16, 16)
	c.Draw(img, DrawContext{Cursor: at})
	if px := img.RGBAAt(at.X, at.Y); !isBlack(px) {
		t.Fatalf("highlight persisted after click: %v", px)
	}
}

func TestCursorReleaseAndRepressKeepsHighlight(t *testing.T) {
	cfg := DefaultCursorConfig()
	cfg.Enabled = false
	cfg.ClickEnabled = true
	cfg.HaloSize = 10
	c := NewCursor(cfg)
	at := image.Pt(8, 8)

	c.Draw(blackCanvas(16, 16), DrawContext{Cursor: at, Buttons: LeftDown})
	c.Draw(blackCanvas(16, 16), DrawContext{Cursor: at, Buttons: LeftDown | LeftUp})
	if c.Held() != LeftDown {
		t.Fatalf("held = %b after release and re-press", c.Held())
	}

	img := blackCanvas(16, 16)
	c.Draw(img, DrawContext{Cursor: at})
	if px := img.RGBAAt(at.X, at.Y); px.R < 100 || px.G > 10 {
		t.Fatalf("halo lost highlight after re-press: %v", px)
	}

	c.Draw(blackCanvas(16, 16), DrawContext{Cursor: at, Buttons: LeftUp})
	if c.Held() != 0 {
		t.Fatalf("held = %b after final release", c.Held())
	}
}

func TestCursorPointerDrawn(t *testing.T) {
	c := NewCursor(DefaultCursorConfig())
	img := blackCanvas(40, 40)
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 0, G: 128, B: 0, A: 255}), image.Point{}, draw.Src)
	c.Draw(img, DrawContext{Cursor: image.Pt(5, 5)})
	if px := img.RGBAAt(8, 15); px.R < 200 || px.G < 200 || px.B < 200 {
		t.Errorf("pointer body = %v, want white", px)
	}
	if px := img.RGBAAt(30, 30); px.G != 128 {
		t.Errorf("pixel away from the pointer changed: %v", px)
	}
}

func TestCursorClippedAtEdges(t *testing.T) {
	cfg := DefaultCursorConfig()
	cfg.HaloEnabled = true
	c := NewCursor(cfg)
	img := blackCanvas(20, 20)
	for _, p := range []image.Point{{-30, -30}, {0, 0}, {19, 19}, {500, 3}} {
		c.Draw(img, DrawContext{Cursor: p})
	}
}

func TestHaloShapes(t *testing.T) {
	for _, shape := range []HaloShape{ShapeCircle, ShapeEllipse, ShapeSquare, ShapeRectangle} {
		t.Run(shape.String(), func(t *testing.T) {
			cfg := DefaultCursorConfig()
			cfg.Enabled = false
			cfg.HaloEnabled = true
			cfg.HaloShape = shape
			cfg.HaloSize = 30
			c := NewCursor(cfg)
			img := blackCanvas(60, 60)
			c.Draw(img, DrawContext{Cursor: image.Pt(30, 30)})
			if px := img.RGBAAt(30, 30); isBlack(px) {
				t.Fatal("halo centre not painted")
			}
			if px := img.RGBAAt(30, 2); !isBlack(px) {
				t.Fatalf("halo exceeded its bounds: %v", px)
			}

			parsed, err := ParseHaloShape(shape.String())
			if err != nil || parsed != shape {
				t.Fatalf("ParseHaloShape(%q) = %v, %v", shape.String(), parsed, err)
			}
		})
	}
	if _, err := ParseHaloShape("star"); err == nil {
		t.Error("expected error for unknown shape")
	}
}

func TestTimestampElapsed(t *testing.T) {
	cfg := DefaultTimestampConfig()
	cfg.Enabled = true
	cfg.Format = FormatElapsed
	ts := NewTimestamp(cfg)

	img := blackCanvas(200, 60)
	ts.Draw(img, DrawContext{Elapsed: 1500 * time.Millisecond})
	if got := formatElapsed(ts.elapsed); got != "00:00:01.500" {
		t.Fatalf("elapsed = %q", got)
	}

	white := 0
	for y := 0; y < 30; y++ {
		for x := 0; x < 120; x++ {
			if px := img.RGBAAt(x, y); px.R > 200 && px.G > 200 && px.B > 200 {
				white++
			}
		}
	}
	if white == 0 {
		t.Fatal("no text pixels drawn in the top-left corner")
	}
	if px := img.RGBAAt(190, 50); !isBlack(px) {
		t.Fatalf("pixel outside the timestamp box changed: %v", px)
	}
}

func TestTimestampWallClock(t *testing.T) {
	cfg := DefaultTimestampConfig()
	cfg.Layout = "15:04:05"
	ts := NewTimestamp(cfg)
	now := time.Date(2024, 5, 1, 13, 7, 9, 0, time.UTC)
	if got := ts.text(DrawContext{Now: now}); got != "13:07:09" {
		t.Fatalf("text = %q", got)
	}
}

func TestTimestampPlacement(t *testing.T) {
	b := image.Rect(0, 0, 640, 480)
	tests := []struct {
		anchor Anchor
		want   image.Point
	}{
		{TopLeft, image.Pt(8, 8)},
		{TopRight, image.Pt(640-8-100, 8)},
		{BottomLeft, image.Pt(8, 480-8-20)},
		{BottomRight, image.Pt(640-8-100, 480-8-20)},
	}
	for _, tt := range tests {
		cfg := DefaultTimestampConfig()
		cfg.Anchor = tt.anchor
		got := NewTimestamp(cfg).place(b, 100, 20)
		if got.Min != tt.want || got.Dx() != 100 || got.Dy() != 20 {
			t.Errorf("anchor %d: box = %v, want min %v", tt.anchor, got, tt.want)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	d := time.Hour + 2*time.Minute + 3*time.Second + 4*time.Millisecond
	if got := formatElapsed(d); got != "01:02:03.004" {
		t.Fatalf("formatElapsed = %q", got)
	}
}

func TestParseAnchorAndFormat(t *testing.T) {
	for in, want := range map[string]Anchor{"top-left": TopLeft, "TopRight": TopRight, "bottom_left": BottomLeft, "bottom right": BottomRight} {
		got, err := ParseAnchor(in)
		if err != nil || got != want {
			t.Errorf("ParseAnchor(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseAnchor("middle"); err == nil {
		t.Error("expected error for unknown anchor")
	}
	if f, err := ParseTimestampFormat("elapsed"); err != nil || f != FormatElapsed {
		t.Errorf("ParseTimestampFormat(elapsed) = %v, %v", f, err)
	}
}

func TestBuildOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Ring.Enabled = true
	cfg.Timestamp.Enabled = true
	got := Build(cfg)
	want := []Kind{KindClickRing, KindCursor, KindTimestamp}
	if len(got) != len(want) {
		t.Fatalf("built %d annotations, want %d", len(got), len(want))
	}
	for i, a := range got {
		if a.Kind() != want[i] {
			t.Errorf("annotation %d kind = %v, want %v", i, a.Kind(), want[i])
		}
	}

	cfg = DefaultConfig()
	cfg.Cursor.Enabled = false
	if n := len(Build(cfg)); n != 0 {
		t.Errorf("all disabled built %d annotations", n)
	}
}

func TestButtonsHelpers(t *testing.T) {
	b := LeftDown | RightUp | Wheel
	if b.Downs() != LeftDown || b.Ups() != RightUp || b.Released() != RightDown {
		t.Fatalf("downs=%b ups=%b released=%b", b.Downs(), b.Ups(), b.Released())
	}
	if !b.Has(Wheel) || b.Has(MiddleDown) || b.Has(0) {
		t.Fatal("Has mismatch")
	}
	if ARGB(0xa0ff0000) != (color.NRGBA{R: 0xff, A: 0xa0}) {
		t.Fatal("ARGB conversion")
	}
}
