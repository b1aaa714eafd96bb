// Package capture copies regions of a display surface into a frame buffer
// and composites annotations onto each captured frame.
package capture

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/BAK-ZIM/camstudio/src/annotation"
	"github.com/BAK-ZIM/camstudio/src/mousehook"
	"github.com/BAK-ZIM/camstudio/src/screenshot"
	"github.com/BAK-ZIM/camstudio/src/stopwatch"
)

// DefaultMaxEventsPerFrame bounds how many mouse events one frame drains.
const DefaultMaxEventsPerFrame = 1024

var (
	// ErrCaptureFailed wraps every pixel-copy failure.
	ErrCaptureFailed = errors.New("capture failed")
	ErrClosed        = errors.New("capture source closed")
)

// Observer is the queue side of the mouse hook.
type Observer interface {
	DrainEvents(dst []mousehook.Event, max int) (int, bool)
}

// Options configures a Source.
type Options struct {
	// Display defaults to screenshot.DefaultDisplay().
	Display screenshot.Display
	Target  screenshot.Target
	// Observer defaults to mousehook.Get().
	Observer          Observer
	MaxEventsPerFrame int
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Stats summarises the captures made by a Source.
type Stats struct {
	Captures  uint64
	Failures  uint64
	TotalCopy time.Duration
	LastCopy  time.Duration
}

// AverageCopy returns the mean pixel-copy time.
func (s Stats) AverageCopy() time.Duration {
	if s.Captures == 0 {
		return 0
	}
	return s.TotalCopy / time.Duration(s.Captures)
}

// Source captures frames from one target for the lifetime of a recording.
// It is driven by a single goroutine and is not safe for concurrent use.
type Source struct {
	display screenshot.Display
	surface screenshot.Surface
	virtual screenshot.Region
	log     *slog.Logger

	front, back *screenshot.Frame
	last        screenshot.Region
	captured    bool

	annotate    bool
	annotations []annotation.Annotation
	observer    Observer
	events      []mousehook.Event
	clock       *stopwatch.Stopwatch
	cursor      image.Point

	stats  Stats
	closed bool
}

// New acquires the display surface for opts.Target and allocates the frame
// buffers for its full size.
func New(opts Options) (*Source, error) {
	if opts.Display == nil {
		opts.Display = screenshot.DefaultDisplay()
	}
	if opts.Observer == nil {
		opts.Observer = mousehook.Get()
	}
	if opts.MaxEventsPerFrame <= 0 {
		opts.MaxEventsPerFrame = DefaultMaxEventsPerFrame
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	surface, err := opts.Display.Open(opts.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture surface: %w", err)
	}
	bounds := surface.Bounds()
	if bounds.Empty() {
		_ = surface.Close()
		return nil, fmt.Errorf("capture surface has no pixels: %w", screenshot.ErrInvalidRegion)
	}

	virtual, err := opts.Display.VirtualScreen()
	if err != nil {
		log.Warn("virtual screen unavailable, using surface bounds", "err", err)
		o := surface.Origin()
		virtual = screenshot.Region{X: bounds.X + o.X, Y: bounds.Y + o.Y, Width: bounds.Width, Height: bounds.Height}
	}

	s := &Source{
		display:  opts.Display,
		surface:  surface,
		virtual:  virtual,
		log:      log,
		front:    screenshot.NewFrame(bounds.Width, bounds.Height),
		back:     screenshot.NewFrame(bounds.Width, bounds.Height),
		observer: opts.Observer,
		events:   make([]mousehook.Event, opts.MaxEventsPerFrame),
		clock:    stopwatch.NewWithClock(opts.Now),
	}
	log.Info("capture source opened", "target", opts.Target.Window, "bounds", bounds.String(), "virtual", virtual.String())
	return s, nil
}

// SourceRect returns the readable area of the target in surface coordinates.
func (s *Source) SourceRect() screenshot.Region { return s.surface.Bounds() }

// CaptureFrame copies region into the frame buffer and draws the annotations.
// On failure the previous frame and region are kept and the returned error
// wraps ErrCaptureFailed.
func (s *Source) CaptureFrame(region screenshot.Region) error {
	if s.closed {
		return ErrClosed
	}
	start := time.Now()
	if err := s.surface.Blit(s.back, region); err != nil {
		s.stats.Failures++
		return fmt.Errorf("%w: region %v: %w", ErrCaptureFailed, region, err)
	}
	d := time.Since(start)
	s.stats.Captures++
	s.stats.LastCopy = d
	s.stats.TotalCopy += d

	s.front, s.back = s.back, s.front
	s.last = region
	s.captured = true
	s.front.Width, s.front.Height = region.Width, region.Height

	s.composite(region)
	return nil
}

// Frame returns the last captured frame, or nil before the first success.
// The buffer is reused by later captures.
func (s *Source) Frame() *screenshot.Frame {
	if !s.captured {
		return nil
	}
	s.front.Width = s.last.Width
	s.front.Height = s.last.Height
	return s.front
}

// LastRegion returns the region of the last successful capture.
func (s *Source) LastRegion() (screenshot.Region, bool) { return s.last, s.captured }

// EnableAnnotations turns on compositing.
func (s *Source) EnableAnnotations() { s.annotate = true }

// AddAnnotation appends a renderer. Renderers draw in insertion order.
func (s *Source) AddAnnotation(a annotation.Annotation) {
	if a == nil {
		return
	}
	s.annotations = append(s.annotations, a)
}

// ResetClock restarts the frame clock, so time spent paused does not reach
// the renderers.
func (s *Source) ResetClock() { s.clock.Start() }

// Stats returns the capture counters.
func (s *Source) Stats() Stats { return s.stats }

// Close releases the display surface. It is safe to call more than once.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.log.Info("capture source closed", "captures", s.stats.Captures, "failures", s.stats.Failures,
		"avg_copy", s.stats.AverageCopy())
	return s.surface.Close()
}

func (s *Source) composite(region screenshot.Region) {
	if !s.annotate || len(s.annotations) == 0 {
		return
	}

	cursor := s.cursorInFrame(region)
	buttons := s.drainButtons()
	elapsed := s.clock.Lap()

	dc := annotation.DrawContext{
		Elapsed: elapsed,
		Cursor:  cursor,
		Buttons: buttons,
		Region:  region.Rect(),
		Now:     s.clock.Now(),
	}
	for _, a := range s.annotations {
		a.Draw(s.front, dc)
	}
}

func (s *Source) cursorInFrame(region screenshot.Region) image.Point {
	p, err := s.display.CursorPos()
	if err != nil {
		s.log.Debug("cursor position unavailable, reusing last", "err", err)
		p = s.cursor
	} else {
		s.cursor = p
	}
	return translateCursor(p, s.virtual, s.surface.Origin(), region)
}

// translateCursor maps a global pointer position into frame coordinates.
// Global coordinates may be negative; the virtual desktop space is not.
func translateCursor(global image.Point, virtual screenshot.Region, origin image.Point, region screenshot.Region) image.Point {
	vOrigin := image.Pt(virtual.X, virtual.Y)
	p := global.Sub(vOrigin)
	regionMin := image.Pt(region.X, region.Y).Add(origin).Sub(vOrigin)
	return p.Sub(regionMin)
}

// drainButtons folds the pending mouse events into one mask. Ordering inside
// a frame is not preserved.
func (s *Source) drainButtons() annotation.Buttons {
	n, ok := s.observer.DrainEvents(s.events, len(s.events))
	if !ok {
		return 0
	}
	var mask annotation.Buttons
	for _, ev := range s.events[:n] {
		mask |= buttonFor(ev.Action)
	}
	return mask
}

func buttonFor(a mousehook.Action) annotation.Buttons {
	switch a {
	case mousehook.LeftDown:
		return annotation.LeftDown
	case mousehook.LeftUp:
		return annotation.LeftUp
	case mousehook.RightDown:
		return annotation.RightDown
	case mousehook.RightUp:
		return annotation.RightUp
	case mousehook.MiddleDown:
		return annotation.MiddleDown
	case mousehook.MiddleUp:
		return annotation.MiddleUp
	case mousehook.Wheel:
		return annotation.Wheel
	}
	return 0
}
