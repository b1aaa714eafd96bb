// Package hookstream shares one gohook event stream between the packages
// that need global input (mouse observer, shortcuts, cursor tracking).
package hookstream

import (
	"errors"
	"image"
	"log/slog"
	"sync"

	gohook "github.com/robotn/gohook"
)

// Handler receives every event from the stream goroutine. It must not block.
type Handler func(gohook.Event)

// Source abstracts gohook.Start/End so the fan-out can be exercised without a
// display server.
type Source interface {
	Start() chan gohook.Event
	End()
}

type gohookSource struct{}

func (gohookSource) Start() chan gohook.Event { return gohook.Start() }
func (gohookSource) End()                     { gohook.End() }

// Stream fans one event channel out to subscribers. The underlying hook is
// started with the first subscriber and stopped with the last.
type Stream struct {
	src Source

	mu       sync.Mutex
	subs     map[int]Handler
	nextID   int
	running  bool
	done     chan struct{}
	cursor   image.Point
	hasMoved bool
}

var defaultStream = New(gohookSource{})

// Default returns the process-wide stream over gohook.
func Default() *Stream { return defaultStream }

// Subscribe registers h on the default stream.
func Subscribe(h Handler) (func(), error) { return defaultStream.Subscribe(h) }

// CursorPos returns the last pointer position seen on the default stream.
func CursorPos() (image.Point, bool) { return defaultStream.CursorPos() }

// New returns a stream reading from src.
func New(src Source) *Stream {
	return &Stream{src: src, subs: make(map[int]Handler)}
}

// Subscribe registers h and returns a function that removes it.
func (s *Stream) Subscribe(h Handler) (func(), error) {
	if h == nil {
		return nil, errors.New("hookstream: nil handler")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		ch := s.src.Start()
		if ch == nil {
			return nil, errors.New("hookstream: gohook.Start() returned nil channel")
		}
		s.running = true
		s.done = make(chan struct{})
		go s.dispatch(ch, s.done)
		slog.Debug("hookstream started")
	}

	id := s.nextID
	s.nextID++
	s.subs[id] = h

	var once sync.Once
	return func() { once.Do(func() { s.unsubscribe(id) }) }, nil
}

func (s *Stream) unsubscribe(id int) {
	s.mu.Lock()
	delete(s.subs, id)
	if len(s.subs) > 0 || !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	done := s.done
	s.mu.Unlock()

	s.src.End()
	<-done
	slog.Debug("hookstream stopped")
}

// CursorPos returns the last pointer position seen on the stream.
func (s *Stream) CursorPos() (image.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor, s.hasMoved
}

func (s *Stream) dispatch(ch chan gohook.Event, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("PANIC in hookstream dispatch", "panic", r)
		}
	}()

	var handlers []Handler
	for ev := range ch {
		s.mu.Lock()
		if isPointerEvent(ev.Kind) {
			s.cursor = image.Pt(int(ev.X), int(ev.Y))
			s.hasMoved = true
		}
		handlers = handlers[:0]
		for _, h := range s.subs {
			handlers = append(handlers, h)
		}
		s.mu.Unlock()

		for _, h := range handlers {
			h(ev)
		}
	}
}

func isPointerEvent(kind uint8) bool {
	switch kind {
	case gohook.MouseMove, gohook.MouseDrag, gohook.MouseHold, gohook.MouseDown, gohook.MouseUp, gohook.MouseWheel:
		return true
	}
	return false
}
