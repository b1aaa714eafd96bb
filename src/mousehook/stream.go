package mousehook

import (
	"image"
	"sync"
	"time"

	gohook "github.com/robotn/gohook"

	"github.com/BAK-ZIM/camstudio/src/hookstream"
)

// gohook reuses the libuiohook event numbering: MouseHold is a press and
// MouseDown a release. MouseUp is the synthesised click and is ignored.
const (
	buttonLeft   = 1
	buttonRight  = 2
	buttonMiddle = 3
)

// streamBackend feeds the hook from the shared gohook stream.
type streamBackend struct {
	stream *hookstream.Stream

	mu    sync.Mutex
	unsub func()
}

func newStreamBackend(s *hookstream.Stream) *streamBackend {
	return &streamBackend{stream: s}
}

func (b *streamBackend) install(sink func(Event)) error {
	unsub, err := b.stream.Subscribe(func(ev gohook.Event) {
		if e, ok := fromHookEvent(ev); ok {
			sink(e)
		}
	})
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.unsub = unsub
	b.mu.Unlock()
	return nil
}

func (b *streamBackend) uninstall() {
	b.mu.Lock()
	unsub := b.unsub
	b.unsub = nil
	b.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// fromHookEvent maps a gohook event to a recorded action.
func fromHookEvent(ev gohook.Event) (Event, bool) {
	var a Action
	switch ev.Kind {
	case gohook.MouseHold:
		a = buttonAction(ev.Button, true)
	case gohook.MouseDown:
		a = buttonAction(ev.Button, false)
	case gohook.MouseWheel:
		a = Wheel
	}
	if a == 0 {
		return Event{}, false
	}
	when := ev.When
	if when.IsZero() {
		when = time.Now()
	}
	return Event{Point: image.Pt(int(ev.X), int(ev.Y)), Action: a, Time: when}, true
}

func buttonAction(button uint16, down bool) Action {
	switch button {
	case buttonLeft:
		if down {
			return LeftDown
		}
		return LeftUp
	case buttonRight:
		if down {
			return RightDown
		}
		return RightUp
	case buttonMiddle:
		if down {
			return MiddleDown
		}
		return MiddleUp
	}
	return 0
}
