package hotkey

import (
	"errors"
	"testing"
	"time"

	"github.com/BAK-ZIM/camstudio/src/hookstream"
	"github.com/BAK-ZIM/camstudio/src/logutil"
	gohook "github.com/robotn/gohook"
)

const (
	vkLControl = 162
	vkLShift   = 160
	vkF9       = 120
	vkF10      = 121
)

func down(code uint16) gohook.Event { return gohook.Event{Kind: gohook.KeyHold, Rawcode: code} }
func up(code uint16) gohook.Event   { return gohook.Event{Kind: gohook.KeyUp, Rawcode: code} }

func TestComboFiresOnce(t *testing.T) {
	l := New(logutil.Discard())
	fired := 0
	if err := l.Register("record", "Ctrl+Shift+F9", func() { fired++ }); err != nil {
		t.Fatalf("Register: %v", err)
	}

	for _, ev := range []gohook.Event{down(vkLControl), down(vkLShift), down(vkF9)} {
		l.handle(ev)
	}
	if fired != 1 {
		t.Fatalf("fired %d times, want 1", fired)
	}

	// Auto-repeat of the last key must not fire again.
	l.handle(down(vkF9))
	if fired != 1 {
		t.Fatalf("fired %d times after repeat, want 1", fired)
	}
}

func TestComboNeedsAllKeys(t *testing.T) {
	l := New(logutil.Discard())
	fired := 0
	_ = l.Register("record", "Ctrl+Shift+F9", func() { fired++ })

	l.handle(down(vkLControl))
	l.handle(up(vkLControl))
	l.handle(down(vkLShift))
	l.handle(down(vkF9))
	if fired != 0 {
		t.Fatalf("fired without ctrl held")
	}
}

func TestSeparateCombos(t *testing.T) {
	l := New(logutil.Discard())
	var got []string
	_ = l.Register("record", "Ctrl+Shift+F9", func() { got = append(got, "record") })
	_ = l.Register("stop", "Ctrl+Shift+F10", func() { got = append(got, "stop") })

	for _, ev := range []gohook.Event{down(vkLControl), down(vkLShift), down(vkF10)} {
		l.handle(ev)
	}
	if len(got) != 1 || got[0] != "stop" {
		t.Fatalf("fired %v, want [stop]", got)
	}
}

func TestRegisterRejectsUnknownKeys(t *testing.T) {
	l := New(logutil.Discard())
	if err := l.Register("bad", "Hyper+Meh", nil); !errors.Is(err, ErrNoKeys) {
		t.Fatalf("err = %v, want ErrNoKeys", err)
	}
}

type chanSource struct{ ch chan gohook.Event }

func (s *chanSource) Start() chan gohook.Event {
	s.ch = make(chan gohook.Event, 8)
	return s.ch
}
func (s *chanSource) End() { close(s.ch) }

func TestListenerOverStream(t *testing.T) {
	src := &chanSource{}
	stream := hookstream.New(src)
	l := New(logutil.Discard())
	fired := make(chan struct{}, 1)
	_ = l.Register("stop", "Ctrl+F10", func() { fired <- struct{}{} })

	if err := l.Start(stream); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := l.Start(stream); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	src.ch <- down(vkLControl)
	src.ch <- down(vkF10)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("hotkey not delivered through the stream")
	}
	l.Stop()
	l.Stop()
}
