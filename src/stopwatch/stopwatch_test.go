package stopwatch

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestLapRestarts(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	s := NewWithClock(clk.now)

	clk.t = clk.t.Add(40 * time.Millisecond)
	if got := s.Lap(); got != 40*time.Millisecond {
		t.Fatalf("first lap = %v, want 40ms", got)
	}
	clk.t = clk.t.Add(25 * time.Millisecond)
	if got := s.Elapsed(); got != 25*time.Millisecond {
		t.Fatalf("elapsed = %v, want 25ms", got)
	}
	if got := s.Lap(); got != 25*time.Millisecond {
		t.Fatalf("second lap = %v, want 25ms", got)
	}
}

func TestClockGoingBackwardsClampsToZero(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	s := NewWithClock(clk.now)
	clk.t = clk.t.Add(-time.Second)
	if got := s.Lap(); got != 0 {
		t.Fatalf("lap = %v, want 0", got)
	}
}
