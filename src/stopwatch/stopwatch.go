package stopwatch

import "time"

// Stopwatch measures the time between successive annotation passes.
// It is owned by a single capture goroutine and is not safe for concurrent use.
type Stopwatch struct {
	now   func() time.Time
	start time.Time
}

// New returns a running stopwatch.
func New() *Stopwatch {
	return NewWithClock(time.Now)
}

// NewWithClock returns a running stopwatch reading time from now.
func NewWithClock(now func() time.Time) *Stopwatch {
	if now == nil {
		now = time.Now
	}
	s := &Stopwatch{now: now}
	s.Start()
	return s
}

// Start (re)starts the measurement from the current instant.
func (s *Stopwatch) Start() {
	s.start = s.now()
}

// Elapsed returns the time since the last Start without restarting.
func (s *Stopwatch) Elapsed() time.Duration {
	d := s.now().Sub(s.start)
	if d < 0 {
		return 0
	}
	return d
}

// Lap returns the time since the last Start and restarts the measurement.
func (s *Stopwatch) Lap() time.Duration {
	t := s.now()
	d := t.Sub(s.start)
	s.start = t
	if d < 0 {
		return 0
	}
	return d
}

// Now reads the stopwatch clock.
func (s *Stopwatch) Now() time.Time { return s.now() }
