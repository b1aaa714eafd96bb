// Package mousehook observes system-wide mouse button and wheel activity.
//
// The operating system delivers events on its own callback thread. They are
// appended to a FIFO queue guarded by a single mutex and drained by the
// capture goroutine once per frame. Pointer movement is never queued; the
// capture side samples the cursor position directly.
package mousehook

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ShrinkThreshold is the queue capacity above which a drain releases the
// unused storage.
const ShrinkThreshold = 10000

const defaultWatchdogInterval = 500 * time.Millisecond

var (
	// ErrAlreadyAttached is returned by Attach when the hook is installed.
	ErrAlreadyAttached = errors.New("mousehook: already attached")
	// ErrUnsupported is returned when the platform has no global mouse hook.
	ErrUnsupported = errors.New("mousehook: global mouse hook not supported on this platform")
)

// Action identifies the kind of a recorded mouse event.
type Action uint8

const (
	LeftDown Action = iota + 1
	LeftUp
	RightDown
	RightUp
	MiddleDown
	MiddleUp
	Wheel
)

func (a Action) String() string {
	switch a {
	case LeftDown:
		return "left-down"
	case LeftUp:
		return "left-up"
	case RightDown:
		return "right-down"
	case RightUp:
		return "right-up"
	case MiddleDown:
		return "middle-down"
	case MiddleUp:
		return "middle-up"
	case Wheel:
		return "wheel"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

func (a Action) valid() bool { return a >= LeftDown && a <= Wheel }

// Event is one observed mouse action in global desktop coordinates.
type Event struct {
	Point  image.Point
	Action Action
	Time   time.Time
}

// Options controls a single attachment.
type Options struct {
	// DebugWatchdog starts a goroutine that detaches the hook as soon as a
	// debugger is attached. A low-level hook blocks all mouse input system
	// wide while the process sits at a breakpoint.
	DebugWatchdog bool
	// WatchdogInterval defaults to 500ms.
	WatchdogInterval time.Duration
	// DebuggerPresent defaults to the platform check.
	DebuggerPresent func() bool
	Logger          *slog.Logger
}

// Stats is a snapshot of the hook counters since process start.
type Stats struct {
	Recorded  uint64
	Discarded uint64
	Pending   int
}

// backend installs the OS-level hook and forwards events to sink from the
// OS callback thread.
type backend interface {
	install(sink func(Event)) error
	uninstall()
}

// Hook is the process-wide mouse observer. Obtain it with Get.
type Hook struct {
	lifecycle sync.Mutex // serialises Attach and Detach
	backend   backend
	installed atomic.Bool
	paused    atomic.Bool

	mu     sync.Mutex
	events []Event
	head   int

	recorded  atomic.Uint64
	discarded atomic.Uint64

	watchStop chan struct{}
	watchWG   sync.WaitGroup
	log       *slog.Logger
}

var (
	instance     *Hook
	instanceOnce sync.Once
)

// Get returns the process-wide hook. The OS callback has no user data slot,
// so the one registered callback always forwards into this instance.
func Get() *Hook {
	instanceOnce.Do(func() {
		instance = newHook(newPlatformBackend())
	})
	return instance
}

func newHook(b backend) *Hook {
	return &Hook{backend: b, log: slog.Default()}
}

// Attach installs the system-wide hook. The pending queue is cleared first.
// An install failure is returned and leaves the hook detached.
func (h *Hook) Attach(opts Options) error {
	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	if h.installed.Load() {
		return ErrAlreadyAttached
	}
	// A watchdog that already detached on its own may still need joining.
	h.stopWatchdog()

	if opts.Logger != nil {
		h.log = opts.Logger
	}
	h.ClearEvents()

	if err := h.backend.install(h.record); err != nil {
		h.log.Error("mouse hook install failed", "err", err)
		return fmt.Errorf("mousehook: install: %w", err)
	}
	h.installed.Store(true)
	h.log.Info("mouse hook attached", "watchdog", opts.DebugWatchdog)

	if opts.DebugWatchdog {
		h.startWatchdog(opts)
	}
	return nil
}

// Detach removes the hook, stops the watchdog and clears the queue.
// Calling it on a detached hook is a no-op.
func (h *Hook) Detach() {
	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	h.stopWatchdog()
	if h.uninstall() {
		h.log.Info("mouse hook detached")
	}
	h.ClearEvents()
}

// uninstall reports whether this call removed the hook.
func (h *Hook) uninstall() bool {
	if !h.installed.Swap(false) {
		return false
	}
	h.backend.uninstall()
	return true
}

// Attached reports whether the OS hook is currently installed.
func (h *Hook) Attached() bool { return h.installed.Load() }

// Pause makes the callback discard incoming events.
func (h *Hook) Pause() { h.paused.Store(true) }

// Unpause resumes queueing.
func (h *Hook) Unpause() { h.paused.Store(false) }

// Paused reports the pause flag.
func (h *Hook) Paused() bool { return h.paused.Load() }

// record runs on the OS callback thread.
func (h *Hook) record(ev Event) {
	if !ev.Action.valid() {
		return
	}
	if h.paused.Load() {
		h.discarded.Add(1)
		return
	}
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
	h.recorded.Add(1)
}

// PendingCount returns the number of queued events.
func (h *Hook) PendingCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events) - h.head
}

// DrainEvents moves up to min(max, len(dst), pending) of the oldest events
// into dst and removes exactly those from the queue. It returns false without
// touching the queue when dst is nil.
func (h *Hook) DrainEvents(dst []Event, max int) (int, bool) {
	if dst == nil {
		return 0, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.events) - h.head
	if max < n {
		n = max
	}
	if len(dst) < n {
		n = len(dst)
	}
	if n < 0 {
		n = 0
	}
	copy(dst, h.events[h.head:h.head+n])
	h.head += n

	pending := len(h.events) - h.head
	switch {
	case pending == 0:
		h.events = h.events[:0]
		h.head = 0
	case h.head > cap(h.events)/2:
		// reclaim the consumed prefix so appends do not copy dead entries
		copy(h.events, h.events[h.head:])
		h.events = h.events[:pending]
		h.head = 0
	}

	if cap(h.events) > ShrinkThreshold && cap(h.events) > pending {
		shrunk := make([]Event, pending)
		copy(shrunk, h.events[h.head:])
		h.events = shrunk
		h.head = 0
	}
	return n, true
}

// ClearEvents empties the queue and releases its storage.
func (h *Hook) ClearEvents() {
	h.mu.Lock()
	h.events = nil
	h.head = 0
	h.mu.Unlock()
}

// Stats returns the hook counters.
func (h *Hook) Stats() Stats {
	return Stats{
		Recorded:  h.recorded.Load(),
		Discarded: h.discarded.Load(),
		Pending:   h.PendingCount(),
	}
}

func (h *Hook) startWatchdog(opts Options) {
	interval := opts.WatchdogInterval
	if interval <= 0 {
		interval = defaultWatchdogInterval
	}
	present := opts.DebuggerPresent
	if present == nil {
		present = debuggerPresent
	}
	stop := make(chan struct{})
	h.watchStop = stop
	h.watchWG.Add(1)
	go h.watch(stop, interval, present)
}

// watch polls for a debugger while the hook is installed.
func (h *Hook) watch(stop <-chan struct{}, interval time.Duration, present func() bool) {
	defer h.watchWG.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !h.installed.Load() {
				return
			}
			if present() {
				h.log.Warn("debugger detected, detaching mouse hook")
				h.uninstall()
				h.ClearEvents()
				return
			}
		}
	}
}

func (h *Hook) stopWatchdog() {
	if h.watchStop == nil {
		return
	}
	close(h.watchStop)
	h.watchWG.Wait()
	h.watchStop = nil
}
