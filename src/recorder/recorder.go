// Package recorder runs one recording session: it paces frame captures,
// feeds them to an encoder and owns the mouse hook for the session.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BAK-ZIM/camstudio/src/annotation"
	"github.com/BAK-ZIM/camstudio/src/capture"
	"github.com/BAK-ZIM/camstudio/src/config"
	"github.com/BAK-ZIM/camstudio/src/mousehook"
	"github.com/BAK-ZIM/camstudio/src/output"
	"github.com/BAK-ZIM/camstudio/src/screenshot"
)

type State int

const (
	Idle State = iota
	Recording
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

var (
	ErrNotRunning      = errors.New("not recording")
	ErrAlreadyStarted  = errors.New("recording already started")
	ErrTooManyFailures = errors.New("too many consecutive capture failures")
)

// FrameSource is the capture side of a session. *capture.Source implements it.
type FrameSource interface {
	CaptureFrame(region screenshot.Region) error
	Frame() *screenshot.Frame
	SourceRect() screenshot.Region
	EnableAnnotations()
	AddAnnotation(a annotation.Annotation)
	ResetClock()
	Close() error
}

// Hook is the mouse observer owned by a session. *mousehook.Hook implements it.
type Hook interface {
	capture.Observer
	Attach(opts mousehook.Options) error
	Detach()
	Pause()
	Unpause()
}

// Options wires a session. Nil factories use the real capture source, mouse
// hook and PNG sequence.
type Options struct {
	Config     *config.Config
	Hook       Hook
	NewSource  func(obs capture.Observer) (FrameSource, error)
	NewEncoder func() (output.Encoder, error)
	// NewTicker defaults to time.NewTicker.
	NewTicker func(d time.Duration) (<-chan time.Time, func())
	// OnState is called from the session goroutine after every transition.
	OnState func(State)
	Logger  *slog.Logger
}

// Result summarises a finished session.
type Result struct {
	Frames    int
	Failures  int
	Cancelled bool
	Output    output.Stats
	Err       error
}

type cmdKind int

const (
	cmdToggle cmdKind = iota
	cmdStop
	cmdCancel
)

type command struct {
	kind  cmdKind
	reply chan State
}

// Recorder drives a single session from Start to Stop or Cancel.
type Recorder struct {
	opts Options
	log  *slog.Logger

	mu      sync.Mutex
	state   State
	started bool

	cmds   chan command
	done   chan struct{}
	result Result
}

func New(opts Options) *Recorder {
	if opts.Config == nil {
		opts.Config = &config.Config{FPS: config.DefaultFPS, MaxCaptureFailures: config.DefaultMaxCaptureFailures}
	}
	if opts.Hook == nil {
		opts.Hook = mousehook.Get()
	}
	if opts.NewTicker == nil {
		opts.NewTicker = func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.NewSource == nil {
		cfg := opts.Config
		opts.NewSource = func(obs capture.Observer) (FrameSource, error) {
			target, _, _ := cfg.Target()
			return capture.New(capture.Options{Target: target, Observer: obs, Logger: log})
		}
	}
	if opts.NewEncoder == nil {
		dir := opts.Config.OutputDir
		opts.NewEncoder = func() (output.Encoder, error) {
			return output.NewPNGSequence(dir, output.PNGOptions{Logger: log})
		}
	}
	return &Recorder{
		opts: opts,
		log:  log,
		cmds: make(chan command),
		done: make(chan struct{}),
	}
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
	r.log.Info("recorder state", "state", s.String())
	if r.opts.OnState != nil {
		r.opts.OnState(s)
	}
}

// Start opens the capture source and the encoder, attaches the mouse hook and
// begins capturing. The session ends on Stop, Cancel, ctx cancellation or too
// many consecutive capture failures.
func (r *Recorder) Start(ctx context.Context) (err error) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.started = true
	r.mu.Unlock()
	defer func() {
		if err != nil {
			r.mu.Lock()
			r.started = false
			r.mu.Unlock()
		}
	}()

	cfg := r.opts.Config
	src, err := r.opts.NewSource(r.opts.Hook)
	if err != nil {
		return fmt.Errorf("failed to open capture source: %w", err)
	}
	region, err := r.region(src)
	if err != nil {
		_ = src.Close()
		return err
	}
	if cfg.AnnotationsEnabled {
		// Input-aware annotations are not attempted without the observer.
		if err := r.opts.Hook.Attach(mousehook.Options{DebugWatchdog: cfg.DebugWatchdog, Logger: r.log}); err != nil {
			_ = src.Close()
			return fmt.Errorf("failed to attach mouse hook: %w", err)
		}
		// The paused flag outlives a previous session on the singleton.
		r.opts.Hook.Unpause()
		src.EnableAnnotations()
		for _, a := range annotation.Build(cfg.Annotations) {
			src.AddAnnotation(a)
		}
	}
	enc, err := r.opts.NewEncoder()
	if err != nil {
		r.opts.Hook.Detach()
		_ = src.Close()
		return fmt.Errorf("failed to open encoder: %w", err)
	}

	r.log.Info("recording started", "region", region.String(), "fps", cfg.FPS)
	r.setState(Recording)
	go r.run(ctx, src, enc, region)
	return nil
}

func (r *Recorder) region(src FrameSource) (screenshot.Region, error) {
	full := src.SourceRect()
	_, region, isRegion := r.opts.Config.Target()
	if !isRegion {
		return full, nil
	}
	if region.Empty() || !region.Rect().In(full.Rect()) {
		return screenshot.Region{}, fmt.Errorf("%w: %v outside %v", screenshot.ErrInvalidRegion, region, full)
	}
	return region, nil
}

func (r *Recorder) run(ctx context.Context, src FrameSource, enc output.Encoder, region screenshot.Region) {
	defer close(r.done)

	cfg := r.opts.Config
	tick, stopTick := r.opts.NewTicker(cfg.FrameInterval())
	defer stopTick()

	maxFailures := cfg.MaxCaptureFailures
	if maxFailures <= 0 {
		maxFailures = config.DefaultMaxCaptureFailures
	}

	var res Result
	consecutive := 0
	paused := false

	finish := func(cancelled bool, err error) {
		r.opts.Hook.Detach()
		if cerr := src.Close(); cerr != nil {
			r.log.Warn("failed to close capture source", "err", cerr)
		}
		if cancelled {
			if aerr := enc.Abort(); aerr != nil {
				r.log.Warn("failed to discard output", "err", aerr)
			}
		} else if cerr := enc.Close(); cerr != nil && err == nil {
			err = cerr
		}
		res.Cancelled = cancelled
		res.Err = err
		res.Output = enc.Stats()
		r.mu.Lock()
		r.result = res
		r.mu.Unlock()
		r.log.Info("recording finished", "frames", res.Frames, "failures", res.Failures, "cancelled", cancelled, "err", err)
		r.setState(Stopped)
	}

	for {
		select {
		case <-ctx.Done():
			finish(false, nil)
			return

		case c := <-r.cmds:
			switch c.kind {
			case cmdToggle:
				if paused {
					paused = false
					r.opts.Hook.Unpause()
					src.ResetClock()
					r.setState(Recording)
				} else {
					paused = true
					r.opts.Hook.Pause()
					r.setState(Paused)
				}
				c.reply <- r.State()
			case cmdStop, cmdCancel:
				finish(c.kind == cmdCancel, nil)
				c.reply <- Stopped
				return
			}

		case <-tick:
			if paused {
				continue
			}
			if err := src.CaptureFrame(region); err != nil {
				consecutive++
				res.Failures++
				r.log.Warn("frame capture failed", "err", err, "consecutive", consecutive)
				if consecutive >= maxFailures {
					finish(false, fmt.Errorf("%w: %d", ErrTooManyFailures, consecutive))
					return
				}
				continue
			}
			consecutive = 0
			if err := enc.WriteFrame(src.Frame()); err != nil {
				finish(false, fmt.Errorf("failed to write frame: %w", err))
				return
			}
			res.Frames++
		}
	}
}

func (r *Recorder) send(kind cmdKind) (State, error) {
	switch r.State() {
	case Recording, Paused:
	default:
		return r.State(), ErrNotRunning
	}
	c := command{kind: kind, reply: make(chan State, 1)}
	select {
	case r.cmds <- c:
		return <-c.reply, nil
	case <-r.done:
		return Stopped, ErrNotRunning
	}
}

// TogglePause switches between Recording and Paused and returns the new state.
func (r *Recorder) TogglePause() (State, error) { return r.send(cmdToggle) }

// Stop ends the session and finalises the output.
func (r *Recorder) Stop() (Result, error) {
	if _, err := r.send(cmdStop); err != nil {
		return Result{}, err
	}
	return r.Wait(), nil
}

// Cancel ends the session and discards the output.
func (r *Recorder) Cancel() (Result, error) {
	if _, err := r.send(cmdCancel); err != nil {
		return Result{}, err
	}
	return r.Wait(), nil
}

// Done is closed when the session has ended.
func (r *Recorder) Done() <-chan struct{} { return r.done }

// Wait blocks until the session ends and returns its result.
func (r *Recorder) Wait() Result {
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}
