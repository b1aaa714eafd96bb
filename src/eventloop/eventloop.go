package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BAK-ZIM/camstudio/src/config"
	"github.com/BAK-ZIM/camstudio/src/recorder"
	"github.com/BAK-ZIM/camstudio/src/singleinstance"
)

// Session is one recording. *recorder.Recorder implements it.
type Session interface {
	Start(ctx context.Context) error
	TogglePause() (recorder.State, error)
	Stop() (recorder.Result, error)
	Cancel() (recorder.Result, error)
	State() recorder.State
	Done() <-chan struct{}
	Wait() recorder.Result
}

// Options wires a Loop.
type Options struct {
	Config *config.Config
	// Server defaults to singleinstance.NewServer().
	Server singleinstance.Server
	// NewSession defaults to a recorder built from Config.
	NewSession func(onState func(recorder.State)) Session
	// OnState receives every session state change, including Idle when a
	// session ends. It may be called from any goroutine.
	OnState func(recorder.State)
	// OnResult receives the summary of every finished session.
	OnResult func(recorder.Result)
	Logger   *slog.Logger
}

// Loop is the single-threaded coordinator for hotkey, tray and remote control
// commands. It owns at most one recording session at a time.
type Loop struct {
	opts     Options
	log      *slog.Logger
	srv      singleinstance.Server
	commands chan singleinstance.Command
	session  Session
}

func New(opts Options) *Loop {
	if opts.Config == nil {
		opts.Config = &config.Config{FPS: config.DefaultFPS, OutputDir: config.DefaultOutputDir}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.NewSession == nil {
		cfg := opts.Config
		opts.NewSession = func(onState func(recorder.State)) Session {
			return recorder.New(recorder.Options{Config: cfg, OnState: onState, Logger: log})
		}
	}
	return &Loop{
		opts:     opts,
		log:      log,
		srv:      opts.Server,
		commands: make(chan singleinstance.Command, 4),
	}
}

// Post queues a command from a hotkey or the tray. It never blocks; commands
// arriving while the queue is full are dropped.
func (l *Loop) Post(cmd singleinstance.Command) bool {
	select {
	case l.commands <- cmd:
		return true
	default:
		l.log.Warn("command dropped, loop busy", "command", string(cmd))
		return false
	}
}

// Port returns the remote control port, or 0 before Run.
func (l *Loop) Port() int {
	if l.srv == nil {
		return 0
	}
	return l.srv.Port()
}

// Run starts the singleinstance server and processes commands.
// It blocks until ctx is cancelled; an active session is stopped on exit.
func (l *Loop) Run(ctx context.Context) error {
	if l.srv == nil {
		l.srv = singleinstance.NewServer()
	}
	if err := l.srv.Start(ctx); err != nil {
		return err
	}
	defer l.srv.Close()
	if p := l.srv.Port(); p > 0 {
		l.log.Info("resident listening", "addr", fmt.Sprintf("127.0.0.1:%d", p))
	}
	defer l.shutdown()

	// Accept loop in background so a slow client cannot stall commands.
	reqCh := make(chan singleinstance.Conn, 4)
	go func() {
		for {
			conn, err := l.srv.Next(ctx)
			if err != nil {
				close(reqCh)
				return
			}
			reqCh <- conn
		}
	}()

	for {
		var sessionDone <-chan struct{}
		if l.session != nil {
			sessionDone = l.session.Done()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-l.commands:
			if _, err := l.handle(ctx, cmd); err != nil {
				l.log.Warn("command failed", "command", string(cmd), "err", err)
			}
		case conn, ok := <-reqCh:
			if !ok {
				return nil
			}
			l.handleConn(ctx, conn)
		case <-sessionDone:
			l.finish(l.session.Wait())
		}
	}
}

func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	defer conn.Close()
	state, err := l.handle(ctx, conn.Request().Command)
	if err != nil {
		_ = conn.RespondError(err.Error())
		return
	}
	_ = conn.RespondOK(state.String())
}

// handle applies cmd and returns the resulting state.
func (l *Loop) handle(ctx context.Context, cmd singleinstance.Command) (recorder.State, error) {
	switch cmd {
	case singleinstance.CmdToggle:
		if !l.active() {
			return l.start(ctx)
		}
		return l.session.TogglePause()

	case singleinstance.CmdStop, singleinstance.CmdCancel:
		if !l.active() {
			return recorder.Idle, recorder.ErrNotRunning
		}
		var (
			res recorder.Result
			err error
		)
		if cmd == singleinstance.CmdStop {
			res, err = l.session.Stop()
		} else {
			res, err = l.session.Cancel()
		}
		if err != nil {
			return l.state(), err
		}
		l.finish(res)
		return recorder.Stopped, nil

	case singleinstance.CmdStatus:
		return l.state(), nil
	}
	return l.state(), fmt.Errorf("unsupported command %q", cmd)
}

func (l *Loop) start(ctx context.Context) (recorder.State, error) {
	if l.session != nil {
		// Ended on its own but not yet collected.
		l.finish(l.session.Wait())
	}
	s := l.opts.NewSession(l.notify)
	if err := s.Start(ctx); err != nil {
		return recorder.Idle, fmt.Errorf("failed to start recording: %w", err)
	}
	l.session = s
	return s.State(), nil
}

func (l *Loop) active() bool {
	if l.session == nil {
		return false
	}
	switch l.session.State() {
	case recorder.Recording, recorder.Paused:
		return true
	}
	return false
}

func (l *Loop) state() recorder.State {
	if l.session == nil {
		return recorder.Idle
	}
	return l.session.State()
}

func (l *Loop) finish(res recorder.Result) {
	l.session = nil
	if res.Err != nil {
		l.log.Error("recording ended with error", "err", res.Err, "frames", res.Frames)
	} else {
		l.log.Info("recording ended", "frames", res.Frames, "cancelled", res.Cancelled,
			"written", res.Output.Written, "dropped", res.Output.Dropped)
	}
	if l.opts.OnResult != nil {
		l.opts.OnResult(res)
	}
	l.notify(recorder.Idle)
}

func (l *Loop) notify(s recorder.State) {
	if l.opts.OnState != nil {
		l.opts.OnState(s)
	}
}

func (l *Loop) shutdown() {
	if l.session == nil {
		return
	}
	res, err := l.session.Stop()
	if errors.Is(err, recorder.ErrNotRunning) {
		// The session saw the cancelled context first.
		res = l.session.Wait()
	}
	l.finish(res)
}
