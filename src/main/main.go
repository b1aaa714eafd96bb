package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/BAK-ZIM/camstudio/src/config"
	"github.com/BAK-ZIM/camstudio/src/eventloop"
	"github.com/BAK-ZIM/camstudio/src/hookstream"
	"github.com/BAK-ZIM/camstudio/src/hotkey"
	"github.com/BAK-ZIM/camstudio/src/recorder"
	"github.com/BAK-ZIM/camstudio/src/runtimeinit"
	"github.com/BAK-ZIM/camstudio/src/singleinstance"
	"github.com/BAK-ZIM/camstudio/src/tray"
)

type mainOptions struct {
	toggle    bool
	stop      bool
	cancel    bool
	status    bool
	outputDir string
	fps       int
	region    string
}

// delegator is the part of singleinstance.Client used for remote control.
type delegator interface {
	Send(ctx context.Context, cmd singleinstance.Command) (bool, string, error)
}

var errNoResident = errors.New("no resident recorder is running")

func main() {
	if err := runWithArgs(normalizeLegacyArgs(os.Args)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"camstudio"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "camstudio",
		Short:         "Resident screen recorder with tray icon and global hotkeys",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c, ok := opts.command(); ok {
				// Load .env early so SINGLEINSTANCE_PORT_* are applied before the scan.
				_, _ = config.Load()
				return handleDelegation(cmd.Context(), c, singleinstance.NewClient(), cmd.OutOrStdout())
			}
			return runResident(*opts)
		},
	}

	cmd.Flags().BoolVar(&opts.toggle, "toggle", false, "Start, pause or resume recording in the running instance")
	cmd.Flags().BoolVar(&opts.stop, "stop", false, "Stop and save the recording in the running instance")
	cmd.Flags().BoolVar(&opts.cancel, "cancel", false, "Stop and discard the recording in the running instance")
	cmd.Flags().BoolVar(&opts.status, "status", false, "Print the state of the running instance")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "Directory for recordings (overrides OUTPUT_DIR)")
	cmd.Flags().IntVar(&opts.fps, "fps", 0, "Frames per second (overrides CAPTURE_FPS)")
	cmd.Flags().StringVar(&opts.region, "region", "", "Capture region x,y,w,h (overrides CAPTURE_RECT)")
	cmd.MarkFlagsMutuallyExclusive("toggle", "stop", "cancel", "status")

	return cmd
}

func (o mainOptions) command() (singleinstance.Command, bool) {
	switch {
	case o.toggle:
		return singleinstance.CmdToggle, true
	case o.stop:
		return singleinstance.CmdStop, true
	case o.cancel:
		return singleinstance.CmdCancel, true
	case o.status:
		return singleinstance.CmdStatus, true
	}
	return "", false
}

// handleDelegation forwards cmd to the resident and prints its state.
func handleDelegation(ctx context.Context, cmd singleinstance.Command, client delegator, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	delegated, state, err := client.Send(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%s: %w", strings.ToLower(string(cmd)), err)
	}
	if !delegated {
		return errNoResident
	}
	fmt.Fprintln(out, state)
	return nil
}

// normalizeLegacyArgs maps single-dash long flags to GNU style for cobra.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		if !strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "--") {
			continue
		}
		name, _, _ := strings.Cut(arg[1:], "=")
		switch name {
		case "toggle", "stop", "cancel", "status", "output-dir", "fps", "region":
			normalized[i] = "-" + arg
		}
	}
	return normalized
}

func runResident(opts mainOptions) error {
	// Ensure DPI awareness before creating any windows or querying metrics.
	enableDPIAwareness()

	// The tray message loop must own the main OS thread.
	runtime.LockOSThread()

	// Load .env early so SINGLEINSTANCE_PORT_* are available for pre-flight.
	_, _ = config.Load()
	startPort, _ := singleinstance.PortRange()
	if err := preflight(startPort, singleinstance.DetectResidentPort); err != nil {
		return err
	}

	cfg, logger, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			OutputDirOverride: opts.outputDir,
			FPSOverride:       opts.fps,
			RegionOverride:    opts.region,
		},
	})
	if err != nil {
		return err
	}
	logMonitorConfiguration(logger)
	logger.Info("CamStudio initialized",
		"record_pause", cfg.HotkeyRecordPause,
		"stop", cfg.HotkeyStop,
		"cancel", cfg.HotkeyCancel,
		"output", cfg.OutputDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := eventloop.New(eventloop.Options{
		Config:  cfg,
		OnState: func(s recorder.State) { tray.SetState(s.String()) },
		OnResult: func(r recorder.Result) {
			if r.Err != nil {
				logger.Error("recording failed", "err", r.Err)
			}
		},
		Logger: logger,
	})

	keys := hotkey.New(logger)
	bindings := []struct {
		name  string
		combo string
		cmd   singleinstance.Command
	}{
		{"record/pause", cfg.HotkeyRecordPause, singleinstance.CmdToggle},
		{"stop", cfg.HotkeyStop, singleinstance.CmdStop},
		{"cancel", cfg.HotkeyCancel, singleinstance.CmdCancel},
	}
	for _, b := range bindings {
		c := b.cmd
		if err := keys.Register(b.name, b.combo, func() { loop.Post(c) }); err != nil {
			logger.Warn("hotkey not registered", "name", b.name, "combo", b.combo, "err", err)
		}
	}
	if err := keys.Start(hookstream.Default()); err != nil {
		logger.Warn("hotkeys unavailable", "err", err)
	}
	defer keys.Stop()

	// Handle SIGINT/SIGTERM.
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("event loop stopped", "err", err)
		}
		tray.Quit()
	}()

	tray.SetAboutExtra(fmt.Sprintf("Control port %d", startPort))
	tray.Run(tray.Actions{
		Toggle: func() { loop.Post(singleinstance.CmdToggle) },
		Stop:   func() { loop.Post(singleinstance.CmdStop) },
		Cancel: func() { loop.Post(singleinstance.CmdCancel) },
		Quit:   cancel,
	})

	cancel()
	<-loopDone
	return nil
}

// preflight refuses to start when a resident answers in the port range, then
// claims the start port briefly; a busy port also means a resident exists.
func preflight(port int, detect func(context.Context) (int, bool)) error {
	if p, ok := detect(context.Background()); ok {
		slog.Warn("pre-flight: resident answered", "port", p)
		return fmt.Errorf("one is already running on port %d", p)
	}
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		slog.Warn("pre-flight: port busy, resident already exists", "port", port)
		return fmt.Errorf("one is already running on port %d", port)
	}
	// Release it so the event loop can re-bind.
	_ = listener.Close()
	slog.Debug("pre-flight: port free", "port", port)
	return nil
}
