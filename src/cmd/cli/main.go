package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/BAK-ZIM/camstudio/src/annotation"
	"github.com/BAK-ZIM/camstudio/src/capture"
	"github.com/BAK-ZIM/camstudio/src/clipboard"
	"github.com/BAK-ZIM/camstudio/src/config"
	"github.com/BAK-ZIM/camstudio/src/output"
	"github.com/BAK-ZIM/camstudio/src/runtimeinit"
	"github.com/BAK-ZIM/camstudio/src/screenshot"
	"github.com/BAK-ZIM/camstudio/src/singleinstance"
)

var version = "dev"

type cliOptions struct {
	jsonOutput bool
	verbose    bool

	// snapshot
	region    string
	out       string
	clipboard bool
	annotate  bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(os.Args, os.Stdout, os.Stderr)
}

func runWithArgs(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		args = []string{"camstudio-cli"}
	}
	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "camstudio-cli",
		Short:         "Capture snapshots and control the resident recorder",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")

	cmd.AddCommand(
		newSnapshotCmd(opts),
		newDisplaysCmd(opts),
		newControlCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func newSnapshotCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture one frame to a PNG file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(cmd.OutOrStdout(), cmd.ErrOrStderr(), *opts)
		},
	}
	cmd.Flags().StringVar(&opts.region, "region", "", "Capture region x,y,w,h (default: configured target)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output PNG path (default: OUTPUT_DIR/snapshot-<time>.png)")
	cmd.Flags().BoolVar(&opts.clipboard, "clipboard", false, "Also copy the image to the clipboard")
	cmd.Flags().BoolVar(&opts.annotate, "annotate", false, "Draw the cursor and timestamp annotations")
	return cmd
}

func newDisplaysCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "displays",
		Short: "List active monitors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			displays, err := screenshot.Displays()
			if err != nil {
				return err
			}
			return printDisplays(cmd.OutOrStdout(), displays, opts.jsonOutput)
		},
	}
}

func newControlCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "control <toggle|stop|cancel|status>",
		Short:     "Send a command to the resident recorder",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"toggle", "stop", "cancel", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := singleinstance.ParseCommand(args[0])
			if err != nil {
				return err
			}
			setupLogging(cmd.ErrOrStderr(), opts.verbose)
			_, _ = config.Load()
			return sendControl(cmd.Context(), singleinstance.NewClient(), c, cmd.OutOrStdout(), opts.jsonOutput)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// setupLogging keeps stdout for results only; logs go to stderr with -v.
func setupLogging(stderr io.Writer, verbose bool) {
	if !verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

type snapshotResult struct {
	Path      string  `json:"path"`
	Region    string  `json:"region"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Clipboard bool    `json:"clipboard"`
	Timestamp string  `json:"timestamp"`
	Duration  float64 `json:"duration_seconds"`
}

func runSnapshot(stdout, stderr io.Writer, opts cliOptions) error {
	cfg, _, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:   config.LoadOptions{RegionOverride: opts.region},
		Stderr:        stderr,
		WithClipboard: opts.clipboard,
	})
	if err != nil {
		return err
	}
	// Bootstrap installs the configured logger; the CLI keeps stderr quiet without -v.
	setupLogging(stderr, opts.verbose)
	logger := slog.Default()

	start := time.Now()
	target, region, isRegion := cfg.Target()
	src, err := capture.New(capture.Options{Target: target, Logger: logger})
	if err != nil {
		return err
	}
	defer src.Close()

	if opts.annotate {
		src.EnableAnnotations()
		// No observer is attached, so click rings would never fire.
		ac := cfg.Annotations
		ac.Ring.Enabled = false
		for _, a := range annotation.Build(ac) {
			src.AddAnnotation(a)
		}
	}
	if !isRegion {
		region = src.SourceRect()
	}
	if err := src.CaptureFrame(region); err != nil {
		return err
	}
	frame := src.Frame()

	path := opts.out
	if path == "" {
		path = filepath.Join(cfg.OutputDir, "snapshot-"+start.Format("20060102-150405")+".png")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := output.SavePNG(path, frame); err != nil {
		return err
	}
	logger.Debug("snapshot saved", "path", path, "region", region.String())

	copied := false
	if opts.clipboard {
		data, err := output.PNGBytes(frame)
		if err != nil {
			return err
		}
		if err := clipboard.WriteImage(data); err != nil {
			return fmt.Errorf("failed to write to clipboard: %w", err)
		}
		copied = true
	}

	res := snapshotResult{
		Path:      path,
		Region:    region.String(),
		Width:     frame.Width,
		Height:    frame.Height,
		Clipboard: copied,
		Timestamp: start.UTC().Format(time.RFC3339),
		Duration:  time.Since(start).Seconds(),
	}
	if opts.jsonOutput {
		return writeJSON(stdout, res)
	}
	fmt.Fprintln(stdout, path)
	return nil
}

type displayJSON struct {
	Index  int `json:"index"`
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func printDisplays(w io.Writer, displays []screenshot.DisplayInfo, asJSON bool) error {
	if asJSON {
		out := make([]displayJSON, 0, len(displays))
		for _, d := range displays {
			out = append(out, displayJSON{Index: d.Index, X: d.Bounds.X, Y: d.Bounds.Y, Width: d.Bounds.Width, Height: d.Bounds.Height})
		}
		return writeJSON(w, out)
	}
	for _, d := range displays {
		fmt.Fprintf(w, "%d\t%d,%d,%d,%d\n", d.Index, d.Bounds.X, d.Bounds.Y, d.Bounds.Width, d.Bounds.Height)
	}
	return nil
}

type controlResult struct {
	Command string `json:"command"`
	State   string `json:"state"`
}

type delegator interface {
	Send(ctx context.Context, cmd singleinstance.Command) (bool, string, error)
}

func sendControl(ctx context.Context, client delegator, c singleinstance.Command, w io.Writer, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	delegated, state, err := client.Send(ctx, c)
	if err != nil {
		return fmt.Errorf("resident rejected %s: %w", strings.ToLower(string(c)), err)
	}
	if !delegated {
		return fmt.Errorf("no resident recorder is running")
	}
	if asJSON {
		return writeJSON(w, controlResult{Command: strings.ToLower(string(c)), State: state})
	}
	fmt.Fprintln(w, state)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}
