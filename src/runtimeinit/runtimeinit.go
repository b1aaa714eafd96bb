package runtimeinit

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/BAK-ZIM/camstudio/src/clipboard"
	"github.com/BAK-ZIM/camstudio/src/config"
	"github.com/BAK-ZIM/camstudio/src/logutil"
)

type Options struct {
	LoadOptions config.LoadOptions
	// Stderr receives console logs; nil means os.Stderr.
	Stderr io.Writer
	// WithClipboard initialises the system clipboard. Failure is logged, not fatal.
	WithClipboard bool
}

// Bootstrap loads configuration and installs the process-wide logger.
func Bootstrap(opts Options) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logutil.Setup(logutil.Options{
		EnableFileLogging: cfg.EnableFileLogging,
		Level:             cfg.LogLevel,
		Stderr:            opts.Stderr,
	})
	logger.Debug("configuration loaded",
		"env", cfg.EnvPath,
		"capture", cfg.CaptureType,
		"fps", cfg.FPS,
		"output", cfg.OutputDir,
		"annotations", cfg.AnnotationsEnabled)

	if opts.WithClipboard {
		if err := clipboard.Init(); err != nil {
			logger.Warn("clipboard unavailable", "err", err)
		}
	}
	return cfg, logger, nil
}
