//go:build !windows

package main

import (
	"log/slog"

	"github.com/BAK-ZIM/camstudio/src/screenshot"
)

func enableDPIAwareness() {}

func logMonitorConfiguration(log *slog.Logger) {
	displays, err := screenshot.Displays()
	if err != nil {
		log.Warn("monitor configuration unavailable", "err", err)
		return
	}
	for _, d := range displays {
		log.Info("monitor", "index", d.Index, "bounds", d.Bounds.String())
	}
}
