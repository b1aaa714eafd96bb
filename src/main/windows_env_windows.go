//go:build windows

package main

import (
	"log/slog"
	"syscall"
)

// enableDPIAwareness sets per-monitor DPI awareness so captured pixels match
// physical screen coordinates.
func enableDPIAwareness() {
	shcore := syscall.NewLazyDLL("Shcore.dll")
	setProcessDpiAwareness := shcore.NewProc("SetProcessDpiAwareness")
	const processPerMonitorDPIAware = 2
	if err := setProcessDpiAwareness.Find(); err == nil {
		ret, _, _ := setProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware))
		if ret == 0 {
			slog.Debug("DPI: per-monitor awareness set")
		} else {
			slog.Warn("DPI: failed to set per-monitor awareness", "code", ret)
		}
		return
	}

	user32 := syscall.NewLazyDLL("user32.dll")
	setProcessDPIAware := user32.NewProc("SetProcessDPIAware")
	if err := setProcessDPIAware.Find(); err != nil {
		slog.Warn("DPI: SetProcessDPIAware not available, no DPI awareness set")
		return
	}
	if ret, _, _ := setProcessDPIAware.Call(); ret != 0 {
		slog.Debug("DPI: system awareness set (fallback)")
	} else {
		slog.Warn("DPI: failed to set system awareness (fallback)")
	}
}

func logMonitorConfiguration(log *slog.Logger) {
	user32 := syscall.NewLazyDLL("user32.dll")
	getSystemMetrics := user32.NewProc("GetSystemMetrics")
	metric := func(i int) int32 {
		r, _, _ := getSystemMetrics.Call(uintptr(i))
		return int32(r)
	}

	const (
		smCXScreen        = 0
		smCYScreen        = 1
		smXVirtualScreen  = 76
		smYVirtualScreen  = 77
		smCXVirtualScreen = 78
		smCYVirtualScreen = 79
		smCMonitors       = 80
	)
	log.Info("monitor configuration",
		"monitors", metric(smCMonitors),
		"virtual_x", metric(smXVirtualScreen),
		"virtual_y", metric(smYVirtualScreen),
		"virtual_w", metric(smCXVirtualScreen),
		"virtual_h", metric(smCYVirtualScreen),
		"primary_w", metric(smCXScreen),
		"primary_h", metric(smCYScreen))
}
