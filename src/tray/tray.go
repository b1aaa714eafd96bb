// Package tray shows the recorder status in the system tray and forwards menu
// clicks to the resident event loop.
package tray

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/getlantern/systray"
)

const appTitle = "CamStudio"

// Actions are invoked from the tray goroutine when a menu item is clicked.
type Actions struct {
	Toggle func()
	Stop   func()
	Cancel func()
	Quit   func()
}

var (
	ready atomic.Bool

	mu        sync.Mutex
	mToggle   *systray.MenuItem
	mStop     *systray.MenuItem
	mCancel   *systray.MenuItem
	mAbout    *systray.MenuItem
	lastState = "idle"
	aboutText string
)

// Run blocks on the tray message loop until Quit is called.
func Run(a Actions) {
	systray.Run(func() { onReady(a) }, func() { ready.Store(false) })
}

// Quit removes the tray icon and makes Run return.
func Quit() { systray.Quit() }

func onReady(a Actions) {
	systray.SetTitle(appTitle)

	mu.Lock()
	mToggle = systray.AddMenuItem("Record", "Start, pause or resume recording")
	mStop = systray.AddMenuItem("Stop", "Stop and save the recording")
	mCancel = systray.AddMenuItem("Cancel", "Stop and discard the recording")
	systray.AddSeparator()
	mAbout = systray.AddMenuItem(appTitle, "")
	mAbout.Disable()
	if aboutText != "" {
		mAbout.SetTitle(aboutText)
	}
	mQuit := systray.AddMenuItem("Quit", "Quit the application")
	mu.Unlock()

	ready.Store(true)
	SetState(currentState())

	go func() {
		for {
			select {
			case <-mToggle.ClickedCh:
				call(a.Toggle)
			case <-mStop.ClickedCh:
				call(a.Stop)
			case <-mCancel.ClickedCh:
				call(a.Cancel)
			case <-mQuit.ClickedCh:
				call(a.Quit)
				systray.Quit()
				return
			}
		}
	}()
}

func call(f func()) {
	if f != nil {
		f()
	}
}

func currentState() string {
	mu.Lock()
	defer mu.Unlock()
	return lastState
}

// SetState updates icon, tooltip and menu for a recorder state name
// ("idle", "recording", "paused", "stopped"). Safe before the tray is ready.
func SetState(state string) {
	mu.Lock()
	lastState = state
	mu.Unlock()
	if !ready.Load() {
		return
	}

	v := viewFor(state)
	systray.SetIcon(icon(v.color))
	systray.SetTooltip(v.tooltip)

	mu.Lock()
	defer mu.Unlock()
	mToggle.SetTitle(v.toggle)
	if v.active {
		mStop.Enable()
		mCancel.Enable()
	} else {
		mStop.Disable()
		mCancel.Disable()
	}
}

// SetAboutExtra shows extra information, such as the control port, in the menu.
func SetAboutExtra(text string) {
	mu.Lock()
	defer mu.Unlock()
	aboutText = text
	if ready.Load() && mAbout != nil {
		mAbout.SetTitle(text)
	}
	slog.Debug("tray about updated", "text", text)
}
