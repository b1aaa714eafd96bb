package tray

import "image/color"

type view struct {
	tooltip string
	toggle  string
	active  bool
	color   color.NRGBA
}

func viewFor(state string) view {
	switch state {
	case "recording":
		return view{tooltip: appTitle + ": recording", toggle: "Pause", active: true, color: recordingColor}
	case "paused":
		return view{tooltip: appTitle + ": paused", toggle: "Resume", active: true, color: pausedColor}
	}
	return view{tooltip: appTitle, toggle: "Record", color: idleColor}
}
