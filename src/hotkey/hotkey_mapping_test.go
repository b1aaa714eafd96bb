package hotkey

import (
	"slices"
	"testing"
)

func TestRecordingHotkeysParse(t *testing.T) {
	tests := map[string][]string{
		"Ctrl+Shift+F9":     {"ctrl", "shift", "f9"},
		"Ctrl+Shift+F10":    {"ctrl", "shift", "f10"},
		"Control+Shift+F11": {"ctrl", "shift", "f11"},
		"ctrl+alt+r":        {"ctrl", "alt", "r"},
		"Win+Shift+S":       {"cmd", "shift", "s"},
		"Super+Pause":       {"cmd", "pause"},
		"Alt+F24":           {"alt", "f24"},
	}
	for in, want := range tests {
		if got := parseHotkey(in); !slices.Equal(got, want) {
			t.Errorf("parseHotkey(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRawcodes(t *testing.T) {
	tests := map[string][]uint16{
		"ctrl":  {162, 163},
		"shift": {160, 161},
		"alt":   {164, 165},
		"cmd":   {91, 92},
		"r":     {82},
		"0":     {48},
		"f1":    {112},
		"f9":    {120},
		"f10":   {121},
		"f11":   {122},
		"f24":   {135},
		"pause": {19},
		"prtsc": {44},
		"esc":   {27},
		"f25":   nil,
		"knob":  nil,
	}
	for name, want := range tests {
		if got := keyNameToRawcodes(name); !slices.Equal(got, want) {
			t.Errorf("keyNameToRawcodes(%q) = %v, want %v", name, got, want)
		}
	}
}

// Default record/pause, stop and cancel bindings resolve to left-hand modifiers
// followed by the function key.
func TestRecordingBindingsResolve(t *testing.T) {
	bindings := map[string][]uint16{
		"Ctrl+Shift+F9":  {162, 160, 120},
		"Ctrl+Shift+F10": {162, 160, 121},
		"Ctrl+Shift+F11": {162, 160, 122},
	}
	for combo, want := range bindings {
		keys := parseHotkey(combo)
		if len(keys) != len(want) {
			t.Fatalf("parseHotkey(%q) = %v", combo, keys)
		}
		for i, k := range keys {
			codes := keyNameToRawcodes(k)
			if len(codes) == 0 || codes[0] != want[i] {
				t.Errorf("%s: key %q maps to %v, want first code %d", combo, k, codes, want[i])
			}
		}
	}
}
