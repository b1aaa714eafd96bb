package hotkey

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/BAK-ZIM/camstudio/src/hookstream"
	gohook "github.com/robotn/gohook"
)

// ErrNoKeys is returned for a combination with no mappable key.
var ErrNoKeys = errors.New("no valid keys in hotkey")

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

type combo struct {
	name     string
	config   string
	keys     []keyState
	callback func()
}

// Listener watches the global key feed for registered combinations. One
// listener serves every shortcut so the hook is installed once.
type Listener struct {
	mu     sync.Mutex
	combos []*combo
	unsub  func()
	log    *slog.Logger
}

func New(logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{log: logger}
}

// Register adds a combination such as "Ctrl+Shift+F9". The callback runs on the
// hook goroutine and should not block.
func (l *Listener) Register(name, hotkeyConfig string, callback func()) error {
	keys := parseHotkey(hotkeyConfig)
	c := &combo{name: name, config: hotkeyConfig, callback: callback}
	for _, keyName := range keys {
		rawcodes := keyNameToRawcodes(keyName)
		if len(rawcodes) == 0 {
			l.log.Warn("cannot map key to rawcodes, hotkey may not work correctly", "hotkey", hotkeyConfig, "key", keyName)
			continue
		}
		c.keys = append(c.keys, keyState{name: keyName, rawcodes: rawcodes})
	}
	if len(c.keys) == 0 {
		return fmt.Errorf("%w: %q", ErrNoKeys, hotkeyConfig)
	}

	l.mu.Lock()
	l.combos = append(l.combos, c)
	l.mu.Unlock()
	l.log.Info("hotkey registered", "name", name, "hotkey", hotkeyConfig)
	return nil
}

// Start subscribes to the input stream. Calling Start twice is a no-op.
func (l *Listener) Start(s *hookstream.Stream) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unsub != nil {
		return nil
	}
	unsub, err := s.Subscribe(l.handle)
	if err != nil {
		return fmt.Errorf("hotkey: %w", err)
	}
	l.unsub = unsub
	return nil
}

// Stop unsubscribes from the input stream.
func (l *Listener) Stop() {
	l.mu.Lock()
	unsub := l.unsub
	l.unsub = nil
	l.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (l *Listener) handle(ev gohook.Event) {
	var fired []*combo

	l.mu.Lock()
	switch ev.Kind {
	case gohook.KeyDown, gohook.KeyHold:
		for _, c := range l.combos {
			if c.press(ev.Rawcode) {
				fired = append(fired, c)
			}
		}
	case gohook.KeyUp:
		for _, c := range l.combos {
			c.release(ev.Rawcode)
		}
	}
	l.mu.Unlock()

	for _, c := range fired {
		l.log.Info("hotkey activated", "name", c.name, "hotkey", c.config)
		if c.callback != nil {
			c.callback()
		}
	}
}

// press marks rawcode down and reports whether the whole combination is held.
// States reset when it fires, so holding the keys does not repeat.
func (c *combo) press(rawcode uint16) bool {
	matched := false
	for i := range c.keys {
		if c.keys[i].matches(rawcode) {
			c.keys[i].pressed = true
			matched = true
		}
	}
	if !matched {
		return false
	}
	for i := range c.keys {
		if !c.keys[i].pressed {
			return false
		}
	}
	for i := range c.keys {
		c.keys[i].pressed = false
	}
	return true
}

func (c *combo) release(rawcode uint16) {
	for i := range c.keys {
		if c.keys[i].matches(rawcode) {
			c.keys[i].pressed = false
		}
	}
}

func (k keyState) matches(rawcode uint16) bool {
	for _, rc := range k.rawcodes {
		if rc == rawcode {
			return true
		}
	}
	return false
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	parts := strings.Split(strings.ToLower(hotkeyConfig), "+")
	var keys []string

	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			keys = append(keys, "ctrl")
		case "win", "cmd", "super":
			keys = append(keys, "cmd")
		default:
			keys = append(keys, part)
		}
	}

	return keys
}

var namedKeys = map[string][]uint16{
	// Modifier keys - both left and right variants
	"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":   {164, 165}, // VK_LMENU, VK_RMENU
	"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"win":   {91, 92},   // VK_LWIN, VK_RWIN
	"cmd":   {91, 92},
	"super": {91, 92},

	"space":     {32},
	"enter":     {13},
	"return":    {13},
	"esc":       {27},
	"escape":    {27},
	"tab":       {9},
	"backspace": {8},
	"delete":    {46},
	"del":       {46},
	"insert":    {45},
	"ins":       {45},
	"home":      {36},
	"end":       {35},
	"pageup":    {33},
	"pgup":      {33},
	"pagedown":  {34},
	"pgdn":      {34},

	"pause":       {19},
	"printscreen": {44},
	"prtsc":       {44},

	"left":  {37},
	"up":    {38},
	"right": {39},
	"down":  {40},
}

// keyNameToRawcodes maps a key name to its Windows virtual key codes.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))

	if codes, ok := namedKeys[keyName]; ok {
		return codes
	}
	if len(keyName) == 1 {
		switch c := keyName[0]; {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c-'a') + 65} // VK 0x41-0x5A
		case c >= '0' && c <= '9':
			return []uint16{uint16(c-'0') + 48} // VK 0x30-0x39
		}
	}
	if strings.HasPrefix(keyName, "f") {
		if n, err := strconv.Atoi(keyName[1:]); err == nil && n >= 1 && n <= 24 {
			return []uint16{uint16(111 + n)} // VK_F1 = 112
		}
	}
	return nil
}
