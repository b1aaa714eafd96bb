package config

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BAK-ZIM/camstudio/src/annotation"
	"github.com/BAK-ZIM/camstudio/src/screenshot"
	"github.com/joho/godotenv"
)

const (
	EnvPathVar = "CAMSTUDIO_ENV"

	CaptureScreen = "screen"
	CaptureRegion = "region"
	CaptureWindow = "window"

	DefaultFPS                = 15
	MaxFPS                    = 120
	DefaultOutputDir          = "recordings"
	DefaultMaxCaptureFailures = 30
)

// LoadOptions carries command line overrides. Empty fields are ignored.
type LoadOptions struct {
	OutputDirOverride string
	FPSOverride       int
	RegionOverride    string
}

type Config struct {
	// EnvPath is the .env file that was loaded, if any.
	EnvPath           string
	EnableFileLogging bool
	LogLevel          string

	CaptureType   string
	CaptureRect   screenshot.Region
	CaptureWindow uintptr
	FPS           int
	OutputDir     string

	AnnotationsEnabled bool
	Annotations        annotation.Config

	HotkeyRecordPause string
	HotkeyStop        string
	HotkeyCancel      string

	DebugWatchdog      bool
	MaxCaptureFailures int
}

// FrameInterval returns the capture period for FPS.
func (c *Config) FrameInterval() time.Duration {
	if c.FPS <= 0 {
		return time.Second / DefaultFPS
	}
	return time.Second / time.Duration(c.FPS)
}

// Target returns the capture target and, for region captures, the rectangle.
func (c *Config) Target() (screenshot.Target, screenshot.Region, bool) {
	switch c.CaptureType {
	case CaptureWindow:
		return screenshot.Target{Window: c.CaptureWindow}, screenshot.Region{}, false
	case CaptureRegion:
		return screenshot.Desktop, c.CaptureRect, true
	}
	return screenshot.Desktop, screenshot.Region{}, false
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order:
	// 1) process environment
	// 2) .env in the executable directory
	// 3) if not found, the file named by CAMSTUDIO_ENV
	envPath := resolveEnvPath()
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}

	cfg := &Config{
		EnvPath:            envPath,
		EnableFileLogging:  getBool("ENABLE_FILE_LOGGING", false),
		LogLevel:           strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info")),
		CaptureType:        resolveCaptureType(os.Getenv("CAPTURE_TYPE")),
		FPS:                getInt("CAPTURE_FPS", DefaultFPS, 1, MaxFPS),
		OutputDir:          getEnvWithDefault("OUTPUT_DIR", DefaultOutputDir),
		AnnotationsEnabled: getBool("ANNOTATIONS_ENABLED", true),
		Annotations:        loadAnnotations(),
		HotkeyRecordPause:  getEnvWithDefault("HOTKEY_RECORD_PAUSE", "Ctrl+Shift+F9"),
		HotkeyStop:         getEnvWithDefault("HOTKEY_STOP", "Ctrl+Shift+F10"),
		HotkeyCancel:       getEnvWithDefault("HOTKEY_CANCEL", "Ctrl+Shift+F11"),
		DebugWatchdog:      getBool("DEBUG_WATCHDOG", false),
		MaxCaptureFailures: getInt("MAX_CAPTURE_FAILURES", DefaultMaxCaptureFailures, 1, 1<<20),
	}

	if v := os.Getenv("CAPTURE_WINDOW"); v != "" {
		h, err := ParseHandle(v)
		if err != nil {
			return nil, fmt.Errorf("CAPTURE_WINDOW: %w", err)
		}
		cfg.CaptureWindow = h
	}

	rect := os.Getenv("CAPTURE_RECT")
	if o := strings.TrimSpace(opts.RegionOverride); o != "" {
		rect = o
		cfg.CaptureType = CaptureRegion
	}
	if rect != "" {
		r, err := ParseRect(rect)
		if err != nil {
			return nil, fmt.Errorf("CAPTURE_RECT: %w", err)
		}
		cfg.CaptureRect = r
	}
	if cfg.CaptureType == CaptureRegion && cfg.CaptureRect.Empty() {
		cfg.CaptureType = CaptureScreen
	}
	if cfg.CaptureType == CaptureWindow && cfg.CaptureWindow == 0 {
		cfg.CaptureType = CaptureScreen
	}

	if o := strings.TrimSpace(opts.OutputDirOverride); o != "" {
		cfg.OutputDir = o
	}
	if opts.FPSOverride > 0 {
		cfg.FPS = min(opts.FPSOverride, MaxFPS)
	}

	return cfg, nil
}

func loadAnnotations() annotation.Config {
	def := annotation.DefaultConfig()

	cur := def.Cursor
	cur.Enabled = getBool("CURSOR_ENABLED", cur.Enabled)
	cur.HaloEnabled = getBool("CURSOR_HALO_ENABLED", cur.HaloEnabled)
	if s, err := annotation.ParseHaloShape(os.Getenv("CURSOR_HALO_TYPE")); err == nil {
		cur.HaloShape = s
	}
	cur.HaloColor = getColor("CURSOR_HALO_COLOR", cur.HaloColor)
	cur.HaloSize = getInt("CURSOR_HALO_SIZE", cur.HaloSize, 1, 4096)
	cur.ClickEnabled = getBool("CURSOR_CLICK_ENABLED", cur.ClickEnabled)
	cur.LeftColor = getColor("CURSOR_CLICK_LEFT_COLOR", cur.LeftColor)
	cur.RightColor = getColor("CURSOR_CLICK_RIGHT_COLOR", cur.RightColor)
	cur.MiddleColor = getColor("CURSOR_CLICK_MIDDLE_COLOR", cur.MiddleColor)

	ring := def.Ring
	ring.Enabled = getBool("CURSOR_RING_ENABLED", ring.Enabled)
	ring.Threshold = time.Duration(getInt("CURSOR_RING_THRESHOLD_MS", int(ring.Threshold/time.Millisecond), 1, 60_000)) * time.Millisecond
	ring.Size = getFloat("CURSOR_RING_SIZE", ring.Size)
	ring.Width = getFloat("CURSOR_RING_WIDTH", ring.Width)
	ring.LeftColor = getColor("CURSOR_RING_LEFT_COLOR", cur.LeftColor)
	ring.RightColor = getColor("CURSOR_RING_RIGHT_COLOR", cur.RightColor)
	ring.MiddleColor = getColor("CURSOR_RING_MIDDLE_COLOR", cur.MiddleColor)

	ts := def.Timestamp
	ts.Enabled = getBool("TIMESTAMP_ENABLED", ts.Enabled)
	if f, err := annotation.ParseTimestampFormat(os.Getenv("TIMESTAMP_FORMAT")); err == nil {
		ts.Format = f
	}
	if a, err := annotation.ParseAnchor(os.Getenv("TIMESTAMP_ANCHOR")); err == nil {
		ts.Anchor = a
	}
	ts.Color = getColor("TIMESTAMP_COLOR", ts.Color)
	ts.Background = getColor("TIMESTAMP_BACKGROUND", ts.Background)

	return annotation.Config{Cursor: cur, Ring: ring, Timestamp: ts}
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvPathVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func resolveCaptureType(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case CaptureRegion, "rect", "rectangle":
		return CaptureRegion
	case CaptureWindow:
		return CaptureWindow
	default:
		return CaptureScreen
	}
}

// ParseRect parses "x,y,w,h".
func ParseRect(s string) (screenshot.Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return screenshot.Region{}, fmt.Errorf("want x,y,w,h, got %q", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return screenshot.Region{}, fmt.Errorf("bad number %q in %q", p, s)
		}
		v[i] = n
	}
	r := screenshot.Region{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if r.Empty() {
		return screenshot.Region{}, fmt.Errorf("%w: %q", screenshot.ErrInvalidRegion, s)
	}
	return r, nil
}

// ParseHandle parses a window handle in decimal or 0x-prefixed hex.
func ParseHandle(s string) (uintptr, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad window handle %q", s)
	}
	return uintptr(n), nil
}

// ParseColor parses #AARRGGBB, 0xAARRGGBB or #RRGGBB (opaque).
func ParseColor(s string) (uint32, error) {
	h := strings.TrimSpace(s)
	h = strings.TrimPrefix(h, "#")
	if strings.HasPrefix(h, "0x") || strings.HasPrefix(h, "0X") {
		h = h[2:]
	}
	switch len(h) {
	case 6:
		h = "ff" + h
	case 8:
	default:
		return 0, fmt.Errorf("bad colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("bad colour %q", s)
	}
	return uint32(v), nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

func getInt(key string, def, lo, hi int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < lo || n > hi {
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return def
	}
	return f
}

func getColor(key string, def color.NRGBA) color.NRGBA {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	c, err := ParseColor(v)
	if err != nil {
		return def
	}
	return annotation.ARGB(c)
}
