package clipboard

import (
	"errors"
	"sync"

	"golang.design/x/clipboard"
)

var (
	writeMu sync.Mutex
	ready   bool
)

// ErrUnavailable is returned when Init failed or was never called.
var ErrUnavailable = errors.New("clipboard unavailable")

func Init() error {
	writeMu.Lock()
	defer writeMu.Unlock()
	if err := clipboard.Init(); err != nil {
		return err
	}
	ready = true
	return nil
}

// Write performs a mutex-guarded clipboard write to prevent corruption under parallel writes.
func Write(text string) error {
	return write(clipboard.FmtText, []byte(text))
}

// WriteImage places PNG-encoded image data on the clipboard.
func WriteImage(png []byte) error {
	if len(png) == 0 {
		return errors.New("empty image")
	}
	return write(clipboard.FmtImage, png)
}

func write(f clipboard.Format, data []byte) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	if !ready {
		return ErrUnavailable
	}
	clipboard.Write(f, data)
	return nil
}
