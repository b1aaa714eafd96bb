// Package output writes captured frames to disk.
package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BAK-ZIM/camstudio/src/screenshot"
	"github.com/BAK-ZIM/camstudio/src/worker"
)

// ErrClosed is returned by WriteFrame after Close or Abort.
var ErrClosed = errors.New("encoder closed")

// Encoder consumes frames for one recording.
type Encoder interface {
	// WriteFrame queues a copy of f. The caller may reuse f afterwards.
	WriteFrame(f *screenshot.Frame) error
	// Close flushes pending frames and finalises the output.
	Close() error
	// Abort stops encoding and removes anything written.
	Abort() error
	Stats() Stats
}

// Stats counts frames handed to an encoder.
type Stats struct {
	Written uint64
	Dropped uint64
	Failed  uint64
}

// PNGOptions configures a PNG sequence.
type PNGOptions struct {
	// Workers defaults to NumCPU.
	Workers int
	Logger  *slog.Logger
	// Now names the session directory. Defaults to time.Now.
	Now func() time.Time
}

// PNGSequence writes every accepted frame as frame_NNNNNN.png in its own
// session directory. Frames arriving while all workers are busy are dropped
// and counted.
type PNGSequence struct {
	dir  string
	pool *worker.Pool
	ctx  context.Context
	stop context.CancelFunc
	log  *slog.Logger

	next    int
	written atomic.Uint64
	failed  atomic.Uint64

	mu       sync.Mutex
	firstErr error
	closed   bool
}

// NewPNGSequence creates a new session directory under root.
func NewPNGSequence(root string, opts PNGOptions) (*PNGSequence, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	dir := filepath.Join(root, "session-"+opts.Now().Format("20060102-150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &PNGSequence{dir: dir, ctx: ctx, stop: cancel, log: log}
	s.pool = worker.New(opts.Workers, s.encode, log)
	log.Info("png sequence started", "dir", dir)
	return s, nil
}

// Dir returns the session directory.
func (s *PNGSequence) Dir() string { return s.dir }

func (s *PNGSequence) WriteFrame(f *screenshot.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if f == nil {
		return fmt.Errorf("%w: nil frame", screenshot.ErrInvalidRegion)
	}
	idx := s.next
	if s.pool.SubmitFunc(s.ctx, idx, f.Clone, s.done) {
		s.next++
	}
	return nil
}

func (s *PNGSequence) encode(_ context.Context, index int, f *screenshot.Frame) error {
	return SavePNG(filepath.Join(s.dir, FrameName(index)), f)
}

func (s *PNGSequence) done(_ int, err error) {
	if err == nil {
		s.written.Add(1)
		return
	}
	s.failed.Add(1)
	s.mu.Lock()
	if s.firstErr == nil {
		s.firstErr = err
	}
	s.mu.Unlock()
}

func (s *PNGSequence) Close() error {
	if !s.shut() {
		return nil
	}
	s.pool.Close()
	s.stop()
	st := s.Stats()
	s.log.Info("png sequence finished", "dir", s.dir, "written", st.Written, "dropped", st.Dropped, "failed", st.Failed)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.firstErr != nil && !errors.Is(s.firstErr, context.Canceled) {
		return fmt.Errorf("failed to write frames: %w", s.firstErr)
	}
	return nil
}

func (s *PNGSequence) Abort() error {
	if !s.shut() {
		return nil
	}
	s.stop()
	s.pool.Close()
	s.log.Info("png sequence cancelled", "dir", s.dir)
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", s.dir, err)
	}
	return nil
}

func (s *PNGSequence) shut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	return true
}

func (s *PNGSequence) Stats() Stats {
	return Stats{Written: s.written.Load(), Dropped: s.pool.Dropped(), Failed: s.failed.Load()}
}

// FrameName returns the file name of frame index.
func FrameName(index int) string { return fmt.Sprintf("frame_%06d.png", index) }

// Discard accepts and counts frames without storing them.
type Discard struct {
	written atomic.Uint64
	closed  atomic.Bool
}

func (d *Discard) WriteFrame(f *screenshot.Frame) error {
	if d.closed.Load() {
		return ErrClosed
	}
	d.written.Add(1)
	return nil
}

func (d *Discard) Close() error { d.closed.Store(true); return nil }
func (d *Discard) Abort() error { d.closed.Store(true); return nil }
func (d *Discard) Stats() Stats { return Stats{Written: d.written.Load()} }

// PNGBytes encodes the visible area of f.
func PNGBytes(f *screenshot.Frame) ([]byte, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil frame", screenshot.ErrInvalidRegion)
	}
	return screenshot.EncodePNG(f.RGBA())
}

// SavePNG writes f to path as a PNG.
func SavePNG(path string, f *screenshot.Frame) error {
	data, err := PNGBytes(f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
