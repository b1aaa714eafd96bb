package worker

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/BAK-ZIM/camstudio/src/screenshot"
)

// Handler encodes one frame. It runs on a worker goroutine.
type Handler func(ctx context.Context, index int, frame *screenshot.Frame) error

// ResultCallback is invoked after the handler returns (from a worker goroutine).
type ResultCallback func(index int, err error)

// Pool is a fixed-size frame worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	jobs    chan job
	slot    chan struct{}
	handle  Handler
	wg      sync.WaitGroup
	dropped atomic.Uint64
	log     *slog.Logger
	once    sync.Once
}

type job struct {
	ctx   context.Context
	index int
	frame *screenshot.Frame
	cb    ResultCallback
}

// New creates a worker pool. Size defaults to NumCPU when size<=0. Queue is 1 slot.
func New(size int, h Handler, logger *slog.Logger) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{jobs: make(chan job, 1), slot: make(chan struct{}, 1), handle: h, log: logger}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				<-p.slot
				err := p.run(j)
				if err != nil {
					p.log.Warn("frame job failed", "index", j.index, "err", err)
				}
				if j.cb != nil {
					j.cb(j.index, err)
				}
			}
		}()
	}
}

func (p *Pool) run(j job) error {
	if err := j.ctx.Err(); err != nil {
		return err
	}
	return p.handle(j.ctx, j.index, j.frame)
}

// Submit enqueues a frame if the single-slot queue is free. Returns false if dropped.
// The pool owns frame after a successful Submit.
func (p *Pool) Submit(ctx context.Context, index int, frame *screenshot.Frame, cb ResultCallback) bool {
	return p.SubmitFunc(ctx, index, func() *screenshot.Frame { return frame }, cb)
}

// SubmitFunc reserves the queue slot and only then calls prepare to build the
// frame, so a dropped submission costs nothing.
func (p *Pool) SubmitFunc(ctx context.Context, index int, prepare func() *screenshot.Frame, cb ResultCallback) bool {
	select {
	case p.slot <- struct{}{}:
	default:
		p.dropped.Add(1)
		return false
	}
	// Holding the slot guarantees room in jobs.
	p.jobs <- job{ctx: ctx, index: index, frame: prepare(), cb: cb}
	return true
}

// Dropped returns the number of rejected submissions.
func (p *Pool) Dropped() uint64 { return p.dropped.Load() }

// Close stops the pool after draining current work. Submit must not be called
// after Close.
func (p *Pool) Close() {
	p.once.Do(func() { close(p.jobs) })
	p.wg.Wait()
}
