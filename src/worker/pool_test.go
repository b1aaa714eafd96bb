package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/BAK-ZIM/camstudio/src/logutil"
	"github.com/BAK-ZIM/camstudio/src/screenshot"
)

func TestPoolRunsSubmittedJobs(t *testing.T) {
	var handled atomic.Int32
	p := New(2, func(_ context.Context, _ int, f *screenshot.Frame) error {
		if f == nil {
			return errors.New("nil frame")
		}
		handled.Add(1)
		return nil
	}, logutil.Discard())

	var mu sync.Mutex
	seen := map[int]error{}
	accepted := 0
	for i := 0; i < 20; i++ {
		// Retry until the single slot frees up.
		for !p.Submit(context.Background(), i, screenshot.NewFrame(2, 2), func(idx int, err error) {
			mu.Lock()
			seen[idx] = err
			mu.Unlock()
		}) {
			runtime.Gosched()
		}
		accepted++
	}
	p.Close()

	if int(handled.Load()) != accepted {
		t.Fatalf("handled %d of %d jobs", handled.Load(), accepted)
	}
	if len(seen) != accepted {
		t.Fatalf("callbacks for %d of %d jobs", len(seen), accepted)
	}
	for idx, err := range seen {
		if err != nil {
			t.Fatalf("job %d: %v", idx, err)
		}
	}
}

func TestPoolDropsWhenBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	p := New(1, func(context.Context, int, *screenshot.Frame) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	}, logutil.Discard())

	if !p.Submit(context.Background(), 0, nil, nil) {
		t.Fatal("first submit rejected")
	}
	<-started
	if !p.Submit(context.Background(), 1, nil, nil) {
		t.Fatal("queue slot should be free while the worker is busy")
	}
	if p.Submit(context.Background(), 2, nil, nil) {
		t.Fatal("expected drop with a full queue")
	}
	if p.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", p.Dropped())
	}
	close(release)
	p.Close()
	p.Close()
}

func TestSubmitFuncSkipsPrepareWhenDropped(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	p := New(1, func(context.Context, int, *screenshot.Frame) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	}, logutil.Discard())

	var prepared atomic.Int32
	prepare := func() *screenshot.Frame {
		prepared.Add(1)
		return screenshot.NewFrame(1, 1)
	}
	if !p.SubmitFunc(context.Background(), 0, prepare, nil) {
		t.Fatal("first submit rejected")
	}
	<-started
	if !p.SubmitFunc(context.Background(), 1, prepare, nil) {
		t.Fatal("queued submit rejected")
	}
	for i := 2; i < 5; i++ {
		if p.SubmitFunc(context.Background(), i, prepare, nil) {
			t.Fatalf("submit %d accepted with a full queue", i)
		}
	}
	if got := prepared.Load(); got != 2 {
		t.Fatalf("prepare called %d times, want 2", got)
	}
	if p.Dropped() != 3 {
		t.Fatalf("dropped = %d, want 3", p.Dropped())
	}
	close(release)
	p.Close()
}

func TestPoolSkipsCancelledJobs(t *testing.T) {
	var called atomic.Bool
	p := New(1, func(context.Context, int, *screenshot.Frame) error {
		called.Store(true)
		return nil
	}, logutil.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := make(chan error, 1)
	if !p.Submit(ctx, 0, nil, func(_ int, err error) { got <- err }) {
		t.Fatal("submit rejected")
	}
	p.Close()

	if err := <-got; !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if called.Load() {
		t.Fatal("handler ran for a cancelled job")
	}
}
