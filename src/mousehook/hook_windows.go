//go:build windows

package mousehook

import (
	"fmt"
	"image"
	"runtime"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

const (
	whMouseLL     = 14
	hcAction      = 0
	wmMouseHWheel = 0x020E
)

var (
	user32                 = windows.NewLazySystemDLL("user32.dll")
	kernel32               = windows.NewLazySystemDLL("kernel32.dll")
	procSetWindowsHookExW  = user32.NewProc("SetWindowsHookExW")
	procPostThreadMessageW = user32.NewProc("PostThreadMessageW")
	procIsDebuggerPresent  = kernel32.NewProc("IsDebuggerPresent")
)

// msllHookStruct mirrors MSLLHOOKSTRUCT.
type msllHookStruct struct {
	Pt          win.POINT
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type sinkFunc func(Event)

var (
	// hookProc is created once. windows.NewCallback slots are never freed,
	// so repeated attach/detach cycles reuse it.
	hookProc   = windows.NewCallback(lowLevelMouseProc)
	activeSink atomic.Pointer[sinkFunc]
)

func lowLevelMouseProc(nCode, wParam, lParam uintptr) uintptr {
	if int32(nCode) == hcAction {
		if sink := activeSink.Load(); sink != nil {
			info := (*msllHookStruct)(unsafe.Pointer(lParam))
			if a := actionFromMessage(uint32(wParam)); a != 0 {
				(*sink)(Event{
					Point:  image.Pt(int(info.Pt.X), int(info.Pt.Y)),
					Action: a,
					Time:   time.Now(),
				})
			}
		}
	}
	return win.CallNextHookEx(0, int32(nCode), wParam, lParam)
}

func actionFromMessage(msg uint32) Action {
	switch msg {
	case win.WM_LBUTTONDOWN:
		return LeftDown
	case win.WM_LBUTTONUP:
		return LeftUp
	case win.WM_RBUTTONDOWN:
		return RightDown
	case win.WM_RBUTTONUP:
		return RightUp
	case win.WM_MBUTTONDOWN:
		return MiddleDown
	case win.WM_MBUTTONUP:
		return MiddleUp
	case win.WM_MOUSEWHEEL, wmMouseHWheel:
		return Wheel
	}
	return 0
}

// nativeBackend runs WH_MOUSE_LL on a dedicated locked thread. Low-level hooks
// are called on the installing thread, which must pump messages.
type nativeBackend struct {
	threadID atomic.Uint32
	done     chan struct{}
}

func newPlatformBackend() backend { return &nativeBackend{} }

func (b *nativeBackend) install(sink func(Event)) error {
	s := sinkFunc(sink)
	activeSink.Store(&s)

	ready := make(chan error, 1)
	b.done = make(chan struct{})
	go b.run(ready)
	if err := <-ready; err != nil {
		activeSink.Store(nil)
		return err
	}
	return nil
}

func (b *nativeBackend) run(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(b.done)

	hmod := win.GetModuleHandle(nil)
	hhook, _, callErr := procSetWindowsHookExW.Call(whMouseLL, hookProc, uintptr(hmod), 0)
	if hhook == 0 {
		ready <- fmt.Errorf("SetWindowsHookExW failed: %v", callErr)
		return
	}
	defer win.UnhookWindowsHookEx(win.HHOOK(hhook))

	b.threadID.Store(windows.GetCurrentThreadId())
	ready <- nil

	var msg win.MSG
	for {
		r := win.GetMessage(&msg, 0, 0, 0)
		if r == 0 || r == -1 {
			return
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}
}

func (b *nativeBackend) uninstall() {
	tid := b.threadID.Swap(0)
	if tid == 0 {
		return
	}
	activeSink.Store(nil)
	_, _, _ = procPostThreadMessageW.Call(uintptr(tid), win.WM_QUIT, 0, 0)
	<-b.done
}

func debuggerPresent() bool {
	r, _, _ := procIsDebuggerPresent.Call()
	return r != 0
}
