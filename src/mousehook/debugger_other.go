//go:build !linux && !windows

package mousehook

func debuggerPresent() bool { return false }
