//go:build linux

package mousehook

import (
	"bufio"
	"os"
	"strings"
)

// debuggerPresent reports a non-zero TracerPid for this process.
func debuggerPresent() bool {
	f, err := os.Open("/proc/self/status")
	if err != nil {
		return false
	}
	defer f.Close()
	return tracerAttached(bufio.NewScanner(f))
}

func tracerAttached(sc *bufio.Scanner) bool {
	for sc.Scan() {
		line := sc.Text()
		if v, ok := strings.CutPrefix(line, "TracerPid:"); ok {
			v = strings.TrimSpace(v)
			return v != "" && v != "0"
		}
	}
	return false
}
