package singleinstance

import (
	"os"
	"strconv"
)

// The resident binds the first port of the range; clients scan all of it.
const (
	defaultPortStart = 49600
	defaultPortEnd   = 49650

	minPort = 1024
	maxPort = 65535
)

// getPortRange reads SINGLEINSTANCE_PORT_START and SINGLEINSTANCE_PORT_END.
// Both bounds are inclusive and clamped to unprivileged ports. A reversed
// range is swapped.
func getPortRange() (int, int) {
	start := envPort("SINGLEINSTANCE_PORT_START", defaultPortStart)
	end := envPort("SINGLEINSTANCE_PORT_END", defaultPortEnd)
	if end < start {
		start, end = end, start
	}
	return start, end
}

func envPort(name string, def int) int {
	n, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return def
	}
	return min(max(n, minPort), maxPort)
}

// PortRange returns the effective control port range.
func PortRange() (start, end int) { return getPortRange() }
