//go:build linux

package mousehook

import (
	"bufio"
	"strings"
	"testing"
)

func TestTracerAttached(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"Name:\tcam\nTracerPid:\t0\nUid:\t0\n", false},
		{"Name:\tcam\nTracerPid:\t4242\n", true},
		{"Name:\tcam\n", false},
	}
	for _, tt := range tests {
		got := tracerAttached(bufio.NewScanner(strings.NewReader(tt.status)))
		if got != tt.want {
			t.Errorf("tracerAttached(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
