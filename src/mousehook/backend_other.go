//go:build !windows

package mousehook

import "github.com/BAK-ZIM/camstudio/src/hookstream"

func newPlatformBackend() backend { return newStreamBackend(hookstream.Default()) }
