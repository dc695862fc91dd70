// Package misc provides build metadata accessors used across the program.
package misc

import (
	"runtime/debug"
	"sync"
)

const appName = "mdoc"

// set at build time via -ldflags "-X mdoc/misc.version=..."
var version = "development"

var gitHash = sync.OnceValue(func() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				if len(s.Value) > 12 {
					return s.Value[:12]
				}
				return s.Value
			}
		}
	}
	return "unknown"
})

// GetAppName returns short program name used in logs, reports and temp files.
func GetAppName() string {
	return appName
}

// GetVersion returns program version.
func GetVersion() string {
	return version
}

// GetGitHash returns abbreviated VCS revision the program was built from.
func GetGitHash() string {
	return gitHash()
}
