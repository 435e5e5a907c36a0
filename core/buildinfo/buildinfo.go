// Package buildinfo reports the version stamped into the binary.
//
// Release builds set the variables with -ldflags, for example
//
//	-X 'github.com/m3rciful/spotdl-bot/core/buildinfo.Version=v0.3.0'
//	-X 'github.com/m3rciful/spotdl-bot/core/buildinfo.Commit=abcdef0'
//
// Local builds fall back to the VCS data embedded by the Go toolchain.
package buildinfo

import (
	"runtime/debug"
	"strings"
	"sync"
)

var (
	Version = "dev"
	Commit  = "local"
	// Date is the build time in RFC3339.
	Date = ""
)

var vcsOnce sync.Once

func fillFromVCS() {
	vcsOnce.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if Commit == "local" && len(s.Value) >= 7 {
					Commit = s.Value[:7]
				}
			case "vcs.time":
				if Date == "" {
					Date = s.Value
				}
			}
		}
	})
}

// Summary returns "version (commit, date)" with empty parts left out.
func Summary() string {
	fillFromVCS()
	var parts []string
	for _, p := range []string{Commit, Date} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return Version
	}
	return Version + " (" + strings.Join(parts, ", ") + ")"
}
