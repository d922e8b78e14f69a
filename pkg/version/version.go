// Package version carries the build identity of the gridscreen binary.
package version

import (
	"fmt"
	"runtime/debug"
)

const unknown = "unknown"

// Set at link time with -ldflags "-X github.com/Sumatoshi-tech/gridscreen/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = unknown
	Date    = unknown
)

// InitBinaryVersion fills the fields the linker left unset from the module
// build info embedded by the Go toolchain.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	fromBuildInfo(info)
}

func fromBuildInfo(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == unknown {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == unknown {
				Date = setting.Value
			}
		}
	}
}

// String renders the one-line version banner.
func String() string {
	return fmt.Sprintf("gridscreen %s (commit: %s, built: %s)", Version, Commit, Date)
}
