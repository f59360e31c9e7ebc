// Package version reports the docstage build.
package version

import "runtime/debug"

// Version, GitCommit and BuildTime are set via ldflags in release builds:
//
//	go build -ldflags "-X git.home.luguber.info/inful/docstage/internal/version.Version=v0.3.0"
var (
	Version   = "unknown"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// String renders the version line printed by the CLI. Without ldflags it falls back to the
// module version and VCS revision recorded by the Go toolchain.
func String() string {
	v, commit := Version, GitCommit
	if info, ok := debug.ReadBuildInfo(); ok {
		if v == "unknown" && info.Main.Version != "" {
			v = info.Main.Version
		}
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && commit == "unknown" {
				commit = s.Value
			}
		}
	}
	return v + " (commit " + commit + ", built " + BuildTime + ")"
}
