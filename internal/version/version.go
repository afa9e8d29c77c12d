// Package version reports build information.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via ldflags at release time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Details is the machine-readable form of Info.
type Details struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
}

// Get returns the build details. Source builds without ldflags fall back to
// the module version and VCS stamp embedded by the go tool.
func Get() Details {
	d := Details{Version: Version, Commit: Commit, Date: Date, Go: runtime.Version()}
	if Version != "dev" {
		return d
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return d
	}
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		d.Version = v
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if d.Commit == "none" {
				d.Commit = s.Value
			}
		case "vcs.time":
			if d.Date == "unknown" {
				d.Date = s.Value
			}
		}
	}
	return d
}

// Info returns formatted version information.
func Info() string {
	d := Get()
	return fmt.Sprintf("ownership %s (commit: %s, built: %s) %s", d.Version, d.Commit, d.Date, d.Go)
}

// Short returns just the version string.
func Short() string {
	return Get().Version
}
