// Package config holds build metadata for the alerts binaries.
package config

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Build information. Populated at build time via -ldflags; otherwise filled
// from the module and VCS data embedded by the Go toolchain.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// BuildInfo contains all build information.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

var fillOnce sync.Once

// fillFromBinary replaces unset ldflags values with embedded build data.
func fillFromBinary() {
	fillOnce.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			Version = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if Commit == "unknown" && s.Value != "" {
					Commit = s.Value
					if len(Commit) > 12 {
						Commit = Commit[:12]
					}
				}
			case "vcs.time":
				if BuildTime == "unknown" && s.Value != "" {
					BuildTime = s.Value
				}
			}
		}
	})
}

// GetBuildInfo returns the current build information.
func GetBuildInfo() BuildInfo {
	fillFromBinary()
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// VersionString returns a formatted version string.
func VersionString() string {
	b := GetBuildInfo()
	return fmt.Sprintf("alerts-server %s (%s) built at %s with %s %s/%s",
		b.Version, b.Commit, b.BuildTime, b.GoVersion, b.OS, b.Arch)
}
