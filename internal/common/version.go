package common

import (
	"fmt"
	"runtime/debug"
)

// Set via -ldflags "-X github.com/ternarybob/marketlens/internal/common.Version=..."
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// GetVersion returns the release version, or the module version for `go install` builds
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

// GetFullVersion returns the version with build and commit
func GetFullVersion() string {
	return fmt.Sprintf("%s (build: %s, commit: %s)", GetVersion(), Build, commit())
}

// VersionInfo is the payload served by /version
func VersionInfo() map[string]string {
	return map[string]string{
		"name":    "marketlens",
		"version": GetVersion(),
		"build":   Build,
		"commit":  commit(),
	}
}

// commit falls back to the VCS revision stamped by the toolchain
func commit() string {
	if GitCommit != "unknown" {
		return GitCommit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return s.Value
			}
		}
	}
	return GitCommit
}
