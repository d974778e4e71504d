package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.0.0-dev"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Host returns the GOOS/GOARCH pair the binary runs on; it decides which targets setup builds.
func Host() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

// Full returns a human-readable version string with commit, build time and host.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s, host: %s", Version, Commit, BuildTime, Host())
}
