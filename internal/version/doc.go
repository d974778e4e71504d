// Package version exposes build metadata of the uwb-release binary.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags and default to values for local builds.
package version
