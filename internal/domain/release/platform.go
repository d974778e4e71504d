package release

import (
	"fmt"
	"slices"
)

// PlatformTarget describes one distributable engine platform.
type PlatformTarget struct {
	// ID is the short identifier used on the command line (e.g. "win-x64").
	ID string
	// ArchiveToken is the platform name used by the CEF CDN archive names.
	ArchiveToken string
	// RuntimeID is the runtime identifier passed to the compiler.
	RuntimeID string
	// PackageDir is the package directory (under the packages root) receiving the binaries.
	PackageDir string
	// Arch is the CPU architecture suffix, used to locate macOS build outputs.
	Arch string
	// OS is the GOOS value of the host that builds this target.
	OS string
}

// Host operating systems the pipeline knows how to build on.
const (
	OSWindows = "windows"
	OSLinux   = "linux"
	OSDarwin  = "darwin"
)

// Bundled reports whether the target ships as a macOS application bundle.
func (t PlatformTarget) Bundled() bool {
	return t.OS == OSDarwin
}

// StripsSymbols reports whether shared libraries of the target archive are stripped after extraction.
func (t PlatformTarget) StripsSymbols() bool {
	return t.OS == OSLinux
}

// Supported platform target identifiers.
const (
	TargetWindowsX64 = "win-x64"
	TargetLinuxX64   = "linux-x64"
	TargetMacOSX64   = "macos-x64"
	TargetMacOSARM64 = "macos-arm64"
)

//nolint:gochecknoglobals // Static, total platform table.
var targets = []PlatformTarget{
	{
		ID:           TargetWindowsX64,
		ArchiveToken: "windows64",
		RuntimeID:    "win-x64",
		PackageDir:   "UnityWebBrowser.Engine.Cef.Win-x64",
		Arch:         "x64",
		OS:           OSWindows,
	},
	{
		ID:           TargetLinuxX64,
		ArchiveToken: "linux64",
		RuntimeID:    "linux-x64",
		PackageDir:   "UnityWebBrowser.Engine.Cef.Linux-x64",
		Arch:         "x64",
		OS:           OSLinux,
	},
	{
		ID:           TargetMacOSX64,
		ArchiveToken: "macosx64",
		RuntimeID:    "osx-x64",
		PackageDir:   "UnityWebBrowser.Engine.Cef.MacOS-x64",
		Arch:         "x64",
		OS:           OSDarwin,
	},
	{
		ID:           TargetMacOSARM64,
		ArchiveToken: "macosarm64",
		RuntimeID:    "osx-arm64",
		PackageDir:   "UnityWebBrowser.Engine.Cef.MacOS-arm64",
		Arch:         "arm64",
		OS:           OSDarwin,
	},
}

// Targets returns a copy of every supported platform target in a stable order.
func Targets() []PlatformTarget {
	return slices.Clone(targets)
}

// TargetsForOS returns the targets built on the given host, in table order.
// An unsupported host gets an empty list.
func TargetsForOS(goos string) []PlatformTarget {
	var result []PlatformTarget

	for _, target := range targets {
		if target.OS == goos {
			result = append(result, target)
		}
	}

	return result
}

// TargetByID looks up a platform target by its identifier.
func TargetByID(id string) (PlatformTarget, error) {
	for _, target := range targets {
		if target.ID == id {
			return target, nil
		}
	}

	return PlatformTarget{}, fmt.Errorf("%w: unknown platform target %q", ErrConfiguration, id)
}

// TargetByArchiveToken looks up a platform target by its CDN archive token.
func TargetByArchiveToken(token string) (PlatformTarget, error) {
	for _, target := range targets {
		if target.ArchiveToken == token {
			return target, nil
		}
	}

	return PlatformTarget{}, fmt.Errorf("%w: unknown archive platform %q", ErrConfiguration, token)
}
