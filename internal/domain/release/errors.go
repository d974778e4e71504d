package release

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration is returned when a version source or setting is missing or malformed.
	ErrConfiguration = errors.New("configuration error")
	// ErrFetch is returned when an archive download did not produce the expected file.
	ErrFetch = errors.New("fetch error")
	// ErrExtraction is returned when a downloaded archive cannot be unpacked.
	ErrExtraction = errors.New("extraction error")
	// ErrBuild is returned when the external compiler exits with a non-zero status.
	ErrBuild = errors.New("build error")
	// ErrMissingArtifact is returned when an expected build output is absent during bundle assembly.
	ErrMissingArtifact = errors.New("missing artifact")
	// ErrManifestNotFound is returned when an expected package manifest is absent.
	ErrManifestNotFound = errors.New("manifest not found")
)

// BuildError reports a failed external tool invocation.
type BuildError struct {
	// Command is the full command line that was executed.
	Command []string
	// ExitCode is the exit status reported by the tool, or -1 if it never started or was signalled.
	ExitCode int
	// Err is the underlying error returned by os/exec.
	Err error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %q exited with status %d", ErrBuild, strings.Join(e.Command, " "), e.ExitCode)
}

// Unwrap exposes both ErrBuild and the underlying exec error to errors.Is / errors.As.
func (e *BuildError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrBuild}
	}

	return []error{ErrBuild, e.Err}
}
