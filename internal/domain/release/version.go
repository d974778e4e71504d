package release

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// SubVersionSeparator joins the base version and the engine sub-version.
const SubVersionSeparator = "-"

var (
	errPrereleaseBase    = errors.New("base version must not carry a pre-release part")
	errMalformedCompound = errors.New("compound version must look like <base>-<engine>")
)

// VersionSpec is a base release version with an optional engine sub-version.
type VersionSpec struct {
	// Base is the authoritative release version shared by every package.
	Base string
	// Sub is the engine-build qualifier; empty for umbrella packages.
	Sub string
}

// Effective returns "base" or "base-sub" when a sub-version is present.
func (v VersionSpec) Effective() string {
	if v.Sub == "" {
		return v.Base
	}

	return v.Base + SubVersionSeparator + v.Sub
}

// WithSub returns a copy of the spec carrying the given sub-version.
func (v VersionSpec) WithSub(sub string) VersionSpec {
	v.Sub = sub

	return v
}

// ParseBaseVersion validates a root base version.
// The separator is reserved for sub-versions, so pre-release parts are rejected.
func ParseBaseVersion(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	parsed, err := semver.StrictNewVersion(raw)
	if err != nil {
		return "", fmt.Errorf("%w: base version %q: %w", ErrConfiguration, raw, err)
	}

	if parsed.Prerelease() != "" {
		return "", fmt.Errorf("%w: %q: %w", ErrConfiguration, raw, errPrereleaseBase)
	}

	return raw, nil
}

// SplitCompound splits an engine compound version into its release part and the pinned engine part.
// Only the first separator is significant: everything after it belongs to the engine part.
func SplitCompound(compound string) (releasePart, enginePart string, err error) {
	releasePart, enginePart, found := strings.Cut(compound, SubVersionSeparator)
	if !found || releasePart == "" || enginePart == "" {
		return "", "", fmt.Errorf("%w: %q: %w", ErrConfiguration, compound, errMalformedCompound)
	}

	return releasePart, enginePart, nil
}

// Rebase replaces the release part of a compound version with base and returns the
// rewritten compound string together with the resulting spec.
func Rebase(compound, base string) (string, VersionSpec, error) {
	_, enginePart, err := SplitCompound(compound)
	if err != nil {
		return "", VersionSpec{}, err
	}

	spec := VersionSpec{Base: base, Sub: enginePart}

	return spec.Effective(), spec, nil
}
