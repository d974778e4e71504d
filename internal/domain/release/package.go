package release

import "strings"

// PackageSpec names one package taking part in version synchronization.
type PackageSpec struct {
	// Name is the package directory name under the packages root.
	Name string `yaml:"name"`
	// SubVersioned marks engine packages whose version carries the engine sub-version.
	SubVersioned bool `yaml:"sub_versioned"`
}

// EffectiveVersion returns the version this package should be published with.
func (p PackageSpec) EffectiveVersion(spec VersionSpec) string {
	if !p.SubVersioned {
		return spec.Base
	}

	return spec.Effective()
}

// DependencyRule decides which internal dependency constraints get rewritten.
type DependencyRule struct {
	// NamespacePrefix selects the project's own packages; other dependencies are left alone.
	NamespacePrefix string
	// EngineMarker identifies engine-variant packages by a substring of their name.
	EngineMarker string
}

// Resolve returns the version a dependency must be pinned to and whether it is managed at all.
// Engine-variant dependencies follow the dependent's effective version, everything else
// in the namespace is pinned to the plain base version.
func (r DependencyRule) Resolve(dependency, base, dependentEffective string) (string, bool) {
	if !strings.HasPrefix(dependency, r.NamespacePrefix) {
		return "", false
	}

	if r.EngineMarker != "" && strings.Contains(dependency, r.EngineMarker) {
		return dependentEffective, true
	}

	return base, true
}
