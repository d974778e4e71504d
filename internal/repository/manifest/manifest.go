package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/uwb-release/internal/config"
	"github.com/oshokin/uwb-release/internal/domain/release"
	"github.com/oshokin/uwb-release/internal/fsutil"
)

const (
	// VersionKey holds the package version.
	VersionKey = "version"
	// DependenciesKey holds the dependency name to version constraint map.
	DependenciesKey = "dependencies"

	indent = "  "
)

var errVersionMissing = errors.New("version field is missing or not a string")

// Manifest is a package descriptor loaded from disk.
type Manifest struct {
	// path is the file the manifest was loaded from and is written back to.
	path string
	// document is the whole JSON object including fields this package never touches.
	document *Object
	// dependencies is the decoded dependency map, nil when the manifest has none.
	dependencies *Object
}

// Load reads the manifest at path.
// A missing file is reported as release.ErrManifestNotFound.
func Load(path string) (*Manifest, error) {
	path = filepath.Clean(path)

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", release.ErrManifestNotFound, path)
		}

		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	return Parse(path, contents)
}

// Parse decodes manifest contents that belong to path.
func Parse(path string, contents []byte) (*Manifest, error) {
	document := NewObject()
	if err := json.Unmarshal(contents, document); err != nil {
		return nil, fmt.Errorf("%w: decode manifest %s: %w", release.ErrConfiguration, path, err)
	}

	m := &Manifest{
		path:     path,
		document: document,
	}

	if _, ok := document.Raw(DependenciesKey); ok {
		dependencies, ok := document.GetObject(DependenciesKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s: %q is not an object", release.ErrConfiguration, path, DependenciesKey)
		}

		m.dependencies = dependencies
	}

	return m, nil
}

// Path returns the file backing the manifest.
func (m *Manifest) Path() string {
	return m.path
}

// Version returns the version field.
func (m *Manifest) Version() (string, error) {
	version, ok := m.document.GetString(VersionKey)
	if !ok {
		return "", fmt.Errorf("%w: %s: %w", release.ErrConfiguration, m.path, errVersionMissing)
	}

	return version, nil
}

// SetVersion replaces the version field.
func (m *Manifest) SetVersion(version string) error {
	return m.document.Set(VersionKey, version)
}

// DependencyNames lists the dependencies in document order.
func (m *Manifest) DependencyNames() []string {
	if m.dependencies == nil {
		return nil
	}

	return m.dependencies.Keys()
}

// Dependency returns the version constraint of a dependency.
func (m *Manifest) Dependency(name string) (string, bool) {
	if m.dependencies == nil {
		return "", false
	}

	return m.dependencies.GetString(name)
}

// Dependencies returns the dependencies whose constraints are strings.
func (m *Manifest) Dependencies() map[string]string {
	result := make(map[string]string)

	for _, name := range m.DependencyNames() {
		if version, ok := m.Dependency(name); ok {
			result[name] = version
		}
	}

	return result
}

// SetDependency replaces the constraint of an existing or new dependency.
func (m *Manifest) SetDependency(name, version string) error {
	if m.dependencies == nil {
		m.dependencies = NewObject()
	}

	if err := m.dependencies.Set(name, version); err != nil {
		return err
	}

	return m.document.Set(DependenciesKey, m.dependencies)
}

// Encode renders the manifest with two-space indentation.
func (m *Manifest) Encode() ([]byte, error) {
	compact, err := m.document.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode manifest %s: %w", m.path, err)
	}

	var buffer bytes.Buffer
	if err = json.Indent(&buffer, compact, "", indent); err != nil {
		return nil, fmt.Errorf("indent manifest %s: %w", m.path, err)
	}

	return buffer.Bytes(), nil
}

// Save writes the manifest back to its file atomically.
func (m *Manifest) Save() error {
	data, err := m.Encode()
	if err != nil {
		return err
	}

	if err = fsutil.WriteFileAtomic(m.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}
