package fetcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/oshokin/uwb-release/internal/domain/release"
)

//nolint:gochecknoglobals // Compiled once, read-only.
var versionPattern = regexp.MustCompile(`CEF_VERSION = "(.*)"`)

var (
	errVersionFileMissing = errors.New("CEF version file does not exist")
	errVersionNotFound    = errors.New("CEF_VERSION constant not found")
)

// ReadEngineVersion extracts the pinned CEF version from the interop source file.
func ReadEngineVersion(path string) (string, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s: %w", release.ErrConfiguration, path, errVersionFileMissing)
	} else if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", release.ErrConfiguration, path, err)
	}

	match := versionPattern.FindSubmatch(contents)
	if match == nil || len(match[1]) == 0 {
		return "", fmt.Errorf("%w: %s: %w", release.ErrConfiguration, path, errVersionNotFound)
	}

	return string(match[1]), nil
}

// ArchiveName returns the CDN archive name, which is also the archive's root folder name.
func ArchiveName(prefix, version, platformToken string) string {
	return fmt.Sprintf("%s_%s_%s_minimal", prefix, version, platformToken)
}
