package fetcher

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/oshokin/uwb-release/internal/logger"
	"github.com/oshokin/uwb-release/internal/toolchain"
)

// releaseLibraries matches the shared objects shipped in the Linux archive.
const releaseLibraries = "Release/*.so*"

// StripBinaries removes debug symbols from the shared libraries of an
// extracted Linux archive. Nothing is run when there are no libraries.
func (f *Fetcher) StripBinaries(ctx context.Context, extractedDir string) error {
	ctx = logger.WithName(ctx, "strip")

	libraries, err := filepath.Glob(filepath.Join(extractedDir, filepath.FromSlash(releaseLibraries)))
	if err != nil {
		return fmt.Errorf("list shared libraries: %w", err)
	}

	if len(libraries) == 0 {
		logger.Warn(ctx, "No shared libraries to strip in ", extractedDir)

		return nil
	}

	logger.InfoKV(ctx, "Stripping shared libraries", "count", len(libraries))

	for _, library := range libraries {
		cmd := toolchain.Command{
			Name: f.cfg.StripCommand,
			Args: []string{library},
		}

		if err = f.runner.Run(ctx, cmd); err != nil {
			return fmt.Errorf("strip %s: %w", filepath.Base(library), err)
		}
	}

	return nil
}
