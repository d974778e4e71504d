package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/uwb-release/internal/domain/release"
	"github.com/oshokin/uwb-release/internal/service/bundler"
)

// bundleCmd assembles macOS bundles from existing build outputs.
var bundleCmd = &cobra.Command{
	Use:   "bundle <arch>...",
	Short: "Assemble macOS application bundles from published binaries.",
	Long: `Assembles the application bundle for each macOS architecture (x64, arm64) from
an existing publish directory and the extracted CEF framework, and installs it
into the matching package. Nothing is compiled.`,
	Args:      cobra.MinimumNArgs(1),
	ValidArgs: []string{"x64", "arm64"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		assembler := bundler.New(settings.Bundle)

		for _, arch := range args {
			target, err := macTarget(arch)
			if err != nil {
				return err
			}

			result, err := assembler.Assemble(ctx, bundler.Request{
				BuildOutputDir: settings.MacBuildOutput(target.Arch),
				FrameworkDir:   settings.FrameworkPath(target.ArchiveToken),
				PackageDir:     settings.PayloadPath(target.PackageDir),
				Arch:           target.Arch,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", target.ID, result.Path, result.Digest)
		}

		return nil
	},
}

func macTarget(arch string) (release.PlatformTarget, error) {
	for _, target := range release.TargetsForOS(release.OSDarwin) {
		if target.Arch == arch {
			return target, nil
		}
	}

	return release.PlatformTarget{}, fmt.Errorf("%w: unknown macOS architecture %q", release.ErrConfiguration, arch)
}
