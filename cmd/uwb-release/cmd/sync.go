package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oshokin/uwb-release/internal/service/syncer"
)

// syncCmd propagates the root version through the package manifests.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize package versions with the root version.",
	Long: `Reads the root version and the engine compound version, then rewrites every
package manifest, its internal dependency constraints, the license copies and
the assembly version attributes. Nothing is written unless every input exists.

The root version must be plain MAJOR.MINOR.PATCH semver. A leading "v", a
pre-release part ("2.1.0-preview") and short forms ("2.1") are rejected,
because "-" separates the base version from the engine sub-version.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		report, err := syncer.New(settings).Synchronize(ctx)
		if err != nil {
			return err
		}

		out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(out, "engine\t%s\n", report.EngineVersion)

		for _, pkg := range report.Packages {
			_, _ = fmt.Fprintf(out, "%s\t%s\n", pkg.Name, pkg.Version)
		}

		return out.Flush()
	},
}
