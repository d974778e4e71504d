package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/uwb-release/internal/service/pipeline"
)

// buildCmd compiles the engine for the given targets.
var buildCmd = &cobra.Command{
	Use:   "build <target>...",
	Short: "Build the engine for platform targets.",
	Long: `Publishes the engine for each target into its package. macOS targets are
published into their build directory and assembled into an application bundle.
The CEF archives must have been fetched before.`,
	Args:      cobra.MinimumNArgs(1),
	ValidArgs: targetIDs(),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		targets, err := targetsFromArgs(args)
		if err != nil {
			return err
		}

		stages := newStages(settings)

		return pipeline.ForTargets("build", stages, targets...).Build(ctx)
	},
}
