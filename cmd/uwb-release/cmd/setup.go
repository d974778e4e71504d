package cmd

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/oshokin/uwb-release/internal/service/pipeline"
)

// setupCmd runs the whole pipeline for the current host.
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Run the full pipeline for the current host.",
	Long: `Initializes missing submodules, builds the shared project and then fetches
and builds every platform target of the current host. Hosts without targets
only build the shared project.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		stages := newStages(settings)

		return pipeline.New(stages, pipeline.ForHost(runtime.GOOS, stages)).Run(ctx)
	},
}
