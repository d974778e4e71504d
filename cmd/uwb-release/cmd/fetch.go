package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oshokin/uwb-release/internal/service/pipeline"
)

// fetchCmd downloads and extracts CEF archives for the given targets.
var fetchCmd = &cobra.Command{
	Use:       "fetch <target>...",
	Short:     "Download and extract the CEF archives of platform targets.",
	Long:      "Download and extract the CEF archives of platform targets. Known targets: " + strings.Join(targetIDs(), ", ") + ".",
	Args:      cobra.MinimumNArgs(1),
	ValidArgs: targetIDs(),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		targets, err := targetsFromArgs(args)
		if err != nil {
			return err
		}

		stages := newStages(settings)

		if err = pipeline.ForTargets("fetch", stages, targets...).Fetch(ctx); err != nil {
			return err
		}

		for _, target := range targets {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", target.ID, settings.ExtractedPath(target.ArchiveToken))
		}

		return nil
	},
}
