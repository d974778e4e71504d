package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/uwb-release/internal/config"
)

// initCmd writes the default settings so they can be edited.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default settings file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := config.Default()
		if sourceRoot != "" {
			cfg.SourceRoot = sourceRoot
		}

		if err := config.Save(configPath, cfg); err != nil {
			return err
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "settings written to", configPath)

		return nil
	},
}
