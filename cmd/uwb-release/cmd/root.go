package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/uwb-release/internal/config"
	"github.com/oshokin/uwb-release/internal/domain/release"
	"github.com/oshokin/uwb-release/internal/logger"
	"github.com/oshokin/uwb-release/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// sourceRoot overrides the source_root setting when not empty.
	sourceRoot string
	// logLevel is the minimum level of log messages.
	logLevel string

	// settings are loaded once before any subcommand runs.
	settings *config.Config

	// rootCmd represents the base command when called without any subcommands.
	rootCmd = &cobra.Command{
		Use:   "uwb-release",
		Short: "Fetch, build, bundle and version the browser engine packages.",
		Long: `uwb-release prepares the engine packages of a source tree for release.

The setup command runs the whole pipeline for the current host: it initializes
missing git submodules, builds the shared project, downloads the CEF archive
matching the pinned interop version and builds the engine for every platform
target of the host. On macOS the engine is assembled into application bundles.

The sync command propagates the root version to every package manifest.
All paths are read from the settings file and resolved against the source root.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadSettings,
	}
)

// Execute runs the uwb-release CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVarP(&sourceRoot, "root", "r", "", "source tree root, overrides source_root from the configuration")
	flags.StringVarP(&logLevel, "log-level", "l", "info", "log level: debug, info, warn or error")

	rootCmd.AddCommand(setupCmd, fetchCmd, buildCmd, bundleCmd, syncCmd, initCmd)
}

// loadSettings applies the log level and loads the configuration.
func loadSettings(cmd *cobra.Command, _ []string) error {
	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("%w: unknown log level %q", release.ErrConfiguration, logLevel)
	}

	logger.SetLevel(level)

	// init writes the settings file instead of reading it.
	if cmd == initCmd || cmd.Name() == "version" {
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if sourceRoot != "" {
		cfg.SourceRoot = sourceRoot
	}

	if err = cfg.Absolutize(); err != nil {
		return err
	}

	settings = cfg

	logger.DebugKV(cmd.Context(), "Settings loaded", "config", configPath, "source_root", cfg.SourceRoot)

	return nil
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}
