package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"autoav/internal/appversion"
)

// rootFlags hold global options shared by every subcommand.
type rootFlags struct {
	configPath string
	verbose    bool
}

// newRootCmd creates the root autoav command with all subcommands attached.
func newRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:           "autoav",
		Short:         "AI-driven host compromise investigator",
		Long:          "autoav investigates a possibly compromised computer.\nIt drives read-only inspection tools and ClamAV scans from a reasoning\nservice, asking the operator before anything needs elevated access.",
		Version:       fmt.Sprintf("autoav %s", appversion.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default $AUTOAV_HOME/config.toml)")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newInvestigateCmd(&flags),
		newScanCmd(&flags),
		newUpdateCmd(&flags),
		newStatusCmd(&flags),
		newToolsCmd(),
	)

	return cmd
}

// newLogger builds the CLI logger on stderr, human-readable, debug level
// only when asked.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}
