package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"autoav/pkg/access"
	"autoav/pkg/scanner"
)

// newScanCmd creates the "autoav scan" subcommand: a direct ClamAV scan
// without the reasoning loop.
func newScanCmd(flags *rootFlags) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "scan <path>",
		Short: "Run a ClamAV scan directly",
		Long:  "Scans a file (or, with --recursive, a directory tree) with the local\nClamAV installation. Restricted paths prompt for elevation.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			a, err := newApp(cfg, newLogger(flags.verbose))
			if err != nil {
				return err
			}
			if !a.scan.Available() {
				return fmt.Errorf("ClamAV is not installed or has no signature database; run 'autoav update' after installing it")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path := a.accessor.Resolve(args[0])
			var res scanner.Result
			switch {
			case a.accessor.IsReadable(path):
				if recursive {
					res = a.scan.ScanDirectory(ctx, path)
				} else {
					res = a.scan.ScanFile(ctx, path)
				}
			case a.accessor.Classify(path) == access.Restricted:
				if err := a.priv.Ensure(ctx, "scan "+path); err != nil {
					return err
				}
				if recursive {
					res = a.scan.ScanDirectoryElevated(ctx, path, a.priv)
				} else {
					res = a.scan.ScanFileElevated(ctx, path, a.priv)
				}
			default:
				return fmt.Errorf("cannot read %s", args[0])
			}

			renderScanResult(cmd.OutOrStdout(), args[0], res)
			if res.Verdict == scanner.Infected {
				return fmt.Errorf("threats detected")
			}
			if res.Verdict != scanner.Clean {
				return fmt.Errorf("scan failed: %s", res.Details)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "scan a directory tree")

	return cmd
}
