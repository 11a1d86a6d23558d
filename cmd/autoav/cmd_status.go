package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"autoav/internal/appversion"
	"autoav/pkg/transcript"
)

// newStatusCmd creates the "autoav status" subcommand.
func newStatusCmd(flags *rootFlags) *cobra.Command {
	var recent int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show scanner and configuration status",
		Long:  "Displays the ClamAV installation state, the reasoning-service\nconfiguration, and recent investigation sessions.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			a, err := newApp(cfg, newLogger(flags.verbose))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			fmt.Fprintf(w, "autoav %s\n\n", appversion.String())

			st := a.scan.Describe()
			fmt.Fprintln(w, sectionTitle("Scanner"))
			if st.Available {
				fmt.Fprintf(w, "  clamscan:  %s\n", st.ClamscanPath)
				fmt.Fprintf(w, "  database:  %s\n", st.DatabaseDir)
			} else {
				fmt.Fprintln(w, "  ClamAV not available (install clamav, then run 'autoav update')")
			}

			fmt.Fprintln(w)
			fmt.Fprintln(w, sectionTitle("Reasoning service"))
			fmt.Fprintf(w, "  model:     %s\n", cfg.Model)
			fmt.Fprintf(w, "  endpoint:  %s\n", cfg.BaseURL)
			if cfg.APIKey() == "" {
				fmt.Fprintf(w, "  api key:   missing (set %s)\n", cfg.APIKeyEnv)
			} else {
				fmt.Fprintf(w, "  api key:   present (%s)\n", cfg.APIKeyEnv)
			}

			printRecentSessions(cmd, cfg.TranscriptPath, recent)
			return nil
		},
	}

	cmd.Flags().IntVar(&recent, "recent", 5, "number of recent sessions to list")

	return cmd
}

// printRecentSessions lists past investigations if an audit database
// exists. Absence of one is normal on a fresh install.
func printRecentSessions(cmd *cobra.Command, path string, limit int) {
	w := cmd.OutOrStdout()
	if path == "" {
		paths, err := ResolvePaths()
		if err != nil {
			return
		}
		path = paths.TranscriptPath
	}
	if _, err := os.Stat(path); err != nil {
		return
	}

	store, err := transcript.Open(path)
	if err != nil {
		return
	}
	defer store.Close()

	rows, err := store.RecentSessions(cmd.Context(), limit)
	if err != nil || len(rows) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, sectionTitle("Recent sessions"))
	for _, row := range rows {
		fmt.Fprintf(w, "  %s  %-17s %3d iters  %s\n",
			row.StartedAt, row.Status, row.Iterations, truncate(row.Problem, 48))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
