package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"autoav/pkg/tools"
)

// newToolsCmd creates the "autoav tools" subcommand.
func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the inspection tools the investigator can use",
		Long:  "Shows every tool the reasoning service may invoke. All tools are\nread-only; this list is fixed at build time.",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, def := range tools.Definitions() {
				fmt.Fprintf(w, "%s\n    %s\n", toolName(def.Name), def.Description)
			}
			return nil
		},
	}
}
