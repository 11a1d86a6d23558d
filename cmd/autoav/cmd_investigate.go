package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"autoav/pkg/llm"
	"autoav/pkg/protocol"
	"autoav/pkg/session"
	"autoav/pkg/transcript"
)

// investigateConfig holds flags for the investigate command.
type investigateConfig struct {
	output       string
	iterations   int
	maxTokens    int
	model        string
	noTranscript bool
}

// newInvestigateCmd creates the "autoav investigate" subcommand.
func newInvestigateCmd(flags *rootFlags) *cobra.Command {
	var cfg investigateConfig

	cmd := &cobra.Command{
		Use:   "investigate <problem description>",
		Short: "Investigate a suspected compromise",
		Long: "Describes the symptoms to the reasoning service and lets it drive\n" +
			"read-only inspection tools and ClamAV scans until it reaches a\n" +
			"conclusion. Elevated access is requested interactively when needed.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if cfg.iterations > 0 {
				appCfg.IterationCap = cfg.iterations
			}
			if cfg.maxTokens > 0 {
				appCfg.TokenCap = cfg.maxTokens
			}
			if cfg.model != "" {
				appCfg.Model = cfg.model
			}
			if appCfg.APIKey() == "" {
				return fmt.Errorf("no API key: set %s in the environment", appCfg.APIKeyEnv)
			}

			log := newLogger(flags.verbose)
			a, err := newApp(appCfg, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// pick up signature updates that land mid-investigation
			if a.scan.Available() {
				go func() {
					if err := a.scan.Watch(ctx); err != nil {
						log.Debug().Err(err).Msg("signature watcher stopped")
					}
				}()
			}

			client := llm.New(appCfg, log)
			sess := session.New(appCfg, client, a.dispatcher, log)

			problem := strings.Join(args, " ")
			report := sess.Run(ctx, problem)

			if !cfg.noTranscript {
				// a cancelled investigation still gets audited
				persistTranscript(context.Background(), a, sess, report)
			}

			return renderReport(cmd.OutOrStdout(), cfg.output, report)
		},
	}

	cmd.Flags().StringVarP(&cfg.output, "output", "o", "text", "report format: text, json, or yaml")
	cmd.Flags().IntVar(&cfg.iterations, "max-iterations", 0, "override the investigation iteration cap")
	cmd.Flags().IntVar(&cfg.maxTokens, "max-tokens", 0, "abort after this many reasoning tokens")
	cmd.Flags().StringVar(&cfg.model, "model", "", "override the configured reasoning model")
	cmd.Flags().BoolVar(&cfg.noTranscript, "no-transcript", false, "skip writing the session audit log")

	return cmd
}

// persistTranscript writes the audit log. The investigation already
// finished; a persistence failure is logged, not surfaced as a command
// error.
func persistTranscript(ctx context.Context, a *app, sess *session.Session, report protocol.Report) {
	path := a.cfg.TranscriptPath
	if path == "" {
		paths, err := ResolvePaths()
		if err != nil {
			a.log.Warn().Err(err).Msg("transcript not written")
			return
		}
		path = paths.TranscriptPath
	}

	store, err := transcript.Open(path)
	if err != nil {
		a.log.Warn().Err(err).Str("path", path).Msg("transcript not written")
		return
	}
	defer store.Close()

	if err := store.SaveReport(ctx, report, sess.Transcript()); err != nil {
		a.log.Warn().Err(err).Str("path", path).Msg("transcript not written")
		return
	}
	a.log.Debug().Str("path", path).Str("session", report.SessionID).Msg("transcript saved")
}
