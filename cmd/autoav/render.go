package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"autoav/pkg/protocol"
	"autoav/pkg/scanner"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	toolStyle     = lipgloss.NewStyle().Bold(true)
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	subduedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// timeRounding keeps durations readable in report output.
const timeRounding = time.Millisecond

// styled reports whether stdout is a terminal worth coloring.
func styled() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

func sectionTitle(s string) string {
	if styled() {
		return titleStyle.Render(s)
	}
	return s
}

func toolName(s string) string {
	if styled() {
		return toolStyle.Render(s)
	}
	return s
}

// renderReport writes the investigation report in the requested format.
func renderReport(w io.Writer, format string, report protocol.Report) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		return yaml.NewEncoder(w).Encode(report)
	case "text", "":
		renderReportText(w, report)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text, json, or yaml)", format)
	}
}

func renderReportText(w io.Writer, report protocol.Report) {
	fmt.Fprintln(w, sectionTitle("Investigation report"))
	fmt.Fprintf(w, "  session:    %s\n", report.SessionID)
	fmt.Fprintf(w, "  status:     %s\n", statusText(report.Status))
	fmt.Fprintf(w, "  iterations: %d\n", report.Iterations)
	fmt.Fprintf(w, "  tokens:     %d\n", report.TokensUsed)
	fmt.Fprintf(w, "  duration:   %s\n", report.Duration.Round(timeRounding))
	fmt.Fprintln(w)
	fmt.Fprintln(w, sectionTitle("Findings"))
	fmt.Fprintln(w, report.Findings)

	if len(report.Ledger) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, sectionTitle("Steps"))
	for _, e := range report.Ledger {
		mark := "ok"
		if styled() {
			mark = okStyle.Render("ok")
		}
		if !e.OK {
			mark = string(e.ErrorKind)
			if styled() {
				mark = warnStyle.Render(mark)
			}
		}
		line := fmt.Sprintf("  %-25s %8s  %s", e.Tool, e.Duration.Round(timeRounding), mark)
		fmt.Fprintln(w, line)
	}
	if failed := report.FailedSteps(); len(failed) > 0 && styled() {
		fmt.Fprintln(w, subduedStyle.Render(fmt.Sprintf("  %d of %d steps failed", len(failed), len(report.Ledger))))
	}
}

func statusText(s protocol.SessionStatus) string {
	if !styled() {
		return string(s)
	}
	switch s {
	case protocol.StatusCompleted:
		return okStyle.Render(string(s))
	case protocol.StatusAborted:
		return failStyle.Render(string(s))
	default:
		return warnStyle.Render(string(s))
	}
}

// renderScanResult writes a direct scan outcome.
func renderScanResult(w io.Writer, target string, res scanner.Result) {
	fmt.Fprintf(w, "Scan of %s\n", target)
	switch res.Verdict {
	case scanner.Clean:
		verdict := "Clean"
		if styled() {
			verdict = okStyle.Render(verdict)
		}
		fmt.Fprintf(w, "Status: %s (no threats detected)\n", verdict)
	case scanner.Infected:
		verdict := "INFECTED"
		if styled() {
			verdict = failStyle.Render(verdict)
		}
		fmt.Fprintf(w, "Status: %s\n", verdict)
		if res.Details != "" {
			fmt.Fprintf(w, "Details:\n%s\n", res.Details)
		}
	default:
		fmt.Fprintf(w, "Status: error\n%s\n", res.Details)
	}
}
