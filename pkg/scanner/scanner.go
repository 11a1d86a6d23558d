// Package scanner wraps the ClamAV command-line engine. The core only
// consumes the four-way verdict; it never parses scanner wire output
// beyond mapping exit codes.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Verdict is the outcome of a signature scan.
type Verdict string

// Scan verdict constants.
const (
	Clean       Verdict = "clean"
	Infected    Verdict = "infected"
	ScanError   Verdict = "error"
	ScanTimeout Verdict = "timeout"
)

// Result is a scan outcome with optional detail text (signature names for
// Infected, failure reason for ScanError).
type Result struct {
	Verdict Verdict `json:"verdict"`
	Details string  `json:"details,omitempty"`
}

// Config holds Scanner configuration.
type Config struct {
	ClamscanPath   string        // empty = discover
	DatabaseDir    string        // empty = discover
	ScanTimeout    time.Duration // single file (default 30s); directories get 2x
	RefreshTimeout time.Duration // freshclam bound (default 60s)
}

func (c Config) withDefaults() Config {
	out := c
	if out.ScanTimeout == 0 {
		out.ScanTimeout = 30 * time.Second
	}
	if out.RefreshTimeout == 0 {
		out.RefreshTimeout = 60 * time.Second
	}
	return out
}

// Scanner locates and drives clamscan/freshclam subprocesses.
type Scanner struct {
	cfg Config
	log zerolog.Logger

	mu          sync.Mutex
	clamscan    string
	databaseDir string
}

// clamscanCandidates are standard install locations, checked before PATH.
var clamscanCandidates = []string{
	"/usr/local/bin/clamscan",
	"/opt/homebrew/bin/clamscan",
	"/usr/bin/clamscan",
}

// databaseCandidates are standard signature-database directories.
var databaseCandidates = []string{
	"/usr/local/share/clamav",
	"/opt/homebrew/share/clamav",
	"/usr/share/clamav",
	"/var/lib/clamav",
}

// New creates a Scanner, discovering the clamscan binary and signature
// database unless the config pins them. Discovery failure is not an
// error here; scans report it when attempted.
func New(cfg Config, log zerolog.Logger) *Scanner {
	s := &Scanner{
		cfg: cfg.withDefaults(),
		log: log.With().Str("component", "scanner").Logger(),
	}
	s.clamscan = cfg.ClamscanPath
	if s.clamscan == "" {
		s.clamscan = findClamscan()
	}
	s.databaseDir = cfg.DatabaseDir
	if s.databaseDir == "" {
		s.databaseDir = findDatabase()
	}
	return s
}

func findClamscan() string {
	for _, p := range clamscanCandidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	if p, err := exec.LookPath("clamscan"); err == nil {
		return p
	}
	return ""
}

// findDatabase returns the first candidate directory holding signature
// files (*.cvd full or *.cld incremental).
func findDatabase() string {
	for _, dir := range databaseCandidates {
		if hasSignatures(dir) {
			return dir
		}
	}
	return ""
}

func hasSignatures(dir string) bool {
	for _, pat := range []string{"*.cvd", "*.cld"} {
		matches, err := filepath.Glob(filepath.Join(dir, pat))
		if err == nil && len(matches) > 0 {
			return true
		}
	}
	return false
}

// Available reports whether both the engine and a signature database were
// found.
func (s *Scanner) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clamscan != "" && s.databaseDir != ""
}

// Status describes the scanner for the status command.
type Status struct {
	ClamscanPath string `json:"clamscan_path"`
	DatabaseDir  string `json:"database_dir"`
	Available    bool   `json:"available"`
}

// Describe returns the current scanner status.
func (s *Scanner) Describe() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		ClamscanPath: s.clamscan,
		DatabaseDir:  s.databaseDir,
		Available:    s.clamscan != "" && s.databaseDir != "",
	}
}

// ScanFile scans a single file. The path must exist before the subprocess
// is spawned; a missing target never invokes the engine.
func (s *Scanner) ScanFile(ctx context.Context, path string) Result {
	if _, err := os.Stat(path); err != nil {
		return Result{Verdict: ScanError, Details: fmt.Sprintf("stat %s: %v", path, err)}
	}
	return s.run(ctx, s.cfg.ScanTimeout, "--no-summary", "--infected", path)
}

// ScanDirectory scans a directory tree. Directory scans get twice the
// single-file timeout.
func (s *Scanner) ScanDirectory(ctx context.Context, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		return Result{Verdict: ScanError, Details: fmt.Sprintf("stat %s: %v", path, err)}
	}
	if !info.IsDir() {
		return Result{Verdict: ScanError, Details: fmt.Sprintf("%s is not a directory", path)}
	}
	return s.run(ctx, 2*s.cfg.ScanTimeout, "--recursive", "--no-summary", "--infected", path)
}

// run spawns clamscan with a bounded context and maps its exit code:
// 0 clean, 1 infected, anything else an engine error. On timeout the
// subprocess is killed by CommandContext, never abandoned.
func (s *Scanner) run(ctx context.Context, timeout time.Duration, args ...string) Result {
	s.mu.Lock()
	clamscan, dbDir := s.clamscan, s.databaseDir
	s.mu.Unlock()

	if clamscan == "" {
		return Result{Verdict: ScanError, Details: "clamscan not found; install ClamAV first"}
	}
	if dbDir == "" {
		return Result{Verdict: ScanError, Details: "signature database not found; run freshclam first"}
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := append([]string{"--database=" + dbDir}, args...)
	cmd := exec.CommandContext(runCtx, clamscan, argv...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	s.log.Debug().Dur("took", time.Since(start)).Strs("args", args).Err(err).Msg("clamscan finished")

	if runCtx.Err() == context.DeadlineExceeded {
		return Result{Verdict: ScanTimeout, Details: fmt.Sprintf("scan exceeded %s", timeout)}
	}
	if err == nil {
		return Result{Verdict: Clean}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return Result{Verdict: Infected, Details: strings.TrimSpace(stdout.String())}
	}
	detail := strings.TrimSpace(stderr.String())
	if detail == "" {
		detail = err.Error()
	}
	return Result{Verdict: ScanError, Details: detail}
}

// Refresh updates the signature database via freshclam and re-resolves
// the database directory afterwards.
func (s *Scanner) Refresh(ctx context.Context) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RefreshTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "freshclam")
	var out strings.Builder
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("freshclam timed out after %s", s.cfg.RefreshTimeout)
	}
	if err != nil {
		return "", fmt.Errorf("freshclam: %w: %s", err, strings.TrimSpace(out.String()))
	}

	s.rescanDatabase()
	return out.String(), nil
}

// rescanDatabase re-runs database discovery. Called after a refresh and
// by the watcher when signature files change on disk.
func (s *Scanner) rescanDatabase() {
	dir := s.cfg.DatabaseDir
	if dir == "" || !hasSignatures(dir) {
		dir = findDatabase()
	}
	s.mu.Lock()
	s.databaseDir = dir
	s.mu.Unlock()
}
