package scanner

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ElevatedRunner executes a command under an active elevation grant.
// Satisfied by *privilege.Manager.
type ElevatedRunner interface {
	RunElevated(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ScanFileElevated scans a path the current principal cannot read by
// running clamscan through the elevation grant. The caller is
// responsible for negotiating the grant first.
func (s *Scanner) ScanFileElevated(ctx context.Context, path string, runner ElevatedRunner) Result {
	return s.runElevated(ctx, s.cfg.ScanTimeout, runner, "--no-summary", "--infected", path)
}

// ScanDirectoryElevated is ScanFileElevated for directory trees, with the
// doubled directory timeout.
func (s *Scanner) ScanDirectoryElevated(ctx context.Context, path string, runner ElevatedRunner) Result {
	return s.runElevated(ctx, 2*s.cfg.ScanTimeout, runner, "--recursive", "--no-summary", "--infected", path)
}

// runElevated maps an elevated clamscan run to a verdict. With
// --infected, a clean scan exits 0 with no output; an infected scan
// exits 1 with the signature lines on stdout, which the elevated runner
// hands back alongside the exit error.
func (s *Scanner) runElevated(ctx context.Context, timeout time.Duration, runner ElevatedRunner, args ...string) Result {
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
	out, err := runner.RunElevated(runCtx, clamscan, argv...)
	if runCtx.Err() == context.DeadlineExceeded {
		return Result{Verdict: ScanTimeout, Details: fmt.Sprintf("scan exceeded %s", timeout)}
	}
	if err == nil {
		return Result{Verdict: Clean}
	}
	if strings.Contains(err.Error(), "exit status 1") {
		return Result{Verdict: Infected, Details: strings.TrimSpace(string(out))}
	}
	return Result{Verdict: ScanError, Details: err.Error()}
}
