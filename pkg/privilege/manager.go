// Package privilege owns elevation state for an investigation. A Manager
// negotiates time-boxed sudo grants with the operator, self-tests them,
// and executes individual read-only commands under an active grant.
//
// There is no package-level singleton: each investigation constructs its
// own Manager, so independent sessions cannot share elevation state.
package privilege

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"autoav/pkg/protocol"
)

// State represents the escalation manager's state.
type State string

// Manager state constants.
const (
	StateIdle             State = "idle"              // no grant, none pending
	StateAwaitingApproval State = "awaiting_approval" // operator prompt outstanding
	StateGranted          State = "granted"           // active grant
	StateExpired          State = "expired"           // grant aged out; equivalent to idle for checks
)

// CommandRunner executes a command and returns its stdout. Stderr is
// folded into the returned error.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// InteractiveRunner executes a command attached to the operator's
// terminal so sudo can collect a password. The wait is bounded by ctx.
type InteractiveRunner interface {
	RunInteractive(ctx context.Context, name string, args ...string) error
}

// Approver asks the operator whether elevation may be granted for a
// human-described operation category ("read file /Library/...").
type Approver interface {
	Approve(ctx context.Context, operation string) (bool, error)
}

// Config holds Manager configuration.
type Config struct {
	TTL           time.Duration // grant lifetime (default 300s)
	PromptTimeout time.Duration // bound on interactive credential entry (default 30s)
}

func (c Config) withDefaults() Config {
	out := c
	if out.TTL == 0 {
		out.TTL = 5 * time.Minute
	}
	if out.PromptTimeout == 0 {
		out.PromptTimeout = 30 * time.Second
	}
	return out
}

// Manager is the privilege escalation manager.
type Manager struct {
	cfg         Config
	runner      CommandRunner
	interactive InteractiveRunner
	approver    Approver
	log         zerolog.Logger

	mu        sync.Mutex
	state     State
	grantedAt time.Time

	// nowFunc allows tests to control time.
	nowFunc func() time.Time
}

// New creates a Manager in the Idle state.
func New(cfg Config, runner CommandRunner, interactive InteractiveRunner, approver Approver, log zerolog.Logger) *Manager {
	return &Manager{
		cfg:         cfg.withDefaults(),
		runner:      runner,
		interactive: interactive,
		approver:    approver,
		log:         log.With().Str("component", "privilege").Logger(),
		state:       StateIdle,
		nowFunc:     time.Now,
	}
}

// State returns the current state. A grant older than the TTL reads as
// Expired; expiry is evaluated lazily here, never by a background timer.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// stateLocked flips Granted to Expired once now - grantedAt >= ttl.
// The boundary check is >=: a grant is expired exactly at the TTL.
func (m *Manager) stateLocked() State {
	if m.state == StateGranted && m.nowFunc().Sub(m.grantedAt) >= m.cfg.TTL {
		m.state = StateExpired
	}
	return m.state
}

// Active reports whether an unexpired grant exists.
func (m *Manager) Active() bool {
	return m.State() == StateGranted
}

// Ensure makes sure an active grant exists before an elevated operation,
// negotiating one with the operator if needed. operation is a human
// description of what elevation is for, never raw command text.
//
// Refusal and a failed self-test both return PermissionDenied and leave
// the manager Idle; there is no automatic retry — the caller must call
// Ensure again for the next operation.
func (m *Manager) Ensure(ctx context.Context, operation string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stateLocked() == StateGranted {
		return nil
	}

	m.state = StateAwaitingApproval
	m.log.Info().Str("operation", operation).Msg("requesting elevation")

	granted, err := m.approver.Approve(ctx, operation)
	if err != nil {
		m.state = StateIdle
		return &protocol.PermissionDeniedError{Operation: operation, Reason: err.Error()}
	}
	if !granted {
		m.state = StateIdle
		m.log.Info().Str("operation", operation).Msg("elevation refused by operator")
		return &protocol.PermissionDeniedError{Operation: operation, Reason: "elevation refused by operator"}
	}

	if err := m.selfTest(ctx); err != nil {
		m.state = StateIdle
		m.log.Warn().Err(err).Msg("elevation self-test failed")
		var kinder protocol.Kinder
		if errors.As(err, &kinder) && kinder.Kind() == protocol.KindTimeout {
			return err
		}
		return &protocol.PermissionDeniedError{Operation: operation, Reason: err.Error()}
	}

	m.state = StateGranted
	m.grantedAt = m.nowFunc()
	m.log.Info().Dur("ttl", m.cfg.TTL).Msg("elevation granted")
	return nil
}

// selfTest verifies sudo actually works before declaring the grant
// active. Non-interactive first; interactive credential entry only when
// sudo's failure output says a password is required.
func (m *Manager) selfTest(ctx context.Context) error {
	_, err := m.runner.Run(ctx, "sudo", "-n", "true")
	if err == nil {
		return nil
	}
	if !needsCredential(err.Error()) {
		return &protocol.CommandExecutionError{Command: "sudo -n true", Err: err}
	}

	promptCtx, cancel := context.WithTimeout(ctx, m.cfg.PromptTimeout)
	defer cancel()
	if err := m.interactive.RunInteractive(promptCtx, "sudo", "-v"); err != nil {
		if promptCtx.Err() != nil {
			return &protocol.TimeoutError{Operation: "sudo credential entry", Limit: m.cfg.PromptTimeout.String()}
		}
		return err
	}
	return nil
}

// RunElevated executes a single command under the active grant. It must
// only be called while Granted; callers go through Ensure first.
//
// The command runs as `sudo -n <name> <args...>`. If the cached
// credential has lapsed and sudo reports a password is required, one
// interactive validation is attempted before retrying non-interactively.
// Any failure unrelated to credentials surfaces as CommandExecutionError;
// stdout captured before a non-zero exit is returned alongside it.
func (m *Manager) RunElevated(ctx context.Context, name string, args ...string) ([]byte, error) {
	if !m.Active() {
		return nil, &protocol.PermissionDeniedError{
			Operation: "run elevated command",
			Reason:    "no active elevation grant",
		}
	}

	argv := append([]string{"-n", name}, args...)
	out, err := m.runner.Run(ctx, "sudo", argv...)
	if err == nil {
		return out, nil
	}
	if !needsCredential(err.Error()) {
		return out, &protocol.CommandExecutionError{Command: "sudo " + name, Err: err}
	}

	promptCtx, cancel := context.WithTimeout(ctx, m.cfg.PromptTimeout)
	defer cancel()
	if ierr := m.interactive.RunInteractive(promptCtx, "sudo", "-v"); ierr != nil {
		if promptCtx.Err() != nil {
			return nil, &protocol.TimeoutError{Operation: "sudo credential entry", Limit: m.cfg.PromptTimeout.String()}
		}
		return nil, &protocol.PermissionDeniedError{Operation: "run elevated command", Reason: ierr.Error()}
	}
	out, err = m.runner.Run(ctx, "sudo", argv...)
	if err != nil {
		return out, &protocol.CommandExecutionError{Command: "sudo " + name, Err: err}
	}
	return out, nil
}

// Reset drops any grant and returns the manager to Idle.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateIdle
	m.grantedAt = time.Time{}
}

// Summary describes the grant for status display.
type Summary struct {
	State     State         `json:"state"`
	GrantedAt time.Time     `json:"granted_at,omitzero"`
	TTL       time.Duration `json:"ttl"`
}

// Summarize returns the current grant summary.
func (m *Manager) Summarize() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Summary{State: m.stateLocked(), GrantedAt: m.grantedAt, TTL: m.cfg.TTL}
}

// needsCredential reports whether sudo failure output indicates a
// password is required, as opposed to an unrelated failure like the
// command not existing.
func needsCredential(errText string) bool {
	lower := strings.ToLower(errText)
	return strings.Contains(lower, "password") ||
		strings.Contains(lower, "a terminal is required") ||
		strings.Contains(lower, "askpass")
}
