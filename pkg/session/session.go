// Package session runs the investigation loop: it carries the
// conversation to the reasoning service, executes the tool invocations
// it requests, and decides when the investigation is over.
package session

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"autoav/pkg/config"
	"autoav/pkg/llm"
	"autoav/pkg/protocol"
	"autoav/pkg/tools"
)

// systemPrompt frames the reasoning service as a read-only investigator.
const systemPrompt = `You are a security analyst investigating a possibly
compromised computer. The user will describe symptoms; use the available
tools to inspect processes, network connections, files, startup items,
browser extensions, and to run antivirus scans. All tools are read-only:
you cannot modify, delete, or execute anything on the host.

Investigate methodically. When a tool fails, treat the error as a finding
and adapt. When you have enough evidence, stop calling tools and give the
user a clear assessment: what you found, how severe it is, and what they
should do next.`

// Executor runs one validated tool invocation. Satisfied by
// *tools.Dispatcher.
type Executor interface {
	Execute(ctx context.Context, req protocol.ToolRequest) protocol.ToolResult
}

// Session is one investigation. Not safe for concurrent use; run one
// investigation per Session.
type Session struct {
	id       string
	cfg      config.Config
	client   llm.Completer
	executor Executor
	defs     []tools.Definition
	log      zerolog.Logger

	turns   []protocol.Turn
	ledger  []protocol.LedgerEntry
	tokens  int
	nowFunc func() time.Time
}

// New builds a session over the given reasoning client and tool executor.
func New(cfg config.Config, client llm.Completer, executor Executor, log zerolog.Logger) *Session {
	return &Session{
		id:       uuid.NewString(),
		cfg:      cfg,
		client:   client,
		executor: executor,
		defs:     tools.Definitions(),
		log:      log.With().Str("component", "session").Logger(),
		nowFunc:  time.Now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Transcript returns the conversation so far. The slice is append-only:
// entries are never mutated or reordered after being added.
func (s *Session) Transcript() []protocol.Turn { return s.turns }

// Run investigates the described problem until the reasoning service
// declares sufficiency, a budget is exhausted, or ctx is cancelled. The
// returned report is valid for every terminal status.
func (s *Session) Run(ctx context.Context, problem string) protocol.Report {
	started := s.nowFunc()
	s.appendTurn(protocol.Turn{Role: protocol.RoleUser, Content: problem})

	status, findings := s.loop(ctx)

	report := protocol.Report{
		SessionID:  s.id,
		Problem:    problem,
		Status:     status,
		Findings:   findings,
		Iterations: s.iterations(),
		TokensUsed: s.tokens,
		StartedAt:  started,
		Duration:   s.nowFunc().Sub(started),
		Ledger:     s.ledger,
	}
	s.log.Info().
		Str("session", s.id).
		Str("status", string(status)).
		Int("iterations", report.Iterations).
		Int("tokens", s.tokens).
		Msg("investigation finished")
	return report
}

// prompt is the system prompt plus basic host facts, so the service does
// not burn an iteration asking what OS it is on.
func (s *Session) prompt() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s\n\nHost: %s (%s/%s), current user %s.",
		systemPrompt, hostname, runtime.GOOS, runtime.GOARCH, os.Getenv("USER"))
}

func (s *Session) loop(ctx context.Context) (protocol.SessionStatus, string) {
	var lastContent string
	for iter := 1; iter <= s.cfg.IterationCap; iter++ {
		if ctx.Err() != nil {
			return protocol.StatusAborted, abortedFindings(lastContent, "investigation cancelled")
		}

		reply, err := s.complete(ctx)
		if err != nil {
			s.log.Error().Err(err).Int("iteration", iter).Msg("reasoning service failed")
			return protocol.StatusAborted, abortedFindings(lastContent, err.Error())
		}
		s.tokens += reply.TokensUsed
		if reply.Content != "" {
			lastContent = reply.Content
		}

		// tool calls win over prose: a reply carrying both is a request
		// for more evidence, not a conclusion
		if len(reply.ToolCalls) > 0 {
			s.appendTurn(protocol.Turn{Role: protocol.RoleAssistant, Content: reply.Content, ToolCalls: reply.ToolCalls})
			s.executeAll(ctx, iter, reply.ToolCalls)
			if s.cfg.TokenCap > 0 && s.tokens >= s.cfg.TokenCap {
				return protocol.StatusBudgetExhausted, exhaustedFindings(lastContent, "token budget exhausted")
			}
			continue
		}

		s.appendTurn(protocol.Turn{Role: protocol.RoleAssistant, Content: reply.Content})
		return protocol.StatusCompleted, reply.Content
	}
	return protocol.StatusBudgetExhausted, exhaustedFindings(lastContent, "iteration budget exhausted")
}

// complete calls the reasoning service, retrying once on failure. One
// retry covers transient transport faults; anything persistent aborts.
func (s *Session) complete(ctx context.Context) (llm.Reply, error) {
	prompt := s.prompt()
	reply, err := s.client.Complete(ctx, prompt, s.turns, s.defs)
	if err == nil || ctx.Err() != nil {
		return reply, err
	}
	s.log.Warn().Err(err).Msg("reasoning request failed, retrying once")
	return s.client.Complete(ctx, prompt, s.turns, s.defs)
}

// executeAll runs the requested tools sequentially, in emission order.
// Each result becomes a tool turn correlated by invocation ID; failures
// are findings, never loop terminators.
func (s *Session) executeAll(ctx context.Context, iter int, calls []protocol.ToolRequest) {
	for _, call := range calls {
		start := s.nowFunc()
		res := s.executor.Execute(ctx, call)
		s.ledger = append(s.ledger, protocol.LedgerEntry{
			Tool:      call.Name,
			Duration:  s.nowFunc().Sub(start),
			OK:        res.OK,
			ErrorKind: res.ErrorKind,
		})
		s.log.Debug().
			Int("iteration", iter).
			Str("tool", call.Name).
			Bool("ok", res.OK).
			Msg("tool executed")
		s.appendTurn(protocol.Turn{Role: protocol.RoleTool, ToolCallID: res.ID, Content: res.Output})
	}
}

func (s *Session) appendTurn(t protocol.Turn) {
	s.turns = append(s.turns, t)
}

// iterations counts assistant turns: one per round trip to the service.
func (s *Session) iterations() int {
	n := 0
	for _, t := range s.turns {
		if t.Role == protocol.RoleAssistant {
			n++
		}
	}
	return n
}

func exhaustedFindings(lastContent, reason string) string {
	if strings.TrimSpace(lastContent) == "" {
		return "Investigation stopped: " + reason + ". No conclusion was reached."
	}
	return "Investigation stopped: " + reason + ". Last assessment:\n\n" + lastContent
}

func abortedFindings(lastContent, reason string) string {
	if strings.TrimSpace(lastContent) == "" {
		return "Investigation aborted: " + reason
	}
	return "Investigation aborted: " + reason + ". Last assessment:\n\n" + lastContent
}
