package session_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoav/pkg/config"
	"autoav/pkg/llm"
	"autoav/pkg/protocol"
	"autoav/pkg/session"
	"autoav/pkg/tools"
)

// scriptedCompleter returns canned replies in order, then repeats the
// last one. Errors are scripted positionally.
type scriptedCompleter struct {
	replies []llm.Reply
	errs    []error
	calls   int
	seen    [][]protocol.Turn
}

func (c *scriptedCompleter) Complete(_ context.Context, _ string, turns []protocol.Turn, _ []tools.Definition) (llm.Reply, error) {
	idx := c.calls
	c.calls++
	snapshot := make([]protocol.Turn, len(turns))
	copy(snapshot, turns)
	c.seen = append(c.seen, snapshot)
	if idx < len(c.errs) && c.errs[idx] != nil {
		return llm.Reply{}, c.errs[idx]
	}
	if idx >= len(c.replies) {
		idx = len(c.replies) - 1
	}
	return c.replies[idx], nil
}

// recordingExecutor echoes a canned result per tool name.
type recordingExecutor struct {
	results map[string]protocol.ToolResult
	calls   []protocol.ToolRequest
}

func (e *recordingExecutor) Execute(_ context.Context, req protocol.ToolRequest) protocol.ToolResult {
	e.calls = append(e.calls, req)
	if res, ok := e.results[req.Name]; ok {
		res.ID = req.ID
		return res
	}
	return protocol.ToolResult{ID: req.ID, Output: "ok", OK: true}
}

func toolCall(id, name, args string) protocol.ToolRequest {
	return protocol.ToolRequest{ID: id, Name: name, Arguments: json.RawMessage(args)}
}

func answer(text string) llm.Reply {
	return llm.Reply{Content: text, FinishReason: "stop", TokensUsed: 10}
}

func newSession(t *testing.T, c llm.Completer, e session.Executor, mutate func(*config.Config)) *session.Session {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	s := session.New(cfg, c, e, zerolog.Nop())
	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	tick := 0
	s.SetNowFunc(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})
	return s
}

func TestRun_ImmediateAnswer(t *testing.T) {
	c := &scriptedCompleter{replies: []llm.Reply{answer("Nothing suspicious found.")}}
	s := newSession(t, c, &recordingExecutor{}, nil)

	report := s.Run(context.Background(), "is my machine infected?")
	assert.Equal(t, protocol.StatusCompleted, report.Status)
	assert.Equal(t, "Nothing suspicious found.", report.Findings)
	assert.Equal(t, 1, report.Iterations)
	assert.Equal(t, 10, report.TokensUsed)
	assert.Empty(t, report.Ledger)
	assert.NotEmpty(t, report.SessionID)
	assert.Positive(t, report.Duration)
}

func TestRun_PopUpScenario(t *testing.T) {
	c := &scriptedCompleter{replies: []llm.Reply{
		{ToolCalls: []protocol.ToolRequest{
			toolCall("call_1", tools.ToolListProcesses, `{}`),
			toolCall("call_2", tools.ToolBrowserExtensions, `{"browser": "chrome"}`),
		}, FinishReason: "tool_calls", TokensUsed: 100},
		{ToolCalls: []protocol.ToolRequest{
			toolCall("call_3", tools.ToolStartupItems, `{}`),
		}, FinishReason: "tool_calls", TokensUsed: 80},
		answer("Found an adware extension; remove it from chrome://extensions."),
	}}
	exec := &recordingExecutor{results: map[string]protocol.ToolResult{
		tools.ToolBrowserExtensions: {Output: "Extension: TotallySafe Coupons (unverified)", OK: true},
	}}
	s := newSession(t, c, exec, nil)

	report := s.Run(context.Background(), "my browser keeps showing pop-ups")
	require.Equal(t, protocol.StatusCompleted, report.Status)
	assert.Contains(t, report.Findings, "adware extension")
	assert.Equal(t, 3, report.Iterations)
	assert.Equal(t, 190, report.TokensUsed)

	// tools ran sequentially in emission order
	require.Len(t, exec.calls, 3)
	assert.Equal(t, tools.ToolListProcesses, exec.calls[0].Name)
	assert.Equal(t, tools.ToolBrowserExtensions, exec.calls[1].Name)
	assert.Equal(t, tools.ToolStartupItems, exec.calls[2].Name)

	// every ledger entry matches an executed call
	require.Len(t, report.Ledger, 3)
	for i, entry := range report.Ledger {
		assert.Equal(t, exec.calls[i].Name, entry.Tool)
		assert.True(t, entry.OK)
	}
}

func TestRun_TranscriptCorrelation(t *testing.T) {
	c := &scriptedCompleter{replies: []llm.Reply{
		{ToolCalls: []protocol.ToolRequest{toolCall("call_9", tools.ToolStartupItems, `{}`)}, FinishReason: "tool_calls"},
		answer("done"),
	}}
	s := newSession(t, c, &recordingExecutor{}, nil)
	s.Run(context.Background(), "check startup")

	turns := s.Transcript()
	require.Len(t, turns, 4) // user, assistant(call), tool, assistant(answer)
	assert.Equal(t, protocol.RoleUser, turns[0].Role)
	assert.Equal(t, protocol.RoleAssistant, turns[1].Role)
	require.Len(t, turns[1].ToolCalls, 1)
	assert.Equal(t, protocol.RoleTool, turns[2].Role)
	assert.Equal(t, "call_9", turns[2].ToolCallID, "tool turn carries the request ID")
	assert.Equal(t, protocol.RoleAssistant, turns[3].Role)

	// the second request to the service saw the tool output
	require.Len(t, c.seen, 2)
	assert.Len(t, c.seen[1], 3)
}

func TestRun_ToolFailureContinuesLoop(t *testing.T) {
	c := &scriptedCompleter{replies: []llm.Reply{
		{ToolCalls: []protocol.ToolRequest{toolCall("call_1", tools.ToolReadFile, `{"path": "/usr/lib/x"}`)}, FinishReason: "tool_calls"},
		answer("Could not read the file; nothing else looks wrong."),
	}}
	exec := &recordingExecutor{results: map[string]protocol.ToolResult{
		tools.ToolReadFile: {Output: "Error: permission denied for read file /usr/lib/x: operator declined", OK: false, ErrorKind: protocol.KindPermissionDenied},
	}}
	s := newSession(t, c, exec, nil)

	report := s.Run(context.Background(), "check /usr/lib/x")
	assert.Equal(t, protocol.StatusCompleted, report.Status, "a denied tool must not abort the investigation")
	require.Len(t, report.Ledger, 1)
	assert.False(t, report.Ledger[0].OK)
	assert.Equal(t, protocol.KindPermissionDenied, report.Ledger[0].ErrorKind)

	// the failure text was fed back as a tool turn
	turns := s.Transcript()
	assert.Contains(t, turns[2].Content, "permission denied")
}

func TestRun_ToolCallsWinOverProse(t *testing.T) {
	c := &scriptedCompleter{replies: []llm.Reply{
		{
			Content:      "I think it is clean, but let me check startup items.",
			ToolCalls:    []protocol.ToolRequest{toolCall("call_1", tools.ToolStartupItems, `{}`)},
			FinishReason: "tool_calls",
		},
		answer("Clean."),
	}}
	exec := &recordingExecutor{}
	s := newSession(t, c, exec, nil)

	report := s.Run(context.Background(), "quick check")
	assert.Equal(t, protocol.StatusCompleted, report.Status)
	assert.Equal(t, "Clean.", report.Findings)
	assert.Len(t, exec.calls, 1, "prose alongside tool calls must not end the loop")
}

func TestRun_IterationCapTerminates(t *testing.T) {
	// the service never concludes; the loop must anyway
	c := &scriptedCompleter{replies: []llm.Reply{
		{ToolCalls: []protocol.ToolRequest{toolCall("call_x", tools.ToolListProcesses, `{}`)}, FinishReason: "tool_calls", TokensUsed: 1},
	}}
	exec := &recordingExecutor{}
	s := newSession(t, c, exec, func(cfg *config.Config) { cfg.IterationCap = 4 })

	report := s.Run(context.Background(), "endless")
	assert.Equal(t, protocol.StatusBudgetExhausted, report.Status)
	assert.Equal(t, 4, report.Iterations)
	assert.Len(t, exec.calls, 4)
	assert.Contains(t, report.Findings, "iteration budget")
}

func TestRun_TokenCap(t *testing.T) {
	c := &scriptedCompleter{replies: []llm.Reply{
		{ToolCalls: []protocol.ToolRequest{toolCall("call_1", tools.ToolListProcesses, `{}`)}, FinishReason: "tool_calls", TokensUsed: 900},
		answer("never reached"),
	}}
	s := newSession(t, c, &recordingExecutor{}, func(cfg *config.Config) { cfg.TokenCap = 500 })

	report := s.Run(context.Background(), "expensive")
	assert.Equal(t, protocol.StatusBudgetExhausted, report.Status)
	assert.Equal(t, 900, report.TokensUsed)
	assert.Equal(t, 1, c.calls, "cap check happens before the next round trip")
	assert.Contains(t, report.Findings, "token budget")
}

func TestRun_ReasoningRetrySucceeds(t *testing.T) {
	c := &scriptedCompleter{
		errs:    []error{&protocol.ReasoningServiceError{Reason: "request failed", Err: fmt.Errorf("connection reset")}},
		replies: []llm.Reply{answer("ok after retry"), answer("ok after retry")},
	}
	s := newSession(t, c, &recordingExecutor{}, nil)

	report := s.Run(context.Background(), "flaky network")
	assert.Equal(t, protocol.StatusCompleted, report.Status)
	assert.Equal(t, "ok after retry", report.Findings)
	assert.Equal(t, 2, c.calls)
}

func TestRun_ReasoningPersistentFailureAborts(t *testing.T) {
	err := &protocol.ReasoningServiceError{Reason: "status 500 Internal Server Error"}
	c := &scriptedCompleter{errs: []error{err, err}, replies: []llm.Reply{{}}}
	s := newSession(t, c, &recordingExecutor{}, nil)

	report := s.Run(context.Background(), "down")
	assert.Equal(t, protocol.StatusAborted, report.Status)
	assert.Equal(t, 2, c.calls, "exactly one retry")
	assert.Contains(t, report.Findings, "reasoning service")
}

func TestRun_CancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &scriptedCompleter{replies: []llm.Reply{answer("unreachable")}}
	s := newSession(t, c, &recordingExecutor{}, nil)

	report := s.Run(ctx, "cancelled before start")
	assert.Equal(t, protocol.StatusAborted, report.Status)
	assert.Zero(t, c.calls)
}
