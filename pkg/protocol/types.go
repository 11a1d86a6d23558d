// Package protocol defines the shared data model for an investigation:
// conversation turns, tool invocation requests and results, the step
// ledger, and the typed error taxonomy every other package reports in.
package protocol

import (
	"encoding/json"
	"time"
)

// Role identifies who produced a conversation turn.
type Role string

// Turn role constants.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one entry in the conversation transcript. The transcript is
// append-only: turns are never mutated or reordered once added.
type Turn struct {
	Role       Role          `json:"role"`
	Content    string        `json:"content"`
	ToolCallID string        `json:"tool_call_id,omitempty"` // set on tool turns; correlates to a ToolRequest
	ToolCalls  []ToolRequest `json:"tool_calls,omitempty"`   // set on assistant turns that request tools
}

// ToolRequest is a single tool invocation requested by the reasoning
// service. Each request is consumed exactly once by the dispatcher.
type ToolRequest struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult is the uniform envelope a tool invocation resolves to. Output
// is opaque text fed back into the conversation; OK and ErrorKind exist for
// ledger accounting only and never influence what the reasoning service sees.
type ToolResult struct {
	ID        string    `json:"id"`
	Output    string    `json:"output"`
	OK        bool      `json:"ok"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"` // set when OK is false
}

// LedgerEntry records one executed tool invocation for the final report.
type LedgerEntry struct {
	Tool      string        `json:"tool"`
	Duration  time.Duration `json:"duration"`
	OK        bool          `json:"ok"`
	ErrorKind ErrorKind     `json:"error_kind,omitempty"` // set when OK is false
}

// SessionStatus is the terminal state of an investigation session.
type SessionStatus string

// Session status constants.
const (
	StatusCompleted       SessionStatus = "completed"        // reasoning service declared sufficiency
	StatusBudgetExhausted SessionStatus = "budget_exhausted" // iteration or token cap hit
	StatusAborted         SessionStatus = "aborted"          // reasoning service failure or cancellation
)

// Report is the final output of an investigation.
type Report struct {
	SessionID  string        `json:"session_id" yaml:"session_id"`
	Problem    string        `json:"problem" yaml:"problem"`
	Status     SessionStatus `json:"status" yaml:"status"`
	Findings   string        `json:"findings" yaml:"findings"`
	Iterations int           `json:"iterations" yaml:"iterations"`
	TokensUsed int           `json:"tokens_used" yaml:"tokens_used"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
	Ledger     []LedgerEntry `json:"ledger" yaml:"ledger"`
}

// FailedSteps returns the ledger entries whose invocation failed, in order.
func (r *Report) FailedSteps() []LedgerEntry {
	var failed []LedgerEntry
	for _, e := range r.Ledger {
		if !e.OK {
			failed = append(failed, e)
		}
	}
	return failed
}
