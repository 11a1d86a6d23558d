package protocol

// SchemaDDL defines the SQLite schema for the session transcript database.
// Tables: sessions, turns, steps. The transcript is an append-only audit
// log; core correctness never depends on it being durable.
// Execute against a SQLite database with: db.Exec(SchemaDDL)
const SchemaDDL = `
-- One row per investigation session
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    problem TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'running',
    iterations INTEGER NOT NULL DEFAULT 0,
    tokens_used INTEGER NOT NULL DEFAULT 0,
    started_at TEXT NOT NULL DEFAULT (datetime('now')),
    finished_at TEXT
);

-- Conversation transcript, append-only
CREATE TABLE IF NOT EXISTS turns (
    id INTEGER PRIMARY KEY,
    session_id TEXT NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    tool_call_id TEXT,
    tool_calls TEXT,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    FOREIGN KEY (session_id) REFERENCES sessions(id)
);

-- Step ledger: one row per executed tool invocation
CREATE TABLE IF NOT EXISTS steps (
    id INTEGER PRIMARY KEY,
    session_id TEXT NOT NULL,
    tool TEXT NOT NULL,
    duration_ms INTEGER NOT NULL,
    ok INTEGER NOT NULL,
    error_kind TEXT,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    FOREIGN KEY (session_id) REFERENCES sessions(id)
);

CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id);
CREATE INDEX IF NOT EXISTS idx_steps_session ON steps(session_id);
`

// SessionRow represents a row in the sessions SQLite table.
type SessionRow struct {
	ID         string `json:"id"`
	Problem    string `json:"problem"`
	Status     string `json:"status"`
	Iterations int    `json:"iterations"`
	TokensUsed int    `json:"tokens_used"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
}

// TurnRow represents a row in the turns SQLite table.
type TurnRow struct {
	ID         int64  `json:"id"`
	SessionID  string `json:"session_id"`
	Role       string `json:"role"`
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id"`
	ToolCalls  string `json:"tool_calls"` // JSON array of tool requests, assistant turns only
	CreatedAt  string `json:"created_at"`
}

// StepRow represents a row in the steps SQLite table.
type StepRow struct {
	ID         int64  `json:"id"`
	SessionID  string `json:"session_id"`
	Tool       string `json:"tool"`
	DurationMS int64  `json:"duration_ms"`
	OK         bool   `json:"ok"`
	ErrorKind  string `json:"error_kind"`
	CreatedAt  string `json:"created_at"`
}
