// Package transcript persists investigation sessions to SQLite. The
// transcript is an append-only audit log: rows are inserted, the session
// row is finalized once, and nothing is ever updated or deleted after
// that. Investigations run fine without it; persistence failures are the
// caller's to log and shrug off.
package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"autoav/pkg/protocol"
)

// Store manages the sessions, turns, and steps tables.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the transcript database at path and
// applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create transcript dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open transcript db: %w", err)
	}
	store, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore wraps an existing database handle and applies the schema.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(protocol.SchemaDDL); err != nil {
		return nil, fmt.Errorf("apply transcript schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// BeginSession records the start of an investigation.
func (s *Store) BeginSession(ctx context.Context, id, problem string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, problem, status, started_at) VALUES (?, ?, 'running', ?)`,
		id, problem, startedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	return nil
}

// AppendTurn appends one conversation turn. Assistant tool requests are
// serialized into the tool_calls column so a session can be replayed.
func (s *Store) AppendTurn(ctx context.Context, sessionID string, turn protocol.Turn) error {
	var calls sql.NullString
	if len(turn.ToolCalls) > 0 {
		b, err := json.Marshal(turn.ToolCalls)
		if err != nil {
			return fmt.Errorf("encode tool calls: %w", err)
		}
		calls = sql.NullString{String: string(b), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (session_id, role, content, tool_call_id, tool_calls) VALUES (?, ?, ?, ?, ?)`,
		sessionID, string(turn.Role), turn.Content, nullable(turn.ToolCallID), calls,
	)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// AppendStep appends one ledger entry.
func (s *Store) AppendStep(ctx context.Context, sessionID string, e protocol.LedgerEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO steps (session_id, tool, duration_ms, ok, error_kind) VALUES (?, ?, ?, ?, ?)`,
		sessionID, e.Tool, e.Duration.Milliseconds(), e.OK, nullable(string(e.ErrorKind)),
	)
	if err != nil {
		return fmt.Errorf("append step: %w", err)
	}
	return nil
}

// FinishSession finalizes the session row with its terminal state.
func (s *Store) FinishSession(ctx context.Context, report protocol.Report) error {
	finished := report.StartedAt.Add(report.Duration)
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, iterations = ?, tokens_used = ?, finished_at = ? WHERE id = ?`,
		string(report.Status), report.Iterations, report.TokensUsed,
		finished.UTC().Format(time.RFC3339), report.SessionID,
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	return nil
}

// SaveReport persists a completed investigation in one shot: session row,
// every turn, every ledger entry, final state.
func (s *Store) SaveReport(ctx context.Context, report protocol.Report, turns []protocol.Turn) error {
	if err := s.BeginSession(ctx, report.SessionID, report.Problem, report.StartedAt); err != nil {
		return err
	}
	for _, t := range turns {
		if err := s.AppendTurn(ctx, report.SessionID, t); err != nil {
			return err
		}
	}
	for _, e := range report.Ledger {
		if err := s.AppendStep(ctx, report.SessionID, e); err != nil {
			return err
		}
	}
	return s.FinishSession(ctx, report)
}

// Session fetches one session row.
func (s *Store) Session(ctx context.Context, id string) (protocol.SessionRow, error) {
	var row protocol.SessionRow
	var finished sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, problem, status, iterations, tokens_used, started_at, finished_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&row.ID, &row.Problem, &row.Status, &row.Iterations, &row.TokensUsed, &row.StartedAt, &finished)
	if err != nil {
		return protocol.SessionRow{}, fmt.Errorf("load session %s: %w", id, err)
	}
	row.FinishedAt = finished.String
	return row, nil
}

// RecentSessions lists the newest sessions, most recent first.
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]protocol.SessionRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, problem, status, iterations, tokens_used, started_at, finished_at
		 FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []protocol.SessionRow
	for rows.Next() {
		var row protocol.SessionRow
		var finished sql.NullString
		if err := rows.Scan(&row.ID, &row.Problem, &row.Status, &row.Iterations, &row.TokensUsed, &row.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		row.FinishedAt = finished.String
		out = append(out, row)
	}
	return out, rows.Err()
}

// Turns fetches a session's conversation in insertion order.
func (s *Store) Turns(ctx context.Context, sessionID string) ([]protocol.TurnRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, tool_call_id, tool_calls, created_at
		 FROM turns WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var out []protocol.TurnRow
	for rows.Next() {
		var row protocol.TurnRow
		var callID, calls sql.NullString
		if err := rows.Scan(&row.ID, &row.SessionID, &row.Role, &row.Content, &callID, &calls, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		row.ToolCallID = callID.String
		row.ToolCalls = calls.String
		out = append(out, row)
	}
	return out, rows.Err()
}

// Steps fetches a session's ledger in insertion order.
func (s *Store) Steps(ctx context.Context, sessionID string) ([]protocol.StepRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, tool, duration_ms, ok, error_kind, created_at
		 FROM steps WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var out []protocol.StepRow
	for rows.Next() {
		var row protocol.StepRow
		var kind sql.NullString
		if err := rows.Scan(&row.ID, &row.SessionID, &row.Tool, &row.DurationMS, &row.OK, &kind, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		row.ErrorKind = kind.String
		out = append(out, row)
	}
	return out, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
