// Package session persists turn history and computes end-of-session
// summaries for the training simulator.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lumenlearn/teachsim/schema"
)

// TurnRecord is one evaluated turn as persisted to history.
type TurnRecord struct {
	SessionID    string                           `json:"session_id"`
	Turn         int                              `json:"turn"`
	Response     string                           `json:"response"`
	Overall      float64                          `json:"overall"`
	PerCriterion map[schema.Criterion]float64     `json:"per_criterion"`
	Suggestions  []string                         `json:"suggestions"`
	PhaseBefore  schema.StudentPhase              `json:"phase_before"`
	PhaseAfter   schema.StudentPhase              `json:"phase_after"`
	Narration    string                           `json:"narration"`
	CreatedAt    time.Time                        `json:"created_at"`
}

// Store is the turn history contract. Appends are ordered per session.
type Store interface {
	Append(ctx context.Context, rec TurnRecord) error
	List(ctx context.Context, sessionID string) ([]TurnRecord, error)
	Close() error
}

const historySchema = `
CREATE TABLE IF NOT EXISTS turn_history (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT NOT NULL,
	turn          INTEGER NOT NULL,
	response      TEXT NOT NULL,
	overall       REAL NOT NULL,
	scores_json   TEXT NOT NULL,
	suggestions   TEXT NOT NULL,
	phase_before  INTEGER NOT NULL,
	phase_after   INTEGER NOT NULL,
	narration     TEXT,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turn_history_session ON turn_history(session_id, turn);
`

// SQLiteStore persists history in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database, enables WAL and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("session: pragma: %w", err)
	}
	if _, err := db.Exec(historySchema); err != nil {
		return nil, fmt.Errorf("session: migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, rec TurnRecord) error {
	scores, err := json.Marshal(rec.PerCriterion)
	if err != nil {
		return fmt.Errorf("session: marshal scores: %w", err)
	}
	suggestions, err := json.Marshal(rec.Suggestions)
	if err != nil {
		return fmt.Errorf("session: marshal suggestions: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO turn_history
			(session_id, turn, response, overall, scores_json, suggestions, phase_before, phase_after, narration, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Turn, rec.Response, rec.Overall, string(scores), string(suggestions),
		int(rec.PhaseBefore), int(rec.PhaseAfter), rec.Narration, rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("session: append turn: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, sessionID string) ([]TurnRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, turn, response, overall, scores_json, suggestions, phase_before, phase_after, narration, created_at
		FROM turn_history WHERE session_id = ? ORDER BY turn ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session: list turns: %w", err)
	}
	defer rows.Close()

	var out []TurnRecord
	for rows.Next() {
		var rec TurnRecord
		var scores, suggestions, created string
		var before, after int
		if err := rows.Scan(&rec.SessionID, &rec.Turn, &rec.Response, &rec.Overall,
			&scores, &suggestions, &before, &after, &rec.Narration, &created); err != nil {
			return nil, fmt.Errorf("session: scan turn: %w", err)
		}
		if err := json.Unmarshal([]byte(scores), &rec.PerCriterion); err != nil {
			return nil, fmt.Errorf("session: decode scores: %w", err)
		}
		if err := json.Unmarshal([]byte(suggestions), &rec.Suggestions); err != nil {
			return nil, fmt.Errorf("session: decode suggestions: %w", err)
		}
		rec.PhaseBefore = schema.StudentPhase(before)
		rec.PhaseAfter = schema.StudentPhase(after)
		if t, perr := time.Parse(time.RFC3339Nano, created); perr == nil {
			rec.CreatedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// MemoryStore keeps history in process memory. Used when no store path is
// configured and in tests.
type MemoryStore struct {
	mu      sync.Mutex
	history map[string][]TurnRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{history: make(map[string][]TurnRecord)}
}

func (m *MemoryStore) Append(_ context.Context, rec TurnRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[rec.SessionID] = append(m.history[rec.SessionID], rec)
	return nil
}

func (m *MemoryStore) List(_ context.Context, sessionID string) ([]TurnRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.history[sessionID]
	out := make([]TurnRecord, len(recs))
	copy(out, recs)
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
