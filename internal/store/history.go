// Package store persists healing history to SQLite so past runs can be
// inspected after the fact.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"pyheal/internal/engine"
	"pyheal/internal/logging"
)

// HistoryStore records sessions and their cycle outcomes.
type HistoryStore struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// NewHistoryStore opens (or creates) the SQLite database at the given
// path.
func NewHistoryStore(path string) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &HistoryStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *HistoryStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		started_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_filename ON sessions(filename);

	CREATE TABLE IF NOT EXISTS cycles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		cycle_index INTEGER NOT NULL,
		defects_before INTEGER NOT NULL,
		defects_after INTEGER NOT NULL,
		weight_before REAL NOT NULL,
		weight_after REAL NOT NULL,
		fixes_planned INTEGER NOT NULL,
		fixes_applied INTEGER NOT NULL,
		fixes_deferred INTEGER NOT NULL,
		duration_us INTEGER NOT NULL,
		stable INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(session_id, cycle_index)
	);
	CREATE INDEX IF NOT EXISTS idx_cycles_session ON cycles(session_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// SaveSession records a session's identity. Saving the same session twice
// is a no-op.
func (s *HistoryStore) SaveSession(id, filename string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO sessions (id, filename, started_at) VALUES (?, ?, ?)`,
		id, filename, startedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// SaveCycle records one cycle's outcome. Snapshots are not persisted; the
// counts and weights are what history queries need.
func (s *HistoryStore) SaveCycle(sessionID string, rec engine.CycleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO cycles (
			session_id, cycle_index, defects_before, defects_after,
			weight_before, weight_after,
			fixes_planned, fixes_applied, fixes_deferred,
			duration_us, stable
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, rec.Index,
		len(rec.DefectsBefore), len(rec.DefectsAfter),
		rec.WeightBefore, rec.WeightAfter,
		rec.FixesPlanned, rec.FixesApplied, rec.FixesDeferred,
		rec.Duration.Microseconds(), boolToInt(rec.Stable))
	if err != nil {
		return fmt.Errorf("failed to save cycle: %w", err)
	}
	logging.Get(logging.CategoryStore).Debug("saved cycle %d for session %s",
		rec.Index, sessionID)
	return nil
}

// SessionSummary is one row of the history listing.
type SessionSummary struct {
	ID           string
	Filename     string
	StartedAt    time.Time
	Cycles       int
	FixesApplied int
	FinalDefects int
	Stable       bool
}

// RecentSessions returns the most recent sessions, newest first.
func (s *HistoryStore) RecentSessions(limit int) ([]SessionSummary, error) {
	if limit < 1 {
		limit = 20
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT s.id, s.filename, s.started_at,
		       COUNT(c.id),
		       COALESCE(SUM(c.fixes_applied), 0),
		       COALESCE(MIN(c.defects_after), 0),
		       COALESCE(MAX(c.stable), 0)
		FROM sessions s
		LEFT JOIN cycles c ON c.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var stable int
		if err := rows.Scan(&sum.ID, &sum.Filename, &sum.StartedAt,
			&sum.Cycles, &sum.FixesApplied, &sum.FinalDefects, &stable); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sum.Stable = stable != 0
		out = append(out, sum)
	}
	return out, rows.Err()
}

// CycleRow is one persisted cycle outcome.
type CycleRow struct {
	Index         int
	DefectsBefore int
	DefectsAfter  int
	WeightBefore  float64
	WeightAfter   float64
	FixesPlanned  int
	FixesApplied  int
	FixesDeferred int
	Duration      time.Duration
	Stable        bool
}

// Cycles returns the cycle rows of one session in run order.
func (s *HistoryStore) Cycles(sessionID string) ([]CycleRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT cycle_index, defects_before, defects_after,
		       weight_before, weight_after,
		       fixes_planned, fixes_applied, fixes_deferred,
		       duration_us, stable
		FROM cycles
		WHERE session_id = ?
		ORDER BY cycle_index`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var out []CycleRow
	for rows.Next() {
		var r CycleRow
		var us int64
		var stable int
		if err := rows.Scan(&r.Index, &r.DefectsBefore, &r.DefectsAfter,
			&r.WeightBefore, &r.WeightAfter,
			&r.FixesPlanned, &r.FixesApplied, &r.FixesDeferred,
			&us, &stable); err != nil {
			return nil, fmt.Errorf("failed to scan cycle row: %w", err)
		}
		r.Duration = time.Duration(us) * time.Microsecond
		r.Stable = stable != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
