package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		serial TEXT,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		profiles_processed INTEGER DEFAULT 0,
		liked INTEGER DEFAULT 0,
		passed INTEGER DEFAULT 0,
		commented INTEGER DEFAULT 0,
		abandoned INTEGER DEFAULT 0,
		execution_failures INTEGER DEFAULT 0,
		halt_reason TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		session_id TEXT REFERENCES sessions(id),
		profile_name TEXT,
		profile_age INTEGER,
		action TEXT NOT NULL,
		comment TEXT,
		confidence REAL,
		rationale TEXT,
		status TEXT,
		status_reason TEXT,
		decided_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);
	CREATE INDEX IF NOT EXISTS idx_decisions_session ON decisions(session_id);
	CREATE INDEX IF NOT EXISTS idx_decisions_decided_at ON decisions(decided_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveSession inserts a new session row at session start
func (s *Store) SaveSession(sess *Session) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, serial, started_at)
		VALUES (?, ?, ?)
	`, sess.ID, sess.Serial, sess.StartedAt)

	return err
}

// CloseSession writes the final counters and halt reason for a session
func (s *Store) CloseSession(sess *Session) error {
	_, err := s.db.Exec(`
		UPDATE sessions SET
			ended_at = ?,
			profiles_processed = ?,
			liked = ?,
			passed = ?,
			commented = ?,
			abandoned = ?,
			execution_failures = ?,
			halt_reason = ?
		WHERE id = ?
	`, sess.EndedAt, sess.ProfilesProcessed, sess.Liked, sess.Passed,
		sess.Commented, sess.Abandoned, sess.ExecutionFailures, sess.HaltReason, sess.ID)

	return err
}

// SaveDecision inserts or updates a decision with its execution outcome
func (s *Store) SaveDecision(d *DecisionRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO decisions (id, session_id, profile_name, profile_age, action,
			comment, confidence, rationale, status, status_reason, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			status_reason = excluded.status_reason
	`, d.ID, d.SessionID, d.ProfileName, d.ProfileAge, d.Action,
		d.Comment, d.Confidence, d.Rationale, d.Status, d.StatusReason, d.DecidedAt)

	return err
}

// SessionDecisions returns all decisions recorded for a session, oldest first
func (s *Store) SessionDecisions(sessionID string) ([]DecisionRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, profile_name, profile_age, action,
			comment, confidence, rationale, status, status_reason, decided_at
		FROM decisions
		WHERE session_id = ?
		ORDER BY decided_at ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDecisions(rows)
}

// RecentSessions returns the most recently started sessions
func (s *Store) RecentSessions(limit int) ([]Session, error) {
	rows, err := s.db.Query(`
		SELECT id, serial, started_at, COALESCE(ended_at, started_at),
			profiles_processed, liked, passed, commented, abandoned,
			execution_failures, COALESCE(halt_reason, '')
		FROM sessions
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		err := rows.Scan(
			&sess.ID, &sess.Serial, &sess.StartedAt, &sess.EndedAt,
			&sess.ProfilesProcessed, &sess.Liked, &sess.Passed, &sess.Commented,
			&sess.Abandoned, &sess.ExecutionFailures, &sess.HaltReason,
		)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// DecidedToday counts decisions recorded since UTC midnight, across sessions.
// Used for the daily action cap.
func (s *Store) DecidedToday() (int, error) {
	midnight := time.Now().Truncate(24 * time.Hour)
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM decisions WHERE decided_at >= ?
	`, midnight).Scan(&count)
	return count, err
}

func scanDecisions(rows *sql.Rows) ([]DecisionRecord, error) {
	var decisions []DecisionRecord
	for rows.Next() {
		var d DecisionRecord
		var comment, rationale, status, statusReason sql.NullString
		var confidence sql.NullFloat64

		err := rows.Scan(
			&d.ID, &d.SessionID, &d.ProfileName, &d.ProfileAge, &d.Action,
			&comment, &confidence, &rationale, &status, &statusReason, &d.DecidedAt,
		)
		if err != nil {
			return nil, err
		}

		d.Comment = comment.String
		d.Confidence = confidence.Float64
		d.Rationale = rationale.String
		d.Status = status.String
		d.StatusReason = statusReason.String
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}
