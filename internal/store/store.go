// Package store provides SQLite-based persistence for session event
// logs.
//
// The live path appends keystroke and edit events as they arrive; the
// batch path loads the complete ordered log for a session id at
// certificate-issuance time. Only event timings and categories are
// stored - never key values or document content.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"keywitness/internal/event"
	"keywitness/internal/keyclass"
)

// Schema for the keywitness session event store.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    session_id  TEXT PRIMARY KEY,
    created_at  INTEGER NOT NULL,
    closed_at   INTEGER
);

CREATE TABLE IF NOT EXISTS keystroke_events (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id      TEXT NOT NULL REFERENCES sessions(session_id),
    kind            TEXT NOT NULL,
    category        TEXT NOT NULL,
    timestamp_ms    INTEGER NOT NULL,
    dwell_time_ms   REAL,
    flight_time_ms  REAL
);

CREATE INDEX IF NOT EXISTS idx_keystrokes_session ON keystroke_events(session_id, timestamp_ms, id);

CREATE TABLE IF NOT EXISTS edit_events (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id      TEXT NOT NULL REFERENCES sessions(session_id),
    kind            TEXT NOT NULL,
    from_pos        INTEGER NOT NULL,
    to_pos          INTEGER NOT NULL,
    content_length  INTEGER NOT NULL,
    timestamp_ms    INTEGER NOT NULL,
    source          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_edits_session ON edit_events(session_id, timestamp_ms, id);
`

// ErrSessionNotFound is returned when a session id has no row.
var ErrSessionNotFound = errors.New("session not found")

// Store is the SQLite session event store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateSession registers a session id. Creating an existing session is
// a no-op.
func (s *Store) CreateSession(sessionID string, createdAtMs int64) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (session_id, created_at)
		VALUES (?, ?)
		ON CONFLICT(session_id) DO NOTHING`,
		sessionID, createdAtMs,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// CloseSession marks a session as ended.
func (s *Store) CloseSession(sessionID string, closedAtMs int64) error {
	res, err := s.db.Exec(`
		UPDATE sessions SET closed_at = ? WHERE session_id = ?`,
		closedAtMs, sessionID,
	)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// AppendKeystrokes appends keystroke events in one transaction.
func (s *Store) AppendKeystrokes(sessionID string, events []event.Keystroke) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO keystroke_events (session_id, kind, category, timestamp_ms, dwell_time_ms, flight_time_ms)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, k := range events {
		if _, err := stmt.Exec(
			sessionID, string(k.Kind), string(k.Category), k.TimestampMs,
			k.DwellTimeMs, k.FlightTimeMs,
		); err != nil {
			return fmt.Errorf("insert keystroke: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// AppendEdits appends edit events in one transaction.
func (s *Store) AppendEdits(sessionID string, edits []event.Edit) error {
	if len(edits) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO edit_events (session_id, kind, from_pos, to_pos, content_length, timestamp_ms, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range edits {
		if _, err := stmt.Exec(
			sessionID, string(e.Kind), e.From, e.To, e.ContentLength,
			e.TimestampMs, string(e.Source),
		); err != nil {
			return fmt.Errorf("insert edit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// LoadKeystrokes returns a session's keystroke events ordered by
// timestamp, then insertion order.
func (s *Store) LoadKeystrokes(sessionID string) ([]event.Keystroke, error) {
	rows, err := s.db.Query(`
		SELECT kind, category, timestamp_ms, dwell_time_ms, flight_time_ms
		FROM keystroke_events
		WHERE session_id = ?
		ORDER BY timestamp_ms, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load keystrokes: %w", err)
	}
	defer rows.Close()

	var events []event.Keystroke
	for rows.Next() {
		var (
			kind, category string
			k              event.Keystroke
			dwell, flight  sql.NullFloat64
		)
		if err := rows.Scan(&kind, &category, &k.TimestampMs, &dwell, &flight); err != nil {
			return nil, fmt.Errorf("scan keystroke: %w", err)
		}
		k.Kind = event.Kind(kind)
		k.Category = keyclass.Category(category)
		if dwell.Valid {
			v := dwell.Float64
			k.DwellTimeMs = &v
		}
		if flight.Valid {
			v := flight.Float64
			k.FlightTimeMs = &v
		}
		events = append(events, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keystrokes: %w", err)
	}
	return events, nil
}

// LoadEdits returns a session's edit events ordered by timestamp, then
// insertion order.
func (s *Store) LoadEdits(sessionID string) ([]event.Edit, error) {
	rows, err := s.db.Query(`
		SELECT kind, from_pos, to_pos, content_length, timestamp_ms, source
		FROM edit_events
		WHERE session_id = ?
		ORDER BY timestamp_ms, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load edits: %w", err)
	}
	defer rows.Close()

	var edits []event.Edit
	for rows.Next() {
		var (
			kind, source string
			e            event.Edit
		)
		if err := rows.Scan(&kind, &e.From, &e.To, &e.ContentLength, &e.TimestampMs, &source); err != nil {
			return nil, fmt.Errorf("scan edit: %w", err)
		}
		e.Kind = event.EditKind(kind)
		e.Source = event.EditSource(source)
		edits = append(edits, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edits: %w", err)
	}
	return edits, nil
}

// SessionExists reports whether a session id is registered.
func (s *Store) SessionExists(sessionID string) (bool, error) {
	var one int
	err := s.db.QueryRow(`
		SELECT 1 FROM sessions WHERE session_id = ?`, sessionID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("session exists: %w", err)
	}
	return true, nil
}
