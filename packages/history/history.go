// Package history persists a log of completed transfers to SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS transfers (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	handle_id   TEXT NOT NULL,
	method      TEXT NOT NULL,
	url         TEXT NOT NULL,
	status      INTEGER,
	duration_ms INTEGER NOT NULL,
	error       TEXT,
	created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

// Entry is one recorded transfer.
type Entry struct {
	HandleID string
	Method   string
	URL      string
	Status   int
	Duration time.Duration
	Error    string
}

// Store is a SQLite-backed transfer log.
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

// Open opens (and if necessary initializes) the log at path. Use
// ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &Store{db: db, timeout: 5 * time.Second}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record appends one entry to the log.
func (s *Store) Record(e Entry) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transfers (handle_id, method, url, status, duration_ms, error) VALUES (?, ?, ?, ?, ?, ?)`,
		e.HandleID, e.Method, e.URL, e.Status, e.Duration.Milliseconds(), e.Error)
	if err != nil {
		return fmt.Errorf("failed to record transfer: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first.
func (s *Store) List(limit int) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT handle_id, method, url, status, duration_ms, COALESCE(error, '')
		 FROM transfers ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ms int64
		if err := rows.Scan(&e.HandleID, &e.Method, &e.URL, &e.Status, &ms, &e.Error); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.Duration = time.Duration(ms) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
