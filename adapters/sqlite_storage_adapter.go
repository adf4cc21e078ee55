package adapters

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ripple_events (
	position INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT NOT NULL,
	body     TEXT NOT NULL
)`

// SQLiteStorageAdapter keeps pending events in a local SQLite database, one row per event.
type SQLiteStorageAdapter struct {
	db        *sql.DB
	maxEvents int
}

var _ StorageAdapter = (*SQLiteStorageAdapter)(nil)

// NewSQLiteStorageAdapter opens (or creates) the database at path.
// A positive maxEvents caps how many events Save accepts.
func NewSQLiteStorageAdapter(path string, maxEvents int) (*SQLiteStorageAdapter, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create events table: %w", err)
	}
	return &SQLiteStorageAdapter{db: db, maxEvents: maxEvents}, nil
}

// Save replaces the stored events in a single transaction.
func (s *SQLiteStorageAdapter) Save(events []Event) error {
	if s.maxEvents > 0 && len(events) > s.maxEvents {
		return &StorageQuotaExceededError{
			Message: fmt.Sprintf("storage quota exceeded: %d events, limit %d", len(events), s.maxEvents),
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM ripple_events`); err != nil {
		return fmt.Errorf("delete events: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO ripple_events (event_id, body) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, event := range events {
		body, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal event %q: %w", event.Name, err)
		}
		if _, err := stmt.Exec(event.ID, string(body)); err != nil {
			return fmt.Errorf("insert event %q: %w", event.Name, err)
		}
	}
	return tx.Commit()
}

// Load returns the stored events in the order they were saved.
func (s *SQLiteStorageAdapter) Load() ([]Event, error) {
	rows, err := s.db.Query(`SELECT body FROM ripple_events ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var event Event
		if err := json.Unmarshal([]byte(body), &event); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *SQLiteStorageAdapter) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM ripple_events`); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQLiteStorageAdapter) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
