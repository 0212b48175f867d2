package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB represents the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.InitSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// InitSchema creates the database tables if they don't exist
func (db *DB) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS acquisitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		prompt TEXT NOT NULL,
		reply TEXT,
		outcome TEXT NOT NULL,
		cause TEXT,
		attempts INTEGER NOT NULL DEFAULT 0,
		fallback_cycles INTEGER NOT NULL DEFAULT 0,
		location TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		started_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS acquisition_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		acquisition_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		attempt INTEGER NOT NULL DEFAULT 0,
		cycle INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (acquisition_id) REFERENCES acquisitions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_acquisitions_started_at ON acquisitions(started_at);
	CREATE INDEX IF NOT EXISTS idx_acquisitions_outcome ON acquisitions(outcome);
	CREATE INDEX IF NOT EXISTS idx_events_acquisition_id ON acquisition_events(acquisition_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// SaveAcquisition stores an acquisition and its events in one transaction.
func (db *DB) SaveAcquisition(a *Acquisition, events []Event) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO acquisitions (session_id, prompt, reply, outcome, cause, attempts, fallback_cycles, location, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.SessionID,
		a.Prompt,
		a.Reply,
		a.Outcome,
		a.Cause,
		a.Attempts,
		a.FallbackCycles,
		a.Location,
		a.Duration.Milliseconds(),
		a.StartedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save acquisition: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO acquisition_events (acquisition_id, kind, attempt, cycle, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.Exec(id, ev.Kind, ev.Attempt, ev.Cycle, ev.CreatedAt); err != nil {
			return 0, fmt.Errorf("failed to save event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	a.ID = id
	return id, nil
}

const acquisitionColumns = `id, session_id, prompt, COALESCE(reply, ''), outcome, COALESCE(cause, ''),
	attempts, fallback_cycles, COALESCE(location, ''), duration_ms, started_at`

func scanAcquisition(row interface{ Scan(...interface{}) error }) (Acquisition, error) {
	var a Acquisition
	var ms int64
	err := row.Scan(
		&a.ID,
		&a.SessionID,
		&a.Prompt,
		&a.Reply,
		&a.Outcome,
		&a.Cause,
		&a.Attempts,
		&a.FallbackCycles,
		&a.Location,
		&ms,
		&a.StartedAt,
	)
	a.Duration = time.Duration(ms) * time.Millisecond
	return a, err
}

// GetAcquisition retrieves an acquisition by ID
func (db *DB) GetAcquisition(id int64) (*Acquisition, error) {
	row := db.conn.QueryRow(`SELECT `+acquisitionColumns+` FROM acquisitions WHERE id = ?`, id)
	a, err := scanAcquisition(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("acquisition not found")
		}
		return nil, fmt.Errorf("failed to get acquisition: %w", err)
	}
	return &a, nil
}

// GetRecentAcquisitions retrieves the most recent acquisitions, newest first.
func (db *DB) GetRecentAcquisitions(limit int) ([]Acquisition, error) {
	rows, err := db.conn.Query(`SELECT `+acquisitionColumns+` FROM acquisitions ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query acquisitions: %w", err)
	}
	defer rows.Close()

	var out []Acquisition
	for rows.Next() {
		a, err := scanAcquisition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan acquisition: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetEvents retrieves the events of an acquisition in order.
func (db *DB) GetEvents(acquisitionID int64) ([]Event, error) {
	rows, err := db.conn.Query(`
		SELECT id, acquisition_id, kind, attempt, cycle, created_at
		FROM acquisition_events
		WHERE acquisition_id = ?
		ORDER BY id ASC
	`, acquisitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.AcquisitionID, &ev.Kind, &ev.Attempt, &ev.Cycle, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// GetStatistics returns database statistics
func (db *DB) GetStatistics() (*Stats, error) {
	stats := &Stats{ByOutcome: make(map[string]int)}

	rows, err := db.conn.Query(`SELECT outcome, COUNT(*) FROM acquisitions GROUP BY outcome`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			rows.Close()
			return nil, err
		}
		stats.ByOutcome[outcome] = n
		stats.Total += n
	}
	rows.Close()

	err = db.conn.QueryRow(`SELECT COALESCE(SUM(attempts), 0), COALESCE(SUM(fallback_cycles), 0) FROM acquisitions`).
		Scan(&stats.Regenerates, &stats.FallbackCycles)
	if err != nil {
		return nil, err
	}

	var last time.Time
	err = db.conn.QueryRow(`SELECT started_at FROM acquisitions ORDER BY started_at DESC LIMIT 1`).Scan(&last)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if err == nil {
		stats.LastStartedAt = &last
	}

	return stats, nil
}
