// Package history persists conversation turns and the bound Telegram chat
// in a SQLite database, and resolves Claude Code session IDs from its
// per-project transcript directories.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Turn is one recorded message forwarded to Claude Code.
type Turn struct {
	Project string
	Display string
	At      time.Time
}

// Store is the bridge's SQLite-backed history.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at dbPath with WAL mode and a busy
// timeout, and applies migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("history: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}

	// WAL mode: allows concurrent readers while writing
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: wal mode: %w", err)
	}
	// Busy timeout: wait up to 5s if another process holds a lock
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: busy timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close checkpoints WAL and closes the database.
func (s *Store) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

func (s *Store) migrate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("history: begin migrate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("history: create metadata: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS turns (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			project    TEXT NOT NULL,
			display    TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("history: create turns: %w", err)
	}

	return tx.Commit()
}

// RecordTurn appends a forwarded message to the history.
func (s *Store) RecordTurn(project, display string) error {
	_, err := s.db.Exec(
		"INSERT INTO turns (project, display, created_at) VALUES (?, ?, ?)",
		project, display, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("history: record turn: %w", err)
	}
	return nil
}

// RecentTurns returns up to limit turns, newest first, at most one per
// project so the resume picker lists distinct sessions.
func (s *Store) RecentTurns(limit int) ([]Turn, error) {
	rows, err := s.db.Query(`
		SELECT project, display, MAX(created_at) AS at
		FROM turns
		GROUP BY project
		ORDER BY at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var at int64
		if err := rows.Scan(&t.Project, &t.Display, &at); err != nil {
			return nil, fmt.Errorf("history: scan turn: %w", err)
		}
		t.At = time.Unix(at, 0)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// SetChatID binds the Telegram chat that receives notifications and resumed
// prompt monitors.
func (s *Store) SetChatID(chatID int64) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO metadata (key, value) VALUES ('chat_id', ?)",
		fmt.Sprintf("%d", chatID),
	)
	if err != nil {
		return fmt.Errorf("history: set chat id: %w", err)
	}
	return nil
}

// ChatID returns the bound Telegram chat, or ok=false when no message has
// been received yet.
func (s *Store) ChatID() (int64, bool) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = 'chat_id'").Scan(&value)
	if err != nil {
		return 0, false
	}
	var id int64
	if _, err := fmt.Sscanf(value, "%d", &id); err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
