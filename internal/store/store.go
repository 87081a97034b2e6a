// internal/store/store.go
// Package store persists debates, the audit trail of provider calls, credit
// usage and reader approvals in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store is a SQLite-backed repository.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path with WAL mode and foreign keys
// enabled, then applies the schema. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps pragmas and in-memory databases consistent and
	// serializes writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS debates (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT,
	created_at TEXT NOT NULL,
	original_text TEXT NOT NULL,
	title TEXT,
	belligerent_1 TEXT NOT NULL,
	belligerent_2 TEXT NOT NULL,
	summary_1 TEXT NOT NULL,
	summary_2 TEXT NOT NULL,
	winner TEXT NOT NULL,
	credit_cost REAL NOT NULL,
	analysis TEXT,
	evaluation TEXT,
	judgment TEXT,
	evaluation_formatted TEXT,
	judgment_formatted TEXT,
	evaluation_approval TEXT,
	judgment_approval TEXT,
	evaluation_approvals INTEGER NOT NULL DEFAULT 0,
	evaluation_disapprovals INTEGER NOT NULL DEFAULT 0,
	judgment_approvals INTEGER NOT NULL DEFAULT 0,
	judgment_disapprovals INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_debates_created ON debates(created_at);

CREATE TABLE IF NOT EXISTS llm_interactions (
	id TEXT PRIMARY KEY,
	run_id TEXT,
	debate_id INTEGER,
	timestamp TEXT NOT NULL,
	prompt_name TEXT NOT NULL,
	prompt_text TEXT NOT NULL,
	role TEXT,
	response TEXT NOT NULL,
	provider TEXT,
	model_used TEXT,
	success INTEGER NOT NULL,
	error_message TEXT,
	attempts INTEGER NOT NULL DEFAULT 1,
	FOREIGN KEY(debate_id) REFERENCES debates(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_interactions_run ON llm_interactions(run_id);
CREATE INDEX IF NOT EXISTS idx_interactions_debate ON llm_interactions(debate_id);

CREATE TABLE IF NOT EXISTS ip_credit_usage (
	ip_address TEXT PRIMARY KEY,
	credits_used REAL NOT NULL DEFAULT 0,
	last_updated TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS approval_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	debate_id INTEGER NOT NULL,
	ip_address TEXT NOT NULL,
	field TEXT NOT NULL,
	value TEXT NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE(debate_id, ip_address, field),
	FOREIGN KEY(debate_id) REFERENCES debates(id) ON DELETE CASCADE
);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
