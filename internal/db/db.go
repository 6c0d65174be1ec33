// Package db is the SQLite store for rules, budget categories, accounts and
// the ledger. Every query is scoped to an owner.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned when a row does not exist for the owner
var ErrNotFound = errors.New("not found")

// DB represents a SQLite database connection
type DB struct {
	db     *sql.DB
	logger *log.Logger
	now    func() time.Time
}

// New opens (and creates if needed) the database in dataDir
func New(dataDir string, logger *log.Logger) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return Open(filepath.Join(dataDir, "statements.db"), logger)
}

// Open opens the database file at path
func Open(path string, logger *log.Logger) (*DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.Debug("Opened database", "path", path)

	return &DB{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS rules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner TEXT NOT NULL,
			pattern TEXT NOT NULL,
			-- lower-cased, trimmed pattern used for upserts
			pattern_key TEXT NOT NULL,
			match_type TEXT NOT NULL,
			category TEXT NOT NULL,
			transaction_type TEXT NOT NULL,
			priority INTEGER NOT NULL DEFAULT 0,
			auto_apply INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner TEXT NOT NULL,
			name TEXT NOT NULL COLLATE NOCASE,
			category_type TEXT NOT NULL,
			-- JSON arrays
			keywords TEXT NOT NULL DEFAULT '[]',
			expenses TEXT NOT NULL DEFAULT '[]',
			incomes TEXT NOT NULL DEFAULT '[]',
			UNIQUE (owner, name)
		);

		CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner TEXT NOT NULL,
			name TEXT NOT NULL,
			balance TEXT NOT NULL DEFAULT '0',
			UNIQUE (owner, name)
		);

		CREATE TABLE IF NOT EXISTS ledger (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner TEXT NOT NULL,
			account_id INTEGER NOT NULL REFERENCES accounts(id),
			date TEXT NOT NULL,
			description TEXT NOT NULL,
			amount TEXT NOT NULL,
			type TEXT NOT NULL,
			category TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			hash_id TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_rules_owner ON rules(owner, transaction_type)",
		"CREATE INDEX IF NOT EXISTS idx_ledger_owner_hash ON ledger(owner, hash_id)",
		"CREATE INDEX IF NOT EXISTS idx_ledger_owner_date ON ledger(owner, date)",
	}
	for _, index := range indexes {
		if _, err := db.Exec(index); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

// checkAffected maps a write that touched no rows to ErrNotFound
func checkAffected(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}
