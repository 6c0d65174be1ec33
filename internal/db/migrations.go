package db

import (
	"context"
	"database/sql"

	"github.com/charmbracelet/log"
)

// Migration is a schema change applied once, in ID order
type Migration struct {
	ID          int
	Description string
	Up          func(ctx context.Context, tx *sql.Tx) error
}

// migrations run after createTables. Never edit an applied migration; add a new one.
var migrations = []Migration{
	{
		ID:          1,
		Description: "index ledger by category",
		Up: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_ledger_owner_category ON ledger(owner, category)`)
			return err
		},
	},
	{
		ID:          2,
		Description: "index ledger by account",
		Up: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_ledger_account ON ledger(account_id, date)`)
			return err
		},
	},
	{
		ID:          3,
		Description: "key rules by category so a new correction adds a rule",
		Up: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				CREATE TABLE rules_rebuilt (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					owner TEXT NOT NULL,
					pattern TEXT NOT NULL,
					pattern_key TEXT NOT NULL,
					match_type TEXT NOT NULL,
					category TEXT NOT NULL,
					transaction_type TEXT NOT NULL,
					priority INTEGER NOT NULL DEFAULT 0,
					auto_apply INTEGER NOT NULL DEFAULT 1,
					created_at TEXT NOT NULL
				);
				INSERT INTO rules_rebuilt (id, owner, pattern, pattern_key, match_type, category, transaction_type, priority, auto_apply, created_at)
					SELECT id, owner, pattern, pattern_key, match_type, category, transaction_type, priority, auto_apply, created_at FROM rules;
				DROP TABLE rules;
				ALTER TABLE rules_rebuilt RENAME TO rules;
				CREATE INDEX IF NOT EXISTS idx_rules_owner ON rules(owner, transaction_type);
				CREATE UNIQUE INDEX IF NOT EXISTS idx_rules_key ON rules(owner, pattern_key, match_type, transaction_type, category);
			`)
			return err
		},
	},
}

// ApplyMigrations applies all pending migrations, each in its own transaction
func ApplyMigrations(ctx context.Context, db *sql.DB, logger *log.Logger) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.ID] {
			continue
		}
		logger.Info("Applying migration", "id", m.ID, "description", m.Description)

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := m.Up(ctx, tx); err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO migrations (id) VALUES (?)`, m.ID); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

func appliedMigrations(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		applied[id] = true
	}
	return applied, rows.Err()
}
