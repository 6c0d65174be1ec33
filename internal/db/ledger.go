package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/lox/statement-importer/internal/types"
)

// LedgerFilter narrows ListLedgerEntries. Zero fields match everything.
type LedgerFilter struct {
	AccountID int64
	Category  string
	// From and To bound the ISO date, inclusive
	From  string
	To    string
	Limit int
}

const ledgerColumns = `id, owner, account_id, date, description, amount, type, category, source, hash_id, created_at`

// CreateLedgerEntry stores a committed transaction
func (d *DB) CreateLedgerEntry(ctx context.Context, e types.LedgerEntry) (types.LedgerEntry, error) {
	if e.HashID == "" {
		e.HashID = types.HashID(e.Date, e.Amount, e.Description)
	}
	e.CreatedAt = d.now()

	res, err := d.db.ExecContext(ctx, `
		INSERT INTO ledger (owner, account_id, date, description, amount, type, category, source, hash_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Owner, e.AccountID, e.Date, e.Description, e.Amount.String(), string(e.Type), e.Category, e.Source, e.HashID, formatTime(e.CreatedAt))
	if err != nil {
		return types.LedgerEntry{}, fmt.Errorf("failed to store ledger entry: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return types.LedgerEntry{}, fmt.Errorf("failed to get ledger entry id: %w", err)
	}
	d.logger.Debug("Stored ledger entry", "id", e.ID, "date", e.Date, "description", e.Description, "amount", e.Amount)
	return e, nil
}

// ListLedgerEntries returns the owner's ledger entries, newest date first
func (d *DB) ListLedgerEntries(ctx context.Context, owner string, filter LedgerFilter) ([]types.LedgerEntry, error) {
	var (
		where = []string{"owner = ?"}
		args  = []any{owner}
	)
	if filter.AccountID > 0 {
		where = append(where, "account_id = ?")
		args = append(args, filter.AccountID)
	}
	if filter.Category != "" {
		where = append(where, "category = ? COLLATE NOCASE")
		args = append(args, filter.Category)
	}
	if filter.From != "" {
		where = append(where, "date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		where = append(where, "date <= ?")
		args = append(args, filter.To)
	}

	query := `SELECT ` + ledgerColumns + ` FROM ledger WHERE ` + strings.Join(where, " AND ") + ` ORDER BY date DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var entries []types.LedgerEntry
	for rows.Next() {
		var (
			e         types.LedgerEntry
			typ       string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Owner, &e.AccountID, &e.Date, &e.Description, &e.Amount, &typ, &e.Category, &e.Source, &e.HashID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.Type = types.TransactionType(typ)
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger: %w", err)
	}
	return entries, nil
}

// UpdateLedgerCategory changes the category of a committed entry. The
// category is the only field that may change after commit.
func (d *DB) UpdateLedgerCategory(ctx context.Context, owner string, id int64, category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return fmt.Errorf("category is required")
	}
	res, err := d.db.ExecContext(ctx, `UPDATE ledger SET category = ? WHERE owner = ? AND id = ?`, category, owner, id)
	if err != nil {
		return fmt.Errorf("failed to update ledger entry: %w", err)
	}
	return checkAffected(res, "ledger entry", id)
}

// DeleteLedgerEntry removes a committed entry
func (d *DB) DeleteLedgerEntry(ctx context.Context, owner string, id int64) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM ledger WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("failed to delete ledger entry: %w", err)
	}
	return checkAffected(res, "ledger entry", id)
}

// HasHash checks if a ledger entry with the hash exists for the owner
func (d *DB) HasHash(ctx context.Context, owner, hashID string) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM ledger WHERE owner = ? AND hash_id = ?)`, owner, hashID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check ledger hash: %w", err)
	}
	return exists, nil
}

// FilterExisting drops transactions that were already committed to the
// owner's ledger and returns how many were dropped
func (d *DB) FilterExisting(ctx context.Context, owner string, txs []types.CanonicalTransaction) ([]types.CanonicalTransaction, int, error) {
	filtered := make([]types.CanonicalTransaction, 0, len(txs))
	for _, tx := range txs {
		exists, err := d.HasHash(ctx, owner, tx.HashID())
		if err != nil {
			return nil, 0, err
		}
		if !exists {
			filtered = append(filtered, tx)
		}
	}
	return filtered, len(txs) - len(filtered), nil
}
