package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lox/statement-importer/internal/types"
	"github.com/shopspring/decimal"
)

// CreateAccount stores a new account
func (d *DB) CreateAccount(ctx context.Context, a types.Account) (types.Account, error) {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return types.Account{}, fmt.Errorf("account name is required")
	}
	res, err := d.db.ExecContext(ctx, `INSERT INTO accounts (owner, name, balance) VALUES (?, ?, ?)`,
		a.Owner, a.Name, a.Balance.String())
	if err != nil {
		return types.Account{}, fmt.Errorf("failed to store account: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return types.Account{}, fmt.Errorf("failed to get account id: %w", err)
	}
	return a, nil
}

// GetAccount returns one account of the owner
func (d *DB) GetAccount(ctx context.Context, owner string, id int64) (types.Account, error) {
	var a types.Account
	err := d.db.QueryRowContext(ctx, `SELECT id, owner, name, balance FROM accounts WHERE owner = ? AND id = ?`, owner, id).
		Scan(&a.ID, &a.Owner, &a.Name, &a.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Account{}, fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.Account{}, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// ListAccounts returns the owner's accounts ordered by name
func (d *DB) ListAccounts(ctx context.Context, owner string) ([]types.Account, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, owner, name, balance FROM accounts WHERE owner = ? ORDER BY name`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []types.Account
	for rows.Next() {
		var a types.Account
		if err := rows.Scan(&a.ID, &a.Owner, &a.Name, &a.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// UpdateAccountBalance sets the balance of an account
func (d *DB) UpdateAccountBalance(ctx context.Context, owner string, id int64, balance decimal.Decimal) error {
	res, err := d.db.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE owner = ? AND id = ?`, balance.String(), owner, id)
	if err != nil {
		return fmt.Errorf("failed to update account balance: %w", err)
	}
	return checkAffected(res, "account", id)
}
