package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lox/statement-importer/internal/types"
)

// RuleFilter narrows ListRules. Zero fields match everything.
type RuleFilter struct {
	TransactionType types.TransactionType
	Category        string
	AutoApplyOnly   bool
}

// RuleUpdate holds the fields to change on a rule; nil fields are kept
type RuleUpdate struct {
	Pattern         *string
	MatchType       *types.MatchType
	Category        *string
	TransactionType *types.TransactionType
	Priority        *int
	AutoApply       *bool
}

const ruleColumns = `id, owner, pattern, match_type, category, transaction_type, priority, auto_apply, created_at`

func patternKey(pattern string) string {
	return strings.ToLower(strings.TrimSpace(pattern))
}

// CreateRule stores a rule. Rules are never changed by a later creation:
// storing the same owner, pattern (ignoring case), match type, direction and
// category again returns the existing rule untouched, and any other
// combination is a new rule. Use UpdateRule to edit one.
func (d *DB) CreateRule(ctx context.Context, r types.ClassificationRule) (types.ClassificationRule, error) {
	if _, err := types.NewClassificationRule(r.Owner, r.Pattern, r.MatchType, r.Category, r.TransactionType, r.Priority, r.AutoApply); err != nil {
		return types.ClassificationRule{}, fmt.Errorf("invalid rule: %w", err)
	}

	row := d.db.QueryRowContext(ctx, `
		INSERT INTO rules (owner, pattern, pattern_key, match_type, category, transaction_type, priority, auto_apply, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner, pattern_key, match_type, transaction_type, category) DO UPDATE SET
			pattern = rules.pattern
		RETURNING `+ruleColumns,
		r.Owner, r.Pattern, patternKey(r.Pattern), string(r.MatchType), r.Category, string(r.TransactionType),
		r.Priority, r.AutoApply, formatTime(d.now()),
	)
	saved, err := scanRule(row)
	if err != nil {
		return types.ClassificationRule{}, fmt.Errorf("failed to store rule: %w", err)
	}
	d.logger.Debug("Stored rule", "id", saved.ID, "pattern", saved.Pattern, "category", saved.Category)
	return saved, nil
}

// GetRule returns one rule of the owner
func (d *DB) GetRule(ctx context.Context, owner string, id int64) (types.ClassificationRule, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE owner = ? AND id = ?`, owner, id)
	r, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ClassificationRule{}, fmt.Errorf("rule %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.ClassificationRule{}, fmt.Errorf("failed to get rule: %w", err)
	}
	return r, nil
}

// ListRules returns the owner's rules, highest priority and newest first
func (d *DB) ListRules(ctx context.Context, owner string, filter RuleFilter) ([]types.ClassificationRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE owner = ?`
	args := []any{owner}
	if filter.TransactionType != "" {
		query += ` AND transaction_type = ?`
		args = append(args, string(filter.TransactionType))
	}
	if filter.Category != "" {
		query += ` AND category = ? COLLATE NOCASE`
		args = append(args, filter.Category)
	}
	if filter.AutoApplyOnly {
		query += ` AND auto_apply = 1`
	}
	query += ` ORDER BY priority DESC, created_at DESC, id DESC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []types.ClassificationRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	return rules, nil
}

// UpdateRule changes the given fields of a rule and returns the result
func (d *DB) UpdateRule(ctx context.Context, owner string, id int64, u RuleUpdate) (types.ClassificationRule, error) {
	r, err := d.GetRule(ctx, owner, id)
	if err != nil {
		return types.ClassificationRule{}, err
	}
	if u.Pattern != nil {
		r.Pattern = *u.Pattern
	}
	if u.MatchType != nil {
		r.MatchType = *u.MatchType
	}
	if u.Category != nil {
		r.Category = *u.Category
	}
	if u.TransactionType != nil {
		r.TransactionType = *u.TransactionType
	}
	if u.Priority != nil {
		r.Priority = *u.Priority
	}
	if u.AutoApply != nil {
		r.AutoApply = *u.AutoApply
	}
	if _, err := types.NewClassificationRule(r.Owner, r.Pattern, r.MatchType, r.Category, r.TransactionType, r.Priority, r.AutoApply); err != nil {
		return types.ClassificationRule{}, fmt.Errorf("invalid rule: %w", err)
	}

	_, err = d.db.ExecContext(ctx, `
		UPDATE rules SET pattern = ?, pattern_key = ?, match_type = ?, category = ?, transaction_type = ?, priority = ?, auto_apply = ?
		WHERE owner = ? AND id = ?
	`, r.Pattern, patternKey(r.Pattern), string(r.MatchType), r.Category, string(r.TransactionType), r.Priority, r.AutoApply, owner, id)
	if err != nil {
		return types.ClassificationRule{}, fmt.Errorf("failed to update rule: %w", err)
	}
	return r, nil
}

// DeleteRule removes a rule of the owner
func (d *DB) DeleteRule(ctx context.Context, owner string, id int64) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM rules WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return checkAffected(res, "rule", id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRule(s scanner) (types.ClassificationRule, error) {
	var (
		r         types.ClassificationRule
		matchType string
		typ       string
		createdAt string
	)
	if err := s.Scan(&r.ID, &r.Owner, &r.Pattern, &matchType, &r.Category, &typ, &r.Priority, &r.AutoApply, &createdAt); err != nil {
		return types.ClassificationRule{}, err
	}
	r.MatchType = types.MatchType(matchType)
	r.TransactionType = types.TransactionType(typ)
	t, err := parseTime(createdAt)
	if err != nil {
		return types.ClassificationRule{}, err
	}
	r.CreatedAt = t
	return r, nil
}
