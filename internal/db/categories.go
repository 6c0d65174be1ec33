package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lox/statement-importer/internal/types"
)

const categoryColumns = `id, owner, name, category_type, keywords, expenses, incomes`

// CreateCategory stores a new budget category
func (d *DB) CreateCategory(ctx context.Context, c types.BudgetCategory) (types.BudgetCategory, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return types.BudgetCategory{}, fmt.Errorf("category name is required")
	}
	if _, err := types.ParseCategoryType(string(c.CategoryType)); err != nil {
		return types.BudgetCategory{}, err
	}
	keywords, expenses, incomes, err := encodeCategory(c)
	if err != nil {
		return types.BudgetCategory{}, err
	}

	res, err := d.db.ExecContext(ctx, `
		INSERT INTO categories (owner, name, category_type, keywords, expenses, incomes)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.Owner, c.Name, string(c.CategoryType), keywords, expenses, incomes)
	if err != nil {
		return types.BudgetCategory{}, fmt.Errorf("failed to store category: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return types.BudgetCategory{}, fmt.Errorf("failed to get category id: %w", err)
	}
	return c, nil
}

// ListCategories returns the owner's categories ordered by name
func (d *DB) ListCategories(ctx context.Context, owner string) ([]types.BudgetCategory, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE owner = ? ORDER BY name`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []types.BudgetCategory
	for rows.Next() {
		var (
			c                           types.BudgetCategory
			typ                         string
			keywords, expenses, incomes string
		)
		if err := rows.Scan(&c.ID, &c.Owner, &c.Name, &typ, &keywords, &expenses, &incomes); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.CategoryType = types.CategoryType(typ)
		if err := json.Unmarshal([]byte(keywords), &c.Keywords); err != nil {
			return nil, fmt.Errorf("failed to decode keywords of %q: %w", c.Name, err)
		}
		if err := json.Unmarshal([]byte(expenses), &c.Expenses); err != nil {
			return nil, fmt.Errorf("failed to decode expenses of %q: %w", c.Name, err)
		}
		if err := json.Unmarshal([]byte(incomes), &c.Incomes); err != nil {
			return nil, fmt.Errorf("failed to decode incomes of %q: %w", c.Name, err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

// UpdateCategory replaces the keywords and line items of a category
func (d *DB) UpdateCategory(ctx context.Context, c types.BudgetCategory) error {
	keywords, expenses, incomes, err := encodeCategory(c)
	if err != nil {
		return err
	}
	res, err := d.db.ExecContext(ctx, `
		UPDATE categories SET category_type = ?, keywords = ?, expenses = ?, incomes = ?
		WHERE owner = ? AND id = ?
	`, string(c.CategoryType), keywords, expenses, incomes, c.Owner, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return checkAffected(res, "category", c.ID)
}

func encodeCategory(c types.BudgetCategory) (keywords, expenses, incomes string, err error) {
	enc := func(v any) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to encode category %q: %w", c.Name, err)
		}
		return string(b), nil
	}
	if c.Keywords == nil {
		c.Keywords = []string{}
	}
	if c.Expenses == nil {
		c.Expenses = []types.LineItem{}
	}
	if c.Incomes == nil {
		c.Incomes = []types.LineItem{}
	}
	if keywords, err = enc(c.Keywords); err != nil {
		return
	}
	if expenses, err = enc(c.Expenses); err != nil {
		return
	}
	incomes, err = enc(c.Incomes)
	return
}
