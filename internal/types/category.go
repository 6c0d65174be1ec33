package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryType is the kind of budget category
type CategoryType string

const (
	CategoryTypeExpense CategoryType = "expense"
	// CategoryTypeGuardian is the income-equivalent category type
	CategoryTypeGuardian CategoryType = "guardian"
	CategoryTypeIncome   CategoryType = "income"
)

// ParseCategoryType parses a category type name
func ParseCategoryType(s string) (CategoryType, error) {
	switch c := CategoryType(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryTypeExpense, CategoryTypeGuardian, CategoryTypeIncome:
		return c, nil
	}
	return "", fmt.Errorf("invalid category type %q", s)
}

// Direction returns the transaction direction a category of this type accepts
func (c CategoryType) Direction() TransactionType {
	if c == CategoryTypeExpense {
		return TransactionTypeExpense
	}
	return TransactionTypeIncome
}

// LineItem is one transaction rolled into a budget category
type LineItem struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// BudgetCategory is an owner's budget category
type BudgetCategory struct {
	ID           int64        `json:"id"`
	Owner        string       `json:"owner"`
	Name         string       `json:"name"`
	CategoryType CategoryType `json:"category_type"`
	Keywords     []string     `json:"keywords"`
	Expenses     []LineItem   `json:"expenses,omitempty"`
	Incomes      []LineItem   `json:"incomes,omitempty"`
}

// Accepts reports whether transactions of the given direction belong in this category
func (c BudgetCategory) Accepts(typ TransactionType) bool {
	return c.CategoryType.Direction() == typ
}

// Spent sums the expense line items
func (c BudgetCategory) Spent() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Expenses {
		total = total.Add(item.Amount)
	}
	return total
}

// Account is the commit target whose balance moves with committed transactions
type Account struct {
	ID      int64           `json:"id"`
	Owner   string          `json:"owner"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// LedgerEntry is a committed transaction. Only Category may change after creation.
type LedgerEntry struct {
	ID          int64           `json:"id"`
	Owner       string          `json:"owner"`
	AccountID   int64           `json:"account_id"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Source      string          `json:"source"`
	HashID      string          `json:"hash_id"`
	CreatedAt   time.Time       `json:"created_at"`
}
