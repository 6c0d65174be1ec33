// Package committer writes an approved batch to the owner's ledger: it moves
// the account balance, creates one ledger entry per transaction and rolls the
// transactions into their budget categories.
package committer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/lox/statement-importer/internal/progress"
	"github.com/lox/statement-importer/internal/types"
	"github.com/shopspring/decimal"
)

// AccountStore reads and updates accounts
type AccountStore interface {
	GetAccount(ctx context.Context, owner string, id int64) (types.Account, error)
	UpdateAccountBalance(ctx context.Context, owner string, id int64, balance decimal.Decimal) error
}

// LedgerStore creates ledger entries
type LedgerStore interface {
	CreateLedgerEntry(ctx context.Context, entry types.LedgerEntry) (types.LedgerEntry, error)
}

// CategoryStore reads and updates budget categories
type CategoryStore interface {
	ListCategories(ctx context.Context, owner string) ([]types.BudgetCategory, error)
	UpdateCategory(ctx context.Context, category types.BudgetCategory) error
}

// ValidationError is returned when a batch is rejected before any write
type ValidationError struct {
	Reason string
	// IDs lists the offending transactions, if any
	IDs []string
}

func (e *ValidationError) Error() string {
	if len(e.IDs) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.IDs, ", "))
}

// IsValidationError reports whether err is a *ValidationError
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// placeholderCategories are category values that mean "not chosen yet"
var placeholderCategories = map[string]bool{
	"":              true,
	"uncategorized": true,
	"sem categoria": true,
	"__new__":       true,
}

// IsPlaceholderCategory reports whether a category value means "not chosen yet"
func IsPlaceholderCategory(category string) bool {
	return placeholderCategories[strings.ToLower(strings.TrimSpace(category))]
}

// Result summarises a commit
type Result struct {
	Saved             int
	CategoriesUpdated int
	// Errors collects per-entry and per-category write failures
	Errors []error
}

// Committer writes approved batches
type Committer struct {
	accounts   AccountStore
	ledger     LedgerStore
	categories CategoryStore
	logger     *log.Logger
	progress   progress.Progress
}

// New creates a committer
func New(accounts AccountStore, ledger LedgerStore, categories CategoryStore, logger *log.Logger) *Committer {
	return &Committer{
		accounts:   accounts,
		ledger:     ledger,
		categories: categories,
		logger:     logger,
		progress:   progress.Noop{},
	}
}

// WithProgress reports one step per ledger entry
func (c *Committer) WithProgress(p progress.Progress) *Committer {
	c.progress = p
	return c
}

// Commit validates the batch, then updates the account balance, writes the
// ledger entries and updates the categories, in that order. A validation
// failure or a balance failure returns before any ledger write. Later phases
// are not transactional: failed entries are collected in Result.Errors and
// the rest of the batch is still written.
func (c *Committer) Commit(ctx context.Context, owner string, approved []types.ReviewedTransaction, accountID int64) (*Result, error) {
	account, err := c.validate(ctx, owner, approved, accountID)
	if err != nil {
		return nil, err
	}

	delta := decimal.Zero
	for _, tx := range approved {
		delta = delta.Add(tx.Signed())
	}
	newBalance := account.Balance.Add(delta)
	if err := c.accounts.UpdateAccountBalance(ctx, owner, account.ID, newBalance); err != nil {
		return nil, fmt.Errorf("failed to update account balance: %w", err)
	}
	c.logger.Debug("Updated account balance", "account", account.Name, "from", account.Balance, "to", newBalance)

	result := &Result{}
	written := make([]types.ReviewedTransaction, 0, len(approved))
	for _, tx := range approved {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, err)
			break
		}
		_, err := c.ledger.CreateLedgerEntry(ctx, types.LedgerEntry{
			Owner:       owner,
			AccountID:   account.ID,
			Date:        tx.Date,
			Description: tx.Description,
			Amount:      tx.Amount,
			Type:        tx.Type,
			Category:    tx.Category,
			Source:      tx.Source,
			HashID:      tx.HashID(),
		})
		_ = c.progress.Add(1)
		if err != nil {
			c.logger.Warn("Failed to write ledger entry", "description", tx.Description, "date", tx.Date, "error", err)
			result.Errors = append(result.Errors, fmt.Errorf("failed to write %s %q: %w", tx.Date, tx.Description, err))
			continue
		}
		result.Saved++
		written = append(written, tx)
	}

	updated, errs := c.updateCategories(ctx, owner, written)
	result.CategoriesUpdated = updated
	result.Errors = append(result.Errors, errs...)

	c.logger.Info("Committed batch",
		"saved", result.Saved,
		"categories_updated", result.CategoriesUpdated,
		"errors", len(result.Errors),
		"balance", newBalance)

	return result, nil
}

func (c *Committer) validate(ctx context.Context, owner string, approved []types.ReviewedTransaction, accountID int64) (types.Account, error) {
	if accountID <= 0 {
		return types.Account{}, &ValidationError{Reason: "an account is required"}
	}
	if len(approved) == 0 {
		return types.Account{}, &ValidationError{Reason: "no approved transactions to commit"}
	}

	var missing []string
	for _, tx := range approved {
		if IsPlaceholderCategory(tx.Category) {
			missing = append(missing, tx.ID)
		}
	}
	if len(missing) > 0 {
		return types.Account{}, &ValidationError{Reason: "transactions without a category", IDs: missing}
	}

	account, err := c.accounts.GetAccount(ctx, owner, accountID)
	if err != nil {
		return types.Account{}, &ValidationError{Reason: fmt.Sprintf("account %d not found: %v", accountID, err)}
	}
	return account, nil
}

// updateCategories appends the written transactions as line items to their
// categories, one update per category
func (c *Committer) updateCategories(ctx context.Context, owner string, written []types.ReviewedTransaction) (int, []error) {
	if len(written) == 0 {
		return 0, nil
	}

	categories, err := c.categories.ListCategories(ctx, owner)
	if err != nil {
		return 0, []error{fmt.Errorf("failed to list categories: %w", err)}
	}
	byName := make(map[string]int, len(categories))
	for i, cat := range categories {
		byName[strings.ToLower(cat.Name)] = i
	}

	// keep first-seen order so updates are deterministic
	var order []int
	touched := make(map[int]bool)
	var errs []error
	for _, tx := range written {
		i, ok := byName[strings.ToLower(tx.Category)]
		if !ok {
			c.logger.Debug("No budget category for transaction", "category", tx.Category, "description", tx.Description)
			continue
		}
		item := types.LineItem{Date: tx.Date, Description: tx.Description, Amount: tx.Amount}
		if tx.Type == types.TransactionTypeIncome {
			categories[i].Incomes = append(categories[i].Incomes, item)
		} else {
			categories[i].Expenses = append(categories[i].Expenses, item)
		}
		if !touched[i] {
			touched[i] = true
			order = append(order, i)
		}
	}

	updated := 0
	for _, i := range order {
		if err := c.categories.UpdateCategory(ctx, categories[i]); err != nil {
			c.logger.Warn("Failed to update category", "category", categories[i].Name, "error", err)
			errs = append(errs, fmt.Errorf("failed to update category %q: %w", categories[i].Name, err))
			continue
		}
		updated++
	}
	return updated, errs
}
