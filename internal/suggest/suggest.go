package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/lox/statement-importer/internal/classifier"
	"github.com/lox/statement-importer/internal/review"
	"github.com/lox/statement-importer/internal/types"
	"golang.org/x/exp/slices"
)

// DefaultMaxTransactions bounds the number of transactions sent in one prompt
const DefaultMaxTransactions = 50

// Suggestion is one hint returned by the oracle
type Suggestion struct {
	ID       string `json:"id"`
	Category string `json:"category"`
}

type response struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// Schema is the JSON schema the oracle must answer with
var Schema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"suggestions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":       map[string]any{"type": "string", "description": "Transaction id from the list"},
					"category": map[string]any{"type": "string", "description": "One of the allowed categories"},
				},
				"required": []string{"id", "category"},
			},
		},
	},
	"required": []string{"suggestions"},
}

// Service sets category hints on uncategorised transactions
type Service struct {
	oracle          Oracle
	logger          *log.Logger
	maxTransactions int
}

// NewService creates a suggestion service
func NewService(oracle Oracle, logger *log.Logger) *Service {
	return &Service{oracle: oracle, logger: logger, maxTransactions: DefaultMaxTransactions}
}

// WithMaxTransactions bounds the prompt size
func (s *Service) WithMaxTransactions(n int) *Service {
	if n > 0 {
		s.maxTransactions = n
	}
	return s
}

// SuggestCategories asks the oracle for hints on the batch's uncategorised
// transactions and returns how many hints were set. Only names of existing
// categories accepted for the transaction's direction are kept. Oracle
// failures are logged and yield zero hints.
func (s *Service) SuggestCategories(ctx context.Context, batch *review.Batch, categories []types.BudgetCategory) int {
	pending := batch.Uncategorized()
	if len(pending) == 0 {
		return 0
	}
	if len(pending) > s.maxTransactions {
		pending = pending[:s.maxTransactions]
	}

	allowed := allowedCategories(categories)
	raw, err := s.oracle.InvokeSuggestion(ctx, buildPrompt(pending, allowed), Schema)
	if err != nil {
		s.logger.Warn("Category suggestions unavailable", "error", err)
		return 0
	}

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		s.logger.Warn("Ignoring malformed category suggestions", "error", err)
		return 0
	}

	byID := make(map[string]types.ReviewedTransaction, len(pending))
	for _, tx := range pending {
		byID[tx.ID] = tx
	}

	hinted := 0
	for _, sug := range resp.Suggestions {
		tx, ok := byID[sug.ID]
		if !ok {
			s.logger.Debug("Suggestion for unknown transaction", "id", sug.ID)
			continue
		}
		name, ok := allowed[tx.Type][strings.ToLower(strings.TrimSpace(sug.Category))]
		if !ok {
			s.logger.Debug("Suggestion outside allowed categories", "id", sug.ID, "category", sug.Category)
			continue
		}
		if err := batch.SetHint(tx.ID, name); err != nil {
			continue
		}
		delete(byID, sug.ID)
		hinted++
	}

	s.logger.Info("Category suggestions", "requested", len(pending), "hinted", hinted)
	return hinted
}

// allowedCategories maps each direction to its category names, keyed by lower-cased name
func allowedCategories(categories []types.BudgetCategory) map[types.TransactionType]map[string]string {
	allowed := map[types.TransactionType]map[string]string{
		types.TransactionTypeExpense: {},
		types.TransactionTypeIncome:  {},
	}
	for _, typ := range []types.TransactionType{types.TransactionTypeExpense, types.TransactionTypeIncome} {
		for _, name := range classifier.DefaultCategories(typ) {
			allowed[typ][strings.ToLower(name)] = name
		}
	}
	for _, c := range categories {
		allowed[c.CategoryType.Direction()][strings.ToLower(c.Name)] = c.Name
	}
	return allowed
}

func buildPrompt(pending []types.ReviewedTransaction, allowed map[types.TransactionType]map[string]string) string {
	var b strings.Builder
	b.WriteString("Suggest a category for each bank transaction below.\n\n")
	for _, typ := range []types.TransactionType{types.TransactionTypeExpense, types.TransactionTypeIncome} {
		names := make([]string, 0, len(allowed[typ]))
		for _, name := range allowed[typ] {
			names = append(names, name)
		}
		slices.Sort(names)
		fmt.Fprintf(&b, "Allowed %s categories: %s\n", typ, strings.Join(names, ", "))
	}
	b.WriteString("\nTransactions (id | date | type | amount | description):\n")
	for _, tx := range pending {
		fmt.Fprintf(&b, "%s | %s | %s | %s | %s\n", tx.ID, tx.Date, tx.Type, tx.Amount.StringFixed(2), tx.Description)
	}
	b.WriteString("\nOnly use allowed categories for the transaction's type. Skip transactions you are unsure about.")
	return b.String()
}
