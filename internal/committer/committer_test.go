package committer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/lox/statement-importer/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore implements all three store interfaces in memory
type fakeStore struct {
	accounts      map[int64]types.Account
	entries       []types.LedgerEntry
	categories    []types.BudgetCategory
	balanceWrites int
	failLedger    map[string]bool
	failBalance   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: map[int64]types.Account{
			1: {ID: 1, Owner: "alice", Name: "Conta corrente", Balance: decimal.NewFromInt(500)},
		},
		categories: []types.BudgetCategory{
			{ID: 1, Owner: "alice", Name: "Salário", CategoryType: types.CategoryTypeIncome},
			{ID: 2, Owner: "alice", Name: "Alimentação", CategoryType: types.CategoryTypeExpense,
				Expenses: []types.LineItem{{Date: "2024-02-01", Description: "PADARIA", Amount: decimal.NewFromInt(10)}}},
		},
		failLedger: map[string]bool{},
	}
}

func (f *fakeStore) GetAccount(_ context.Context, owner string, id int64) (types.Account, error) {
	a, ok := f.accounts[id]
	if !ok || a.Owner != owner {
		return types.Account{}, errors.New("not found")
	}
	return a, nil
}

func (f *fakeStore) UpdateAccountBalance(_ context.Context, _ string, id int64, balance decimal.Decimal) error {
	if f.failBalance {
		return errors.New("locked")
	}
	a := f.accounts[id]
	a.Balance = balance
	f.accounts[id] = a
	f.balanceWrites++
	return nil
}

func (f *fakeStore) CreateLedgerEntry(_ context.Context, entry types.LedgerEntry) (types.LedgerEntry, error) {
	if f.failLedger[entry.Description] {
		return types.LedgerEntry{}, fmt.Errorf("constraint failed")
	}
	entry.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, entry)
	return entry, nil
}

func (f *fakeStore) ListCategories(_ context.Context, owner string) ([]types.BudgetCategory, error) {
	out := make([]types.BudgetCategory, len(f.categories))
	copy(out, f.categories)
	return out, nil
}

func (f *fakeStore) UpdateCategory(_ context.Context, category types.BudgetCategory) error {
	for i := range f.categories {
		if f.categories[i].ID == category.ID {
			f.categories[i] = category
			return nil
		}
	}
	return errors.New("unknown category")
}

func reviewed(t *testing.T, id, desc, signed, category string) types.ReviewedTransaction {
	t.Helper()
	c, err := types.FromSigned("2024-03-15", desc, decimal.RequireFromString(signed), "extrato.csv")
	require.NoError(t, err)
	return types.ReviewedTransaction{ID: id, CanonicalTransaction: c, Category: category, Confidence: 1, Approved: true}
}

func newCommitter(store *fakeStore) *Committer {
	return New(store, store, store, log.New(io.Discard))
}

func TestCommitUpdatesBalanceLedgerAndCategories(t *testing.T) {
	store := newFakeStore()
	batch := []types.ReviewedTransaction{
		reviewed(t, "a", "SALARIO", "1000", "Salário"),
		reviewed(t, "b", "IFD*RESTAURANTE XYZ", "-300", "Alimentação"),
	}

	result, err := newCommitter(store).Commit(context.Background(), "alice", batch, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Saved)
	assert.Equal(t, 2, result.CategoriesUpdated)
	assert.Empty(t, result.Errors)

	assert.True(t, decimal.NewFromInt(1200).Equal(store.accounts[1].Balance), "balance was %s", store.accounts[1].Balance)
	assert.Equal(t, 1, store.balanceWrites)

	require.Len(t, store.entries, 2)
	assert.Equal(t, types.HashID("2024-03-15", decimal.NewFromInt(1000), "SALARIO"), store.entries[0].HashID)
	assert.Equal(t, types.TransactionTypeExpense, store.entries[1].Type)
	assert.Equal(t, int64(1), store.entries[1].AccountID)

	require.Len(t, store.categories[0].Incomes, 1)
	require.Len(t, store.categories[1].Expenses, 2, "line items are merged with existing ones")
	assert.Equal(t, "IFD*RESTAURANTE XYZ", store.categories[1].Expenses[1].Description)
	assert.True(t, decimal.NewFromInt(310).Equal(store.categories[1].Spent()))
}

func TestCommitValidation(t *testing.T) {
	tests := []struct {
		name      string
		accountID int64
		batch     func(t *testing.T) []types.ReviewedTransaction
		wantIDs   []string
	}{
		{
			name:      "missing account",
			accountID: 0,
			batch: func(t *testing.T) []types.ReviewedTransaction {
				return []types.ReviewedTransaction{reviewed(t, "a", "SALARIO", "1000", "Salário")}
			},
		},
		{
			name:      "unknown account",
			accountID: 42,
			batch: func(t *testing.T) []types.ReviewedTransaction {
				return []types.ReviewedTransaction{reviewed(t, "a", "SALARIO", "1000", "Salário")}
			},
		},
		{
			name:      "empty batch",
			accountID: 1,
			batch:     func(t *testing.T) []types.ReviewedTransaction { return nil },
		},
		{
			name:      "placeholder categories",
			accountID: 1,
			batch: func(t *testing.T) []types.ReviewedTransaction {
				return []types.ReviewedTransaction{
					reviewed(t, "a", "SALARIO", "1000", "Salário"),
					reviewed(t, "b", "XPTO", "-10", ""),
					reviewed(t, "c", "XPTO 2", "-10", "Sem Categoria"),
					reviewed(t, "d", "XPTO 3", "-10", "__new__"),
				}
			},
			wantIDs: []string{"b", "c", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			_, err := newCommitter(store).Commit(context.Background(), "alice", tt.batch(t), tt.accountID)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantIDs, verr.IDs)

			assert.Zero(t, store.balanceWrites)
			assert.Empty(t, store.entries)
			assert.True(t, decimal.NewFromInt(500).Equal(store.accounts[1].Balance))
		})
	}
}

func TestCommitBalanceFailureWritesNothing(t *testing.T) {
	store := newFakeStore()
	store.failBalance = true

	_, err := newCommitter(store).Commit(context.Background(), "alice",
		[]types.ReviewedTransaction{reviewed(t, "a", "SALARIO", "1000", "Salário")}, 1)
	require.Error(t, err)
	assert.False(t, IsValidationError(err))
	assert.Empty(t, store.entries)
}

func TestCommitCollectsPartialFailures(t *testing.T) {
	store := newFakeStore()
	store.failLedger["IFD*RESTAURANTE XYZ"] = true
	batch := []types.ReviewedTransaction{
		reviewed(t, "a", "SALARIO", "1000", "Salário"),
		reviewed(t, "b", "IFD*RESTAURANTE XYZ", "-300", "Alimentação"),
		reviewed(t, "c", "CINEMA", "-40", "Lazer"),
	}

	result, err := newCommitter(store).Commit(context.Background(), "alice", batch, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Saved)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error(), "IFD*RESTAURANTE XYZ")

	// the balance reflects the whole approved batch
	assert.True(t, decimal.NewFromInt(1160).Equal(store.accounts[1].Balance))

	// only written transactions reach categories, and unknown categories are skipped
	assert.Equal(t, 1, result.CategoriesUpdated)
	assert.Len(t, store.categories[1].Expenses, 1)
}

func TestIsPlaceholderCategory(t *testing.T) {
	for _, c := range []string{"", " ", "Uncategorized", "sem categoria", "__new__"} {
		assert.True(t, IsPlaceholderCategory(c), c)
	}
	assert.False(t, IsPlaceholderCategory("Transporte"))
}
