package classifier

import (
	"testing"
	"time"

	"github.com/lox/statement-importer/internal/types"
	"github.com/stretchr/testify/assert"
)

func rule(id int64, pattern string, match types.MatchType, category string, typ types.TransactionType, priority int) types.ClassificationRule {
	return types.ClassificationRule{
		ID:              id,
		Pattern:         pattern,
		MatchType:       match,
		Category:        category,
		TransactionType: typ,
		Priority:        priority,
		AutoApply:       true,
		CreatedAt:       time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Hour),
	}
}

func TestClassify(t *testing.T) {
	categories := []types.BudgetCategory{
		{Name: "Delivery", CategoryType: types.CategoryTypeExpense, Keywords: []string{"", "  ", "rappi"}},
		{Name: "Freela", CategoryType: types.CategoryTypeGuardian, Keywords: []string{"acme"}},
		{Name: "Only expenses", CategoryType: types.CategoryTypeExpense, Keywords: []string{"acme"}},
	}
	rules := []types.ClassificationRule{
		rule(1, "UBER *TRIP", types.MatchTypeContains, "Viagens", types.TransactionTypeExpense, 10),
		rule(2, "padaria do ze", types.MatchTypeExact, "Café", types.TransactionTypeExpense, 10),
	}

	tests := []struct {
		name        string
		description string
		typ         types.TransactionType
		want        types.Classification
	}{
		{
			name:        "dictionary match",
			description: "IFD*RESTAURANTE XYZ",
			typ:         types.TransactionTypeExpense,
			want:        types.Classification{Category: "Alimentação", Confidence: 0.7, Tier: types.TierDefault},
		},
		{
			name:        "rule beats dictionary",
			description: "uber *trip help.uber.com",
			typ:         types.TransactionTypeExpense,
			want:        types.Classification{Category: "Viagens", Confidence: 0.95, Tier: types.TierRule},
		},
		{
			name:        "rule is direction specific",
			description: "UBER *TRIP",
			typ:         types.TransactionTypeIncome,
			want:        types.Classification{},
		},
		{
			name:        "exact rule",
			description: "PADARIA DO ZE",
			typ:         types.TransactionTypeExpense,
			want:        types.Classification{Category: "Café", Confidence: 0.95, Tier: types.TierRule},
		},
		{
			name:        "exact rule needs equality",
			description: "PADARIA DO ZE LTDA",
			typ:         types.TransactionTypeExpense,
			want:        types.Classification{Category: "Alimentação", Confidence: 0.7, Tier: types.TierDefault},
		},
		{
			name:        "keyword beats dictionary",
			description: "RAPPI*PEDIDO",
			typ:         types.TransactionTypeExpense,
			want:        types.Classification{Category: "Delivery", Confidence: 0.9, Tier: types.TierKeyword},
		},
		{
			name:        "keyword category type follows direction",
			description: "ACME LTDA",
			typ:         types.TransactionTypeIncome,
			want:        types.Classification{Category: "Freela", Confidence: 0.9, Tier: types.TierKeyword},
		},
		{
			name:        "accent insensitive dictionary",
			description: "FARMÁCIA SÃO JOÃO",
			typ:         types.TransactionTypeExpense,
			want:        types.Classification{Category: "Saúde", Confidence: 0.7, Tier: types.TierDefault},
		},
		{
			name:        "dictionary order picks shopping before groceries",
			description: "MERCADO LIVRE*VENDEDOR",
			typ:         types.TransactionTypeExpense,
			want:        types.Classification{Category: "Compras", Confidence: 0.7, Tier: types.TierDefault},
		},
		{
			name:        "income dictionary",
			description: "SISPAG SALARIO MARCO",
			typ:         types.TransactionTypeIncome,
			want:        types.Classification{Category: "Salário", Confidence: 0.7, Tier: types.TierDefault},
		},
		{
			name:        "no match",
			description: "XPTO 123",
			typ:         types.TransactionTypeExpense,
			want:        types.Classification{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.description, tt.typ, categories, rules)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleOrdering(t *testing.T) {
	low := rule(1, "uber", types.MatchTypeContains, "Low", types.TransactionTypeExpense, 1)
	high := rule(2, "uber", types.MatchTypeContains, "High", types.TransactionTypeExpense, 5)
	older := rule(3, "uber", types.MatchTypeContains, "Older", types.TransactionTypeExpense, 5)
	older.CreatedAt = high.CreatedAt.Add(-time.Hour)

	got := Classify("UBER", types.TransactionTypeExpense, nil, []types.ClassificationRule{low, older, high})
	assert.Equal(t, "High", got.Category)
}

func TestRulesWithoutAutoApplyAreIgnored(t *testing.T) {
	r := rule(1, "uber", types.MatchTypeContains, "Manual only", types.TransactionTypeExpense, 100)
	r.AutoApply = false

	got := Classify("UBER *TRIP", types.TransactionTypeExpense, nil, []types.ClassificationRule{r})
	assert.Equal(t, "Transporte", got.Category)
	assert.Equal(t, types.TierDefault, got.Tier)
}

func TestFold(t *testing.T) {
	assert.Equal(t, "alimentacao", Fold("Alimentação"))
	assert.Equal(t, "saude e educacao", Fold("SAÚDE E EDUCAÇÃO"))
}

func TestDefaultCategories(t *testing.T) {
	expenses := DefaultCategories(types.TransactionTypeExpense)
	assert.Equal(t, "Alimentação", expenses[0])
	assert.Contains(t, expenses, "Transporte")
	assert.Contains(t, DefaultCategories(types.TransactionTypeIncome), "Salário")
}
