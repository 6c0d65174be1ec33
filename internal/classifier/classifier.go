// Package classifier assigns a category to a transaction description using
// three tiers in fixed order: the owner's rules, the owner's category keywords
// and the built-in dictionaries. The first match wins; there is no scoring.
package classifier

import (
	"strings"
	"unicode"

	"github.com/lox/statement-importer/internal/types"
	"golang.org/x/exp/slices"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Classifier holds the built-in dictionaries used by the last tier
type Classifier struct {
	expenses Dictionary
	incomes  Dictionary
}

// New creates a classifier with the built-in dictionaries
func New() *Classifier {
	return NewWithDictionaries(DefaultExpenses, DefaultIncomes)
}

// NewWithDictionaries creates a classifier with custom dictionaries
func NewWithDictionaries(expenses, incomes Dictionary) *Classifier {
	return &Classifier{
		expenses: fold(expenses),
		incomes:  fold(incomes),
	}
}

var std = New()

// Classify classifies one description with the built-in dictionaries
func Classify(description string, typ types.TransactionType, categories []types.BudgetCategory, rules []types.ClassificationRule) types.Classification {
	return std.Prepare(categories, rules).Classify(description, typ)
}

// Prepared is a classifier bound to one owner's categories and rules
type Prepared struct {
	dict       *Classifier
	rules      []types.ClassificationRule
	categories []types.BudgetCategory
}

// Prepare sorts and filters the rules once so a batch can be classified cheaply
func (c *Classifier) Prepare(categories []types.BudgetCategory, rules []types.ClassificationRule) *Prepared {
	active := make([]types.ClassificationRule, 0, len(rules))
	for _, r := range rules {
		if r.AutoApply {
			active = append(active, r)
		}
	}
	slices.SortStableFunc(active, types.CompareRules)
	return &Prepared{dict: c, rules: active, categories: categories}
}

// Classify runs the tiers in order and returns the zero Classification when nothing matches
func (p *Prepared) Classify(description string, typ types.TransactionType) types.Classification {
	if c, ok := p.matchRule(description, typ); ok {
		return c
	}
	if c, ok := p.matchKeyword(description, typ); ok {
		return c
	}
	if c, ok := p.dict.matchDefault(description, typ); ok {
		return c
	}
	return types.Classification{}
}

func (p *Prepared) matchRule(description string, typ types.TransactionType) (types.Classification, bool) {
	for _, r := range p.rules {
		if r.Matches(description, typ) {
			return types.Classification{
				Category:   r.Category,
				Confidence: types.ConfidenceRule,
				Tier:       types.TierRule,
			}, true
		}
	}
	return types.Classification{}, false
}

func (p *Prepared) matchKeyword(description string, typ types.TransactionType) (types.Classification, bool) {
	desc := strings.ToLower(description)
	for _, cat := range p.categories {
		if !cat.Accepts(typ) {
			continue
		}
		for _, kw := range cat.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if strings.Contains(desc, kw) {
				return types.Classification{
					Category:   cat.Name,
					Confidence: types.ConfidenceKeyword,
					Tier:       types.TierKeyword,
				}, true
			}
		}
	}
	return types.Classification{}, false
}

func (c *Classifier) matchDefault(description string, typ types.TransactionType) (types.Classification, bool) {
	dict := c.expenses
	if typ == types.TransactionTypeIncome {
		dict = c.incomes
	}
	desc := Fold(description)
	for _, entry := range dict {
		for _, kw := range entry.Keywords {
			if strings.Contains(desc, kw) {
				return types.Classification{
					Category:   entry.Category,
					Confidence: types.ConfidenceDefault,
					Tier:       types.TierDefault,
				}, true
			}
		}
	}
	return types.Classification{}, false
}

// Fold lower-cases s and strips diacritics, so "Alimentação" becomes "alimentacao"
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// fold pre-folds dictionary keywords, dropping empty ones
func fold(d Dictionary) Dictionary {
	out := make(Dictionary, 0, len(d))
	for _, e := range d {
		kws := make([]string, 0, len(e.Keywords))
		for _, kw := range e.Keywords {
			if kw = Fold(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		out = append(out, Entry{Category: e.Category, Keywords: kws})
	}
	return out
}

// Categories lists the built-in category names for a direction, in dictionary order
func (c *Classifier) Categories(typ types.TransactionType) []string {
	dict := c.expenses
	if typ == types.TransactionTypeIncome {
		dict = c.incomes
	}
	names := make([]string, 0, len(dict))
	for _, e := range dict {
		names = append(names, e.Category)
	}
	return names
}

// DefaultCategories lists the built-in category names for a direction
func DefaultCategories(typ types.TransactionType) []string {
	return std.Categories(typ)
}

// Prepare binds the built-in dictionaries to one owner's categories and rules
func Prepare(categories []types.BudgetCategory, rules []types.ClassificationRule) *Prepared {
	return std.Prepare(categories, rules)
}
