package review

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/lox/statement-importer/internal/types"
)

// LearnedRulePriority is the priority given to rules promoted from a correction
const LearnedRulePriority = 10

// RuleProposal is a rule offered to the user after a manual correction.
// Nothing is persisted until it is passed to Learner.CommitRule.
type RuleProposal struct {
	Pattern         string                `json:"pattern"`
	MatchType       types.MatchType       `json:"match_type"`
	Category        string                `json:"category"`
	TransactionType types.TransactionType `json:"transaction_type"`
	Priority        int                   `json:"priority"`
	AutoApply       bool                  `json:"auto_apply"`
}

// Rule converts the proposal into a validated rule for owner
func (p RuleProposal) Rule(owner string) (types.ClassificationRule, error) {
	return types.NewClassificationRule(owner, p.Pattern, p.MatchType, p.Category, p.TransactionType, p.Priority, p.AutoApply)
}

// ProposeRule builds the rule proposal for a categorised transaction
func ProposeRule(tx types.ReviewedTransaction) (RuleProposal, error) {
	if !tx.Categorized() {
		return RuleProposal{}, ErrNoCategory
	}
	return RuleProposal{
		Pattern:         tx.Description,
		MatchType:       types.MatchTypeContains,
		Category:        tx.Category,
		TransactionType: tx.Type,
		Priority:        LearnedRulePriority,
		AutoApply:       true,
	}, nil
}

// RuleStore persists classification rules
type RuleStore interface {
	CreateRule(ctx context.Context, rule types.ClassificationRule) (types.ClassificationRule, error)
}

// RuleApplied is the outcome of committing a rule proposal
type RuleApplied struct {
	Rule types.ClassificationRule
	// AffectedCount is the number of batch transactions whose category or confidence changed
	AffectedCount int
}

// Learner turns confirmed proposals into persisted rules
type Learner struct {
	rules  RuleStore
	logger *log.Logger
}

// NewLearner creates a learner backed by a rule store
func NewLearner(rules RuleStore, logger *log.Logger) *Learner {
	return &Learner{rules: rules, logger: logger}
}

// CommitRule persists the proposal and applies it retroactively to the batch.
// Transactions with the same normalised description and direction take the
// category with full confidence, replacing automatic classifications. A
// different category the reviewer chose by hand is left alone.
func (l *Learner) CommitRule(ctx context.Context, owner string, batch *Batch, proposal RuleProposal) (*RuleApplied, error) {
	rule, err := proposal.Rule(owner)
	if err != nil {
		return nil, fmt.Errorf("invalid rule proposal: %w", err)
	}

	saved, err := l.rules.CreateRule(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("failed to save rule: %w", err)
	}

	affected := batch.applyRule(saved)
	l.logger.Info("Saved classification rule",
		"pattern", saved.Pattern,
		"category", saved.Category,
		"type", saved.TransactionType,
		"affected", affected)

	return &RuleApplied{Rule: saved, AffectedCount: affected}, nil
}

func (b *Batch) applyRule(rule types.ClassificationRule) int {
	key := types.NormalizeDescription(rule.Pattern)
	affected := 0
	for i := range b.Transactions {
		tx := &b.Transactions[i]
		if tx.Type != rule.TransactionType || types.NormalizeDescription(tx.Description) != key {
			continue
		}
		if tx.ClassificationSource == types.TierManual && tx.Category != rule.Category {
			continue
		}
		if tx.Category != rule.Category || tx.Confidence != types.ConfidenceManual {
			tx.Category = rule.Category
			tx.Confidence = types.ConfidenceManual
			tx.ClassificationSource = types.TierRule
			affected++
		}
		tx.RuleSaved = true
	}
	return affected
}
