package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MatchType controls how a rule pattern is compared with a description
type MatchType string

const (
	MatchTypeContains MatchType = "contains"
	MatchTypeExact    MatchType = "exact"
)

// Valid reports whether m is a known match type
func (m MatchType) Valid() bool {
	return m == MatchTypeContains || m == MatchTypeExact
}

// ClassificationRule is a persistent, user-owned classification rule
type ClassificationRule struct {
	ID              int64           `json:"id"`
	Owner           string          `json:"owner"`
	Pattern         string          `json:"pattern"`
	MatchType       MatchType       `json:"match_type"`
	Category        string          `json:"category"`
	TransactionType TransactionType `json:"transaction_type"`
	// Priority orders rules, higher first
	Priority  int       `json:"priority"`
	AutoApply bool      `json:"auto_apply"`
	CreatedAt time.Time `json:"created_at"`
}

var ErrEmptyPattern = errors.New("rule pattern is empty")

// NewClassificationRule validates the fields of a new rule
func NewClassificationRule(owner, pattern string, matchType MatchType, category string, typ TransactionType, priority int, autoApply bool) (ClassificationRule, error) {
	if strings.TrimSpace(pattern) == "" {
		return ClassificationRule{}, ErrEmptyPattern
	}
	if !matchType.Valid() {
		return ClassificationRule{}, fmt.Errorf("invalid match type %q", matchType)
	}
	if strings.TrimSpace(category) == "" {
		return ClassificationRule{}, errors.New("rule category is empty")
	}
	if !typ.Valid() {
		return ClassificationRule{}, fmt.Errorf("%w: %q", ErrInvalidTransaction, typ)
	}
	return ClassificationRule{
		Owner:           owner,
		Pattern:         pattern,
		MatchType:       matchType,
		Category:        strings.TrimSpace(category),
		TransactionType: typ,
		Priority:        priority,
		AutoApply:       autoApply,
	}, nil
}

// Matches reports whether the rule applies to a description of the given direction
func (r ClassificationRule) Matches(description string, typ TransactionType) bool {
	if r.TransactionType != typ {
		return false
	}
	pattern := strings.ToLower(r.Pattern)
	if strings.TrimSpace(pattern) == "" {
		return false
	}
	desc := strings.ToLower(description)
	switch r.MatchType {
	case MatchTypeExact:
		return desc == pattern
	case MatchTypeContains:
		return strings.Contains(desc, pattern)
	}
	return false
}

// CompareRules orders rules by priority descending, then newest first
func CompareRules(a, b ClassificationRule) int {
	if a.Priority != b.Priority {
		return b.Priority - a.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	}
	switch {
	case a.ID > b.ID:
		return -1
	case a.ID < b.ID:
		return 1
	}
	return 0
}
