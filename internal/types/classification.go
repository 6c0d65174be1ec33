package types

import (
	"encoding/json"
)

// Tier identifies which classification strategy produced a match
type Tier string

const (
	TierRule    Tier = "rule"
	TierKeyword Tier = "keyword"
	TierDefault Tier = "default"
	// TierManual marks a category chosen by the user during review
	TierManual Tier = "manual"
)

// Fixed confidence per tier
const (
	ConfidenceRule    = 0.95
	ConfidenceKeyword = 0.9
	ConfidenceDefault = 0.7
	ConfidenceManual  = 1.0
)

// Classification is the outcome of classifying one transaction.
// The zero value means no match.
type Classification struct {
	Category   string
	Confidence float64
	Tier       Tier
}

// Matched reports whether a category was found
func (c Classification) Matched() bool {
	return c.Category != ""
}

type classificationJSON struct {
	Category   *string `json:"category"`
	Confidence float64 `json:"confidence"`
	Tier       *Tier   `json:"tier"`
}

// MarshalJSON renders an unmatched classification with null category and tier
func (c Classification) MarshalJSON() ([]byte, error) {
	out := classificationJSON{Confidence: c.Confidence}
	if c.Category != "" {
		out.Category = &c.Category
	}
	if c.Tier != "" {
		out.Tier = &c.Tier
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts null category and tier
func (c *Classification) UnmarshalJSON(data []byte) error {
	var in classificationJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*c = Classification{Confidence: in.Confidence}
	if in.Category != nil {
		c.Category = *in.Category
	}
	if in.Tier != nil {
		c.Tier = *in.Tier
	}
	return nil
}

// ReviewedTransaction is a canonical transaction going through review
type ReviewedTransaction struct {
	ID string `json:"id"`
	CanonicalTransaction
	Category             string  `json:"category,omitempty"`
	Confidence           float64 `json:"confidence"`
	ClassificationSource Tier    `json:"classification_source,omitempty"`
	// RuleSaved is set once a rule has been persisted for this description
	RuleSaved bool `json:"rule_saved,omitempty"`
	Approved  bool `json:"approved,omitempty"`
	// Hint is an unapplied category suggestion shown to the reviewer
	Hint string `json:"hint,omitempty"`
}

// Categorized reports whether the transaction carries a category
func (t ReviewedTransaction) Categorized() bool {
	return t.Category != ""
}

// Apply copies a classification onto the transaction
func (t *ReviewedTransaction) Apply(c Classification) {
	t.Category = c.Category
	t.Confidence = c.Confidence
	t.ClassificationSource = c.Tier
}

// Classification returns the classification fields of the transaction
func (t ReviewedTransaction) Classification() Classification {
	return Classification{Category: t.Category, Confidence: t.Confidence, Tier: t.ClassificationSource}
}
