// Package review holds an imported batch while the user corrects categories,
// promotes corrections into rules and approves transactions for commit.
package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/lox/statement-importer/internal/classifier"
	"github.com/lox/statement-importer/internal/types"
)

var (
	ErrUnknownTransaction = errors.New("unknown transaction")
	ErrNoCategory         = errors.New("category is required")
)

// Batch is the set of transactions under review
type Batch struct {
	Transactions []types.ReviewedTransaction `json:"transactions"`
}

// CascadeProposal offers a manual category to uncategorised siblings of the
// transaction the user just corrected
type CascadeProposal struct {
	Category    string                `json:"category"`
	Description string                `json:"description"`
	Type        types.TransactionType `json:"type"`
	IDs         []string              `json:"ids"`
}

// NewBatch classifies every transaction and assigns review ids
func NewBatch(txs []types.CanonicalTransaction, categories []types.BudgetCategory, rules []types.ClassificationRule) *Batch {
	return NewBatchWith(classifier.Prepare(categories, rules), txs)
}

// NewBatchWith classifies transactions with an already prepared classifier
func NewBatchWith(p *classifier.Prepared, txs []types.CanonicalTransaction) *Batch {
	b := &Batch{Transactions: make([]types.ReviewedTransaction, 0, len(txs))}
	for _, tx := range txs {
		rt := types.ReviewedTransaction{
			ID:                   uuid.NewString(),
			CanonicalTransaction: tx,
		}
		rt.Apply(p.Classify(tx.Description, tx.Type))
		b.Transactions = append(b.Transactions, rt)
	}
	return b
}

func (b *Batch) index(id string) (int, error) {
	for i := range b.Transactions {
		if b.Transactions[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrUnknownTransaction, id)
}

// Get returns a transaction by id
func (b *Batch) Get(id string) (types.ReviewedTransaction, bool) {
	i, err := b.index(id)
	if err != nil {
		return types.ReviewedTransaction{}, false
	}
	return b.Transactions[i], true
}

// Assign sets a manual category on one transaction. The returned proposal
// lists uncategorised transactions with the same normalised description and
// direction; it is nil when there are none.
func (b *Batch) Assign(id, category string) (*CascadeProposal, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, ErrNoCategory
	}
	i, err := b.index(id)
	if err != nil {
		return nil, err
	}

	tx := &b.Transactions[i]
	tx.Apply(types.Classification{Category: category, Confidence: types.ConfidenceManual, Tier: types.TierManual})

	key := types.NormalizeDescription(tx.Description)
	var ids []string
	for j, other := range b.Transactions {
		if j == i || other.Categorized() || other.Type != tx.Type {
			continue
		}
		if types.NormalizeDescription(other.Description) == key {
			ids = append(ids, other.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return &CascadeProposal{
		Category:    category,
		Description: tx.Description,
		Type:        tx.Type,
		IDs:         ids,
	}, nil
}

// ApplyCascade applies a confirmed proposal and returns the number of
// transactions changed. Transactions categorised since the proposal was made
// are left alone.
func (b *Batch) ApplyCascade(p *CascadeProposal) int {
	if p == nil {
		return 0
	}
	applied := 0
	for _, id := range p.IDs {
		i, err := b.index(id)
		if err != nil || b.Transactions[i].Categorized() {
			continue
		}
		b.Transactions[i].Apply(types.Classification{Category: p.Category, Confidence: types.ConfidenceManual, Tier: types.TierManual})
		applied++
	}
	return applied
}

// SetHint records an unapplied suggestion on a transaction
func (b *Batch) SetHint(id, hint string) error {
	i, err := b.index(id)
	if err != nil {
		return err
	}
	b.Transactions[i].Hint = hint
	return nil
}

// Uncategorized returns the transactions still without a category
func (b *Batch) Uncategorized() []types.ReviewedTransaction {
	var out []types.ReviewedTransaction
	for _, tx := range b.Transactions {
		if !tx.Categorized() {
			out = append(out, tx)
		}
	}
	return out
}

// Approve marks transactions as approved for commit
func (b *Batch) Approve(ids ...string) error {
	for _, id := range ids {
		i, err := b.index(id)
		if err != nil {
			return err
		}
		b.Transactions[i].Approved = true
	}
	return nil
}

// ApproveCategorized approves every transaction that carries a category
func (b *Batch) ApproveCategorized() int {
	n := 0
	for i := range b.Transactions {
		if b.Transactions[i].Categorized() && !b.Transactions[i].Approved {
			b.Transactions[i].Approved = true
			n++
		}
	}
	return n
}

// Approved returns the approved transactions in batch order
func (b *Batch) Approved() []types.ReviewedTransaction {
	var out []types.ReviewedTransaction
	for _, tx := range b.Transactions {
		if tx.Approved {
			out = append(out, tx)
		}
	}
	return out
}

// Remove drops transactions from the batch and returns how many were removed
func (b *Batch) Remove(ids ...string) int {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := b.Transactions[:0]
	for _, tx := range b.Transactions {
		if !drop[tx.ID] {
			kept = append(kept, tx)
		}
	}
	removed := len(b.Transactions) - len(kept)
	b.Transactions = kept
	return removed
}

// Reclassify re-runs classification on transactions the user has not touched
func (b *Batch) Reclassify(p *classifier.Prepared) int {
	changed := 0
	for i := range b.Transactions {
		tx := &b.Transactions[i]
		if tx.ClassificationSource == types.TierManual || tx.RuleSaved {
			continue
		}
		c := p.Classify(tx.Description, tx.Type)
		if c != tx.Classification() {
			tx.Apply(c)
			changed++
		}
	}
	return changed
}

// Save writes the batch as JSON
func (b *Batch) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}
	return nil
}

// Load reads a batch written by Save
func Load(r io.Reader) (*Batch, error) {
	var b Batch
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode batch: %w", err)
	}
	return &b, nil
}

// SaveFile writes the batch to path, replacing it atomically
func (b *Batch) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create batch directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".batch-*")
	if err != nil {
		return fmt.Errorf("failed to create batch file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := b.Save(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write batch file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// LoadFile reads a batch from path
func LoadFile(path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch: %w", err)
	}
	defer f.Close()
	return Load(f)
}
