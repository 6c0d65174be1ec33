// Package similar finds previously committed ledger entries that look like a
// new transaction, so their category can be offered as a review hint.
package similar

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/lox/statement-importer/internal/review"
	"github.com/lox/statement-importer/internal/types"
	"github.com/philippgille/chromem-go"
)

// DefaultThreshold is the minimum cosine similarity for a hint
const DefaultThreshold = 0.8

const collectionName = "ledger"

// Match is a ledger entry similar to a query
type Match struct {
	LedgerID    int64
	Description string
	Category    string
	Similarity  float32
}

// Index is a chromem-go collection of ledger entry descriptions
type Index struct {
	collection *chromem.Collection
	embedder   Embedder
	logger     *log.Logger
}

// NewIndex opens a persistent index under dataDir, or an in-memory one when
// dataDir is empty.
func NewIndex(dataDir string, embedder Embedder, logger *log.Logger) (*Index, error) {
	var (
		db  *chromem.DB
		err error
	)
	if dataDir == "" {
		db = chromem.NewDB()
	} else {
		path := filepath.Join(dataDir, "chromem-go")
		db, err = chromem.NewPersistentDB(path, true)
		if err != nil {
			return nil, fmt.Errorf("failed to create chromem database: %w", err)
		}
	}

	embed := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	}

	// one collection per embedding space, vectors of different embedders never mix
	name := collectionName + "-" + embedder.Name()
	collection, err := db.GetOrCreateCollection(name, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	logger.Debug("Opened similarity index", "documents", collection.Count(), "embedder", embedder.Name())

	return &Index{collection: collection, embedder: embedder, logger: logger}, nil
}

// Close releases the embedder's client, if it holds one
func (i *Index) Close() error {
	if closer, ok := i.embedder.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func docID(id int64) string {
	return "ledger-" + strconv.FormatInt(id, 10)
}

// Sync adds ledger entries that are not indexed yet and refreshes the
// category of those that are. It returns the number of documents written.
func (i *Index) Sync(ctx context.Context, entries []types.LedgerEntry) (int, error) {
	var docs []chromem.Document
	for _, e := range entries {
		id := docID(e.ID)
		if doc, err := i.collection.GetByID(ctx, id); err == nil && doc.Metadata["category"] == e.Category {
			continue
		}
		docs = append(docs, chromem.Document{
			ID: id,
			Metadata: map[string]string{
				"owner":     e.Owner,
				"type":      string(e.Type),
				"category":  e.Category,
				"ledger_id": strconv.FormatInt(e.ID, 10),
			},
			Content: e.Description,
		})
	}
	if len(docs) == 0 {
		return 0, nil
	}

	if err := i.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return 0, fmt.Errorf("failed to index ledger entries: %w", err)
	}
	i.logger.Debug("Indexed ledger entries", "count", len(docs))
	return len(docs), nil
}

// Remove drops a ledger entry from the index
func (i *Index) Remove(ctx context.Context, ledgerID int64) error {
	return i.collection.Delete(ctx, nil, nil, docID(ledgerID))
}

// Similar returns the owner's ledger entries of the same direction whose
// similarity to description is at least threshold, best first.
func (i *Index) Similar(ctx context.Context, owner, description string, typ types.TransactionType, limit int, threshold float32) ([]Match, error) {
	count := i.collection.Count()
	if count == 0 {
		return nil, nil
	}

	// filter in Go: chromem requires nResults <= the whole collection size
	results, err := i.collection.Query(ctx, description, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar transactions: %w", err)
	}

	var matches []Match
	for _, r := range results {
		if r.Similarity < threshold {
			break
		}
		if r.Metadata["owner"] != owner || r.Metadata["type"] != string(typ) {
			continue
		}
		ledgerID, _ := strconv.ParseInt(r.Metadata["ledger_id"], 10, 64)
		matches = append(matches, Match{
			LedgerID:    ledgerID,
			Description: r.Content,
			Category:    r.Metadata["category"],
			Similarity:  r.Similarity,
		})
		if limit > 0 && len(matches) >= limit {
			break
		}
	}
	return matches, nil
}

// HintBatch sets the category of the closest committed entry as a hint on
// every uncategorised transaction without one, and returns how many were set
func (i *Index) HintBatch(ctx context.Context, owner string, batch *review.Batch, threshold float32) (int, error) {
	hinted := 0
	for _, tx := range batch.Uncategorized() {
		if tx.Hint != "" {
			continue
		}
		matches, err := i.Similar(ctx, owner, tx.Description, tx.Type, 1, threshold)
		if err != nil {
			return hinted, err
		}
		if len(matches) == 0 {
			continue
		}
		if err := batch.SetHint(tx.ID, matches[0].Category); err != nil {
			return hinted, err
		}
		hinted++
	}
	return hinted, nil
}
