// Package ingest turns a batch of uploaded statement files into one
// deduplicated list of canonical transactions.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/statement-importer/internal/bank"
	"github.com/lox/statement-importer/internal/progress"
	"github.com/lox/statement-importer/internal/types"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the number of files parsed at once
const DefaultConcurrency = 4

// File is one uploaded statement
type File struct {
	// Name labels every transaction parsed from the file
	Name string
	// Bank is the parser selector ("csv", "ofx", "qif", "pdf", ...)
	Bank string
	Data []byte
}

// FileError reports a file that could not be parsed at all
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Result is the outcome of importing a batch of files
type Result struct {
	Transactions []types.CanonicalTransaction
	// Skipped counts malformed rows across all files
	Skipped int
	// Duplicates counts records dropped by deduplication
	Duplicates int
	FileErrors []*FileError
}

// Importer parses statement files with the registered bank parsers
type Importer struct {
	registry    *bank.Registry
	logger      *log.Logger
	concurrency int
	now         func() time.Time
	progress    progress.Progress
}

// NewImporter creates an importer backed by the given registry
func NewImporter(registry *bank.Registry, logger *log.Logger) *Importer {
	return &Importer{
		registry:    registry,
		logger:      logger,
		concurrency: DefaultConcurrency,
		now:         time.Now,
		progress:    progress.Noop{},
	}
}

// WithConcurrency sets the number of files parsed in parallel
func (i *Importer) WithConcurrency(n int) *Importer {
	if n > 0 {
		i.concurrency = n
	}
	return i
}

// WithClock overrides the clock used for the date fallback
func (i *Importer) WithClock(now func() time.Time) *Importer {
	i.now = now
	return i
}

// WithProgress reports one step per parsed file
func (i *Importer) WithProgress(p progress.Progress) *Importer {
	i.progress = p
	return i
}

type fileResult struct {
	result *bank.Result
	err    *FileError
}

// ParseFiles parses every file and returns the transactions in file order,
// deduplicated. A file that fails is reported in Result.FileErrors and does
// not abort the batch; only context cancellation returns an error.
func (i *Importer) ParseFiles(ctx context.Context, files []File) (*Result, error) {
	slots := make([]fileResult, len(files))
	today := i.now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)

	for idx, file := range files {
		g.Go(func() error {
			defer func() { _ = i.progress.Add(1) }()

			result, err := i.parseFile(gctx, file, today)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				i.logger.Warn("Failed to parse file", "file", file.Name, "bank", file.Bank, "error", err)
				slots[idx] = fileResult{err: &FileError{File: file.Name, Err: err}}
				return nil
			}
			i.logger.Debug("Parsed file", "file", file.Name, "transactions", len(result.Transactions), "skipped", result.Skipped)
			slots[idx] = fileResult{result: result}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to parse files: %w", err)
	}

	out := &Result{}
	var all []types.CanonicalTransaction
	for _, slot := range slots {
		if slot.err != nil {
			out.FileErrors = append(out.FileErrors, slot.err)
			continue
		}
		all = append(all, slot.result.Transactions...)
		out.Skipped += slot.result.Skipped
	}

	out.Transactions, out.Duplicates = Deduplicate(all)
	i.logger.Info("Imported statements",
		"files", len(files),
		"transactions", len(out.Transactions),
		"skipped", out.Skipped,
		"duplicates", out.Duplicates,
		"failed_files", len(out.FileErrors))

	return out, nil
}

func (i *Importer) parseFile(ctx context.Context, file File, today time.Time) (*bank.Result, error) {
	parser, err := i.registry.Resolve(file.Bank, file.Data)
	if err != nil {
		return nil, err
	}
	result, err := parser.ParseTransactions(ctx, bytes.NewReader(file.Data), bank.Options{
		Source: file.Name,
		Today:  today,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s statement: %w", parser.Name(), err)
	}
	return result, nil
}

// ReadFile is a convenience for building a File from a reader
func ReadFile(name, selector string, r io.Reader) (File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return File{Name: name, Bank: selector, Data: data}, nil
}

// Deduplicate keeps the first record for each (date, description, amount)
// triple and returns the number of records dropped.
func Deduplicate(txs []types.CanonicalTransaction) ([]types.CanonicalTransaction, int) {
	seen := make(map[string]struct{}, len(txs))
	out := make([]types.CanonicalTransaction, 0, len(txs))
	for _, tx := range txs {
		key := tx.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tx)
	}
	return out, len(txs) - len(out)
}
