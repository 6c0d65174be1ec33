package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lox/statement-importer/internal/commands"
	"github.com/lox/statement-importer/internal/db"
	"github.com/lox/statement-importer/internal/ingest"
	"github.com/lox/statement-importer/internal/progress"
	"github.com/lox/statement-importer/internal/review"
	"github.com/lox/statement-importer/internal/suggest"
	"github.com/lox/statement-importer/internal/types"
)

type ImportCmd struct {
	Files       []string `arg:"" type:"existingfile" help:"Statement files to import"`
	Bank        string   `help:"Format or bank of every file (csv, ofx, qif, c6, itau, pdf). Defaults to each file's extension." short:"b"`
	Concurrency int      `help:"Number of files parsed in parallel" default:"4"`
	Force       bool     `help:"Replace a pending review batch" default:"false"`
}

// selector picks the parser for a file: the --bank flag, or the extension
func (c *ImportCmd) selector(path string) string {
	if c.Bank != "" {
		return c.Bank
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "txt" {
		return "pdf"
	}
	return ext
}

func (c *ImportCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := os.Stat(a.batchPath()); err == nil && !c.Force {
		return fmt.Errorf("a review batch is pending, commit it or pass --force to replace it")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	files := make([]ingest.File, 0, len(c.Files))
	for _, path := range c.Files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		files = append(files, ingest.File{Name: filepath.Base(path), Bank: c.selector(path), Data: data})
	}

	bar := progress.New(!a.NoProgress, len(files), "Parsing statements")
	result, err := ingest.NewImporter(commands.NewRegistry(a.logger), a.logger).
		WithConcurrency(c.Concurrency).
		WithClock(a.now).
		WithProgress(bar).
		ParseFiles(ctx, files)
	bar.Close()
	if err != nil {
		return err
	}
	for _, fe := range result.FileErrors {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", fe)
	}
	if len(result.FileErrors) == len(files) {
		return errors.New("no statement could be parsed")
	}

	fresh, existing, err := a.db.FilterExisting(ctx, a.Owner, result.Transactions)
	if err != nil {
		return err
	}

	categories, err := a.db.ListCategories(ctx, a.Owner)
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}
	rules, err := a.db.ListRules(ctx, a.Owner, db.RuleFilter{AutoApplyOnly: true})
	if err != nil {
		return fmt.Errorf("failed to list rules: %w", err)
	}

	batch := review.NewBatch(fresh, categories, rules)
	hints := c.hint(ctx, a, batch, categories)

	if err := a.saveBatch(batch); err != nil {
		return err
	}

	fmt.Printf("Parsed %d transactions from %d files\n", len(result.Transactions), len(files)-len(result.FileErrors))
	fmt.Printf("  Skipped rows: %d\n", result.Skipped)
	fmt.Printf("  Duplicates:   %d\n", result.Duplicates)
	fmt.Printf("  Already in ledger: %d\n", existing)
	fmt.Printf("  Classified:   %d of %d\n", len(batch.Transactions)-len(batch.Uncategorized()), len(batch.Transactions))
	fmt.Printf("  Hints:        %d\n", hints)
	return nil
}

// hint adds oracle suggestions and similar-transaction hints to the batch.
// Neither source can fail the import.
func (c *ImportCmd) hint(ctx context.Context, a *app, batch *review.Batch, categories []types.BudgetCategory) int {
	hints := 0

	oracle, closeOracle, err := commands.SetupOracle(ctx, a.OracleConfig, a.logger)
	if err != nil {
		a.logger.Warn("Suggestion provider unavailable", "error", err)
	} else if oracle != nil {
		hints += suggest.NewService(oracle, a.logger).
			WithMaxTransactions(a.MaxSuggestions).
			SuggestCategories(ctx, batch, categories)
	}
	closeOracle()

	index, err := a.index(ctx)
	if err != nil {
		a.logger.Warn("Similarity index unavailable", "error", err)
		return hints
	}
	if index == nil {
		return hints
	}
	defer a.closeIndex(index)

	n, err := index.HintBatch(ctx, a.Owner, batch, a.Threshold)
	if err != nil {
		a.logger.Warn("Similar-transaction hints failed", "error", err)
	}
	return hints + n
}
