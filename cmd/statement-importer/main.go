package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/lox/statement-importer/internal/commands"
	"github.com/lox/statement-importer/internal/db"
	"github.com/lox/statement-importer/internal/review"
	"github.com/lox/statement-importer/internal/similar"
)

// Globals are the flags shared by every subcommand
type Globals struct {
	commands.CommonConfig
	commands.OracleConfig
	commands.SimilarConfig

	Config     kong.ConfigFlag `help:"Load flag defaults from a JSON file"`
	NoProgress bool            `help:"Disable progress bar" default:"false"`
}

type CLI struct {
	Globals

	Import     ImportCmd     `cmd:"" help:"Parse statement files into a review batch"`
	Review     ReviewCmd     `cmd:"" help:"Show the pending review batch"`
	Assign     AssignCmd     `cmd:"" help:"Assign a category to a batch transaction"`
	Approve    ApproveCmd    `cmd:"" help:"Approve (or remove) batch transactions"`
	Commit     CommitCmd     `cmd:"" help:"Write approved transactions to an account"`
	Rules      RulesCmd      `cmd:"" help:"Manage classification rules"`
	Categories CategoriesCmd `cmd:"" help:"Manage budget categories"`
	Accounts   AccountsCmd   `cmd:"" help:"Manage accounts"`
	Ledger     LedgerCmd     `cmd:"" help:"Inspect and correct committed transactions"`
}

// app holds what most subcommands need
type app struct {
	*Globals
	logger *log.Logger
	db     *db.DB
	now    func() time.Time
}

func (g *Globals) open() (*app, error) {
	logger, err := commands.SetupLogger(g.LogLevel)
	if err != nil {
		return nil, err
	}
	now, err := commands.Clock(g.Timezone)
	if err != nil {
		return nil, err
	}
	database, err := db.New(g.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return &app{Globals: g, logger: logger, db: database, now: now}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("Failed to close database", "error", err)
	}
}

func (g *Globals) batchPath() string {
	return filepath.Join(g.DataDir, "batch.json")
}

func (a *app) loadBatch() (*review.Batch, error) {
	batch, err := review.LoadFile(a.batchPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no pending batch, run import first")
	}
	return batch, err
}

func (a *app) saveBatch(batch *review.Batch) error {
	if len(batch.Transactions) == 0 {
		if err := os.Remove(a.batchPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove batch: %w", err)
		}
		return nil
	}
	return batch.SaveFile(a.batchPath())
}

// index opens the similarity index, or returns nil when hints are disabled
func (a *app) index(ctx context.Context) (*similar.Index, error) {
	return commands.SetupIndex(ctx, a.DataDir, a.SimilarConfig, a.OracleConfig, a.logger)
}

func (a *app) closeIndex(index *similar.Index) {
	if err := index.Close(); err != nil {
		a.logger.Warn("Failed to close similarity index", "error", err)
	}
}

// syncIndex refreshes the similarity index from the owner's ledger. Failures
// only cost future hints, so they are logged.
func (a *app) syncIndex(ctx context.Context) {
	index, err := a.index(ctx)
	if err != nil {
		a.logger.Warn("Similarity index unavailable", "error", err)
		return
	}
	if index == nil {
		return
	}
	defer a.closeIndex(index)

	entries, err := a.db.ListLedgerEntries(ctx, a.Owner, db.LedgerFilter{})
	if err != nil {
		a.logger.Warn("Failed to list ledger entries", "error", err)
		return
	}
	if _, err := index.Sync(ctx, entries); err != nil {
		a.logger.Warn("Failed to update similarity index", "error", err)
	}
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("statement-importer"),
		kong.Description("Import bank statements, review their categories and commit them to a ledger"),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON),
	)

	err := ctx.Run(&cli.Globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
