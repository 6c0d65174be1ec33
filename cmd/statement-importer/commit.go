package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lox/statement-importer/internal/committer"
	"github.com/lox/statement-importer/internal/progress"
)

type CommitCmd struct {
	Account int64 `help:"Account to commit to" required:""`
}

func (c *CommitCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	batch, err := a.loadBatch()
	if err != nil {
		return err
	}
	approved := batch.Approved()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	bar := progress.New(!a.NoProgress, len(approved), "Writing ledger")
	result, err := committer.New(a.db, a.db, a.db, a.logger).
		WithProgress(bar).
		Commit(ctx, a.Owner, approved, c.Account)
	bar.Close()
	if err != nil {
		return err
	}

	// drop what reached the ledger, failed entries stay for another attempt
	var written []string
	for _, tx := range approved {
		ok, err := a.db.HasHash(ctx, a.Owner, tx.HashID())
		if err != nil {
			return err
		}
		if ok {
			written = append(written, tx.ID)
		}
	}
	batch.Remove(written...)
	if err := a.saveBatch(batch); err != nil {
		return err
	}

	a.syncIndex(ctx)

	fmt.Printf("Saved %d of %d transactions, updated %d categories\n", result.Saved, len(approved), result.CategoriesUpdated)
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", e)
	}
	if len(batch.Transactions) > 0 {
		fmt.Printf("%d transactions remain in the batch\n", len(batch.Transactions))
	}
	return nil
}
