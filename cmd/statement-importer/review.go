package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lox/statement-importer/internal/review"
	"github.com/lox/statement-importer/internal/types"
)

type ReviewCmd struct {
	Uncategorized bool `help:"Only show transactions without a category" default:"false"`
	JSON          bool `help:"Print the batch as JSON" default:"false"`
}

func (c *ReviewCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	batch, err := a.loadBatch()
	if err != nil {
		return err
	}

	txs := batch.Transactions
	if c.Uncategorized {
		txs = batch.Uncategorized()
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(txs)
	}

	for _, tx := range txs {
		printReviewed(tx)
	}
	fmt.Printf("%d transactions, %d uncategorized, %d approved\n",
		len(batch.Transactions), len(batch.Uncategorized()), len(batch.Approved()))
	return nil
}

func printReviewed(tx types.ReviewedTransaction) {
	mark := " "
	if tx.Approved {
		mark = "*"
	}
	fmt.Printf("%s %s %s %-7s %12s  %s\n", mark, tx.ID, tx.Date, tx.Type, tx.Signed().StringFixed(2), tx.Description)
	if tx.Categorized() {
		fmt.Printf("    Category: %s (%s, %.2f)\n", tx.Category, tx.ClassificationSource, tx.Confidence)
	}
	if tx.Hint != "" {
		fmt.Printf("    Hint: %s\n", tx.Hint)
	}
}

type AssignCmd struct {
	ID       string `arg:"" help:"Batch transaction id"`
	Category string `arg:"" help:"Category to assign"`
	Cascade  bool   `help:"Also assign the category to uncategorized transactions with the same description" default:"false"`
	Rule     bool   `help:"Save a rule for this description and apply it to the batch" default:"false"`
}

func (c *AssignCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	batch, err := a.loadBatch()
	if err != nil {
		return err
	}

	proposal, err := batch.Assign(c.ID, c.Category)
	if err != nil {
		return err
	}
	tx, _ := batch.Get(c.ID)
	fmt.Printf("Assigned %q to %s\n", tx.Category, tx.Description)

	if proposal != nil {
		if c.Cascade {
			n := batch.ApplyCascade(proposal)
			fmt.Printf("Assigned %q to %d similar transactions\n", proposal.Category, n)
		} else {
			fmt.Printf("%d other transactions share this description, rerun with --cascade to assign them too\n", len(proposal.IDs))
		}
	}

	if c.Rule {
		ruleProposal, err := review.ProposeRule(tx)
		if err != nil {
			return err
		}
		applied, err := review.NewLearner(a.db, a.logger).CommitRule(context.Background(), a.Owner, batch, ruleProposal)
		if err != nil {
			return err
		}
		fmt.Printf("Saved rule #%d: %s %q -> %s (%d transactions updated)\n",
			applied.Rule.ID, applied.Rule.MatchType, applied.Rule.Pattern, applied.Rule.Category, applied.AffectedCount)
	}

	return a.saveBatch(batch)
}

type ApproveCmd struct {
	IDs    []string `arg:"" optional:"" help:"Batch transaction ids"`
	All    bool     `help:"Approve every categorized transaction" default:"false"`
	Remove bool     `help:"Remove the given transactions from the batch instead" default:"false"`
}

func (c *ApproveCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	batch, err := a.loadBatch()
	if err != nil {
		return err
	}

	switch {
	case c.Remove:
		n := batch.Remove(c.IDs...)
		fmt.Printf("Removed %d transactions\n", n)
	case c.All:
		n := batch.ApproveCategorized()
		fmt.Printf("Approved %d transactions\n", n)
	case len(c.IDs) > 0:
		if err := batch.Approve(c.IDs...); err != nil {
			return err
		}
		fmt.Printf("Approved %d transactions\n", len(c.IDs))
	default:
		return fmt.Errorf("pass transaction ids or --all")
	}

	return a.saveBatch(batch)
}
