package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lox/statement-importer/internal/db"
	"github.com/lox/statement-importer/internal/types"
	"github.com/shopspring/decimal"
)

type RulesCmd struct {
	List   RulesListCmd   `cmd:"" default:"1" help:"List rules, highest priority first"`
	Add    RulesAddCmd    `cmd:"" help:"Add or update a rule"`
	Update RulesUpdateCmd `cmd:"" help:"Change fields of a rule"`
	Delete RulesDeleteCmd `cmd:"" help:"Delete a rule"`
}

type RulesListCmd struct {
	Type     string `help:"Filter by direction" enum:",income,expense" default:""`
	Category string `help:"Filter by category"`
}

func (c *RulesListCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	rules, err := a.db.ListRules(context.Background(), a.Owner, db.RuleFilter{
		TransactionType: types.TransactionType(c.Type),
		Category:        c.Category,
	})
	if err != nil {
		return err
	}
	for _, r := range rules {
		printRule(r)
	}
	return nil
}

func printRule(r types.ClassificationRule) {
	auto := ""
	if !r.AutoApply {
		auto = " (manual)"
	}
	fmt.Printf("#%-4d %3d  %-7s %-8s %q -> %s%s\n", r.ID, r.Priority, r.TransactionType, r.MatchType, r.Pattern, r.Category, auto)
}

type RulesAddCmd struct {
	Pattern     string `arg:"" help:"Text to match in descriptions"`
	Category    string `arg:"" help:"Category to assign"`
	Type        string `help:"Direction the rule applies to" enum:"income,expense" required:""`
	Match       string `help:"Match type" enum:"contains,exact" default:"contains"`
	Priority    int    `help:"Higher priorities are tried first" default:"10"`
	NoAutoApply bool   `help:"Store the rule without applying it automatically" default:"false"`
}

func (c *RulesAddCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	rule, err := types.NewClassificationRule(a.Owner, c.Pattern, types.MatchType(c.Match), c.Category, types.TransactionType(c.Type), c.Priority, !c.NoAutoApply)
	if err != nil {
		return err
	}
	rule, err = a.db.CreateRule(context.Background(), rule)
	if err != nil {
		return err
	}
	printRule(rule)
	return nil
}

type RulesUpdateCmd struct {
	ID        int64  `arg:"" help:"Rule id"`
	Pattern   string `help:"New pattern"`
	Category  string `help:"New category"`
	Type      string `help:"New direction" enum:",income,expense" default:""`
	Match     string `help:"New match type" enum:",contains,exact" default:""`
	Priority  string `help:"New priority"`
	AutoApply string `help:"Apply automatically" enum:",true,false" default:""`
}

func (c *RulesUpdateCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	var u db.RuleUpdate
	if c.Pattern != "" {
		u.Pattern = &c.Pattern
	}
	if c.Category != "" {
		u.Category = &c.Category
	}
	if c.Type != "" {
		t := types.TransactionType(c.Type)
		u.TransactionType = &t
	}
	if c.Match != "" {
		m := types.MatchType(c.Match)
		u.MatchType = &m
	}
	if c.Priority != "" {
		p, err := strconv.Atoi(c.Priority)
		if err != nil {
			return fmt.Errorf("priority must be an integer: %w", err)
		}
		u.Priority = &p
	}
	if c.AutoApply != "" {
		v := c.AutoApply == "true"
		u.AutoApply = &v
	}

	rule, err := a.db.UpdateRule(context.Background(), a.Owner, c.ID, u)
	if err != nil {
		return err
	}
	printRule(rule)
	return nil
}

type RulesDeleteCmd struct {
	ID int64 `arg:"" help:"Rule id"`
}

func (c *RulesDeleteCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.db.DeleteRule(context.Background(), a.Owner, c.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted rule #%d\n", c.ID)
	return nil
}

type CategoriesCmd struct {
	List CategoriesListCmd `cmd:"" default:"1" help:"List budget categories"`
	Add  CategoriesAddCmd  `cmd:"" help:"Add a budget category"`
}

type CategoriesListCmd struct{}

func (c *CategoriesListCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	categories, err := a.db.ListCategories(context.Background(), a.Owner)
	if err != nil {
		return err
	}
	for _, cat := range categories {
		fmt.Printf("%-30s %-8s %3d items  %12s", cat.Name, cat.CategoryType, len(cat.Expenses)+len(cat.Incomes), cat.Spent().StringFixed(2))
		if len(cat.Keywords) > 0 {
			fmt.Printf("  keywords: %s", strings.Join(cat.Keywords, ", "))
		}
		fmt.Println()
	}
	return nil
}

type CategoriesAddCmd struct {
	Name     string   `arg:"" help:"Category name"`
	Type     string   `help:"Category type" enum:"expense,income,guardian" default:"expense"`
	Keywords []string `help:"Keywords that select this category" name:"keyword" short:"k"`
}

func (c *CategoriesAddCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	typ, err := types.ParseCategoryType(c.Type)
	if err != nil {
		return err
	}
	cat, err := a.db.CreateCategory(context.Background(), types.BudgetCategory{
		Owner:        a.Owner,
		Name:         strings.TrimSpace(c.Name),
		CategoryType: typ,
		Keywords:     c.Keywords,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Created category #%d %s (%s)\n", cat.ID, cat.Name, cat.CategoryType)
	return nil
}

type AccountsCmd struct {
	List AccountsListCmd `cmd:"" default:"1" help:"List accounts"`
	Add  AccountsAddCmd  `cmd:"" help:"Add an account"`
}

type AccountsListCmd struct{}

func (c *AccountsListCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	accounts, err := a.db.ListAccounts(context.Background(), a.Owner)
	if err != nil {
		return err
	}
	for _, acc := range accounts {
		fmt.Printf("#%-4d %-30s %12s\n", acc.ID, acc.Name, acc.Balance.StringFixed(2))
	}
	return nil
}

type AccountsAddCmd struct {
	Name    string `arg:"" help:"Account name"`
	Balance string `help:"Opening balance" default:"0"`
}

func (c *AccountsAddCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	balance, err := decimal.NewFromString(c.Balance)
	if err != nil {
		return fmt.Errorf("invalid balance: %w", err)
	}
	acc, err := a.db.CreateAccount(context.Background(), types.Account{Owner: a.Owner, Name: c.Name, Balance: balance})
	if err != nil {
		return err
	}
	fmt.Printf("Created account #%d %s\n", acc.ID, acc.Name)
	return nil
}

type LedgerCmd struct {
	List         LedgerListCmd         `cmd:"" default:"1" help:"List committed transactions, newest first"`
	Recategorize LedgerRecategorizeCmd `cmd:"" help:"Change the category of a committed transaction"`
	Delete       LedgerDeleteCmd       `cmd:"" help:"Delete a committed transaction"`
}

type LedgerListCmd struct {
	Account  int64  `help:"Filter by account id"`
	Category string `help:"Filter by category"`
	From     string `help:"First date (YYYY-MM-DD)"`
	To       string `help:"Last date (YYYY-MM-DD)"`
	Limit    int    `help:"Maximum number of entries" default:"50"`
}

func (c *LedgerListCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.db.ListLedgerEntries(context.Background(), a.Owner, db.LedgerFilter{
		AccountID: c.Account,
		Category:  c.Category,
		From:      c.From,
		To:        c.To,
		Limit:     c.Limit,
	})
	if err != nil {
		return err
	}
	for _, e := range entries {
		signed := e.Amount
		if e.Type == types.TransactionTypeExpense {
			signed = signed.Neg()
		}
		fmt.Printf("#%-5d %s %12s  %-40s %s\n", e.ID, e.Date, signed.StringFixed(2), e.Description, e.Category)
	}
	return nil
}

type LedgerRecategorizeCmd struct {
	ID       int64  `arg:"" help:"Ledger entry id"`
	Category string `arg:"" help:"New category"`
}

func (c *LedgerRecategorizeCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if err := a.db.UpdateLedgerCategory(ctx, a.Owner, c.ID, strings.TrimSpace(c.Category)); err != nil {
		return err
	}
	a.syncIndex(ctx)
	fmt.Printf("Moved entry #%d to %s\n", c.ID, c.Category)
	return nil
}

type LedgerDeleteCmd struct {
	ID int64 `arg:"" help:"Ledger entry id"`
}

func (c *LedgerDeleteCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if err := a.db.DeleteLedgerEntry(ctx, a.Owner, c.ID); err != nil {
		return err
	}

	index, err := a.index(ctx)
	if err != nil {
		a.logger.Warn("Similarity index unavailable", "error", err)
	} else if index != nil {
		if err := index.Remove(ctx, c.ID); err != nil {
			a.logger.Warn("Failed to remove entry from similarity index", "error", err)
		}
		a.closeIndex(index)
	}

	fmt.Printf("Deleted entry #%d\n", c.ID)
	return nil
}
