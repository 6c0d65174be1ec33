// Package mcp exposes classification and rule maintenance as MCP tools over stdio
package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/statement-importer/internal/bank"
	"github.com/lox/statement-importer/internal/classifier"
	"github.com/lox/statement-importer/internal/db"
	"github.com/lox/statement-importer/internal/ingest"
	"github.com/lox/statement-importer/internal/types"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type Server struct {
	db       *db.DB
	registry *bank.Registry
	owner    string
	now      func() time.Time
	logger   *log.Logger
}

func New(db *db.DB, registry *bank.Registry, owner string, now func() time.Time, logger *log.Logger) *Server {
	return &Server{
		db:       db,
		registry: registry,
		owner:    owner,
		now:      now,
		logger:   logger,
	}
}

// MCPServer builds the MCP server with all tools registered
func (s *Server) MCPServer() *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"Statement Importer",
		"1.0.0",
	)

	mcpServer.AddTool(mcp.NewTool("classify_transaction",
		mcp.WithDescription("Classify a transaction description using saved rules, category keywords and the default dictionary"),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("Transaction description as it appears on the statement"),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Transaction direction: income or expense"),
		),
	), s.classifyTransactionHandler)

	mcpServer.AddTool(mcp.NewTool("list_rules",
		mcp.WithDescription("List saved classification rules, highest priority first"),
		mcp.WithString("type",
			mcp.Description("Filter by transaction direction (income or expense)"),
		),
		mcp.WithString("category",
			mcp.Description("Filter by category name"),
		),
	), s.listRulesHandler)

	mcpServer.AddTool(mcp.NewTool("create_rule",
		mcp.WithDescription("Create or update a classification rule"),
		mcp.WithString("pattern",
			mcp.Required(),
			mcp.Description("Text to look for in transaction descriptions"),
		),
		mcp.WithString("category",
			mcp.Required(),
			mcp.Description("Category assigned by the rule. Use list_categories tool to see available categories."),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Transaction direction: income or expense"),
		),
		mcp.WithString("match_type",
			mcp.Description("contains (default) or exact"),
		),
		mcp.WithString("priority",
			mcp.Description("Higher priority rules are tried first (default: 10)"),
		),
	), s.createRuleHandler)

	mcpServer.AddTool(mcp.NewTool("delete_rule",
		mcp.WithDescription("Delete a classification rule by id"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Rule id from list_rules"),
		),
	), s.deleteRuleHandler)

	mcpServer.AddTool(mcp.NewTool("list_categories",
		mcp.WithDescription("List budget categories with their type and keywords"),
	), s.listCategoriesHandler)

	mcpServer.AddTool(mcp.NewTool("parse_statement",
		mcp.WithDescription("Parse a statement file and classify its transactions without saving anything"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the statement file"),
		),
		mcp.WithString("bank",
			mcp.Required(),
			mcp.Description("Format or bank: csv, ofx, qif, c6, itau or pdf"),
		),
	), s.parseStatementHandler)

	return mcpServer
}

// Run serves the tools over stdio until stdin closes
func (s *Server) Run() error {
	return server.ServeStdio(s.MCPServer())
}

func stringArg(request mcp.CallToolRequest, name string) (string, error) {
	v, ok := request.Params.Arguments[name].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%s must be a non-empty string", name)
	}
	return v, nil
}

func intArg(request mcp.CallToolRequest, name string, def int) (int, error) {
	val, ok := request.Params.Arguments[name]
	if !ok {
		return def, nil
	}
	switch v := val.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", name, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be a number or string", name)
	}
}

func typeArg(request mcp.CallToolRequest, required bool) (types.TransactionType, error) {
	v, _ := request.Params.Arguments["type"].(string)
	if v == "" && !required {
		return "", nil
	}
	return types.ParseTransactionType(v)
}

func (s *Server) classifyTransactionHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	description, err := stringArg(request, "description")
	if err != nil {
		return nil, err
	}
	typ, err := typeArg(request, true)
	if err != nil {
		return nil, err
	}

	prepared, err := s.prepare(ctx)
	if err != nil {
		return nil, err
	}

	c := prepared.Classify(description, typ)
	if !c.Matched() {
		return mcp.NewToolResultText("No classification found\n"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Category: %s\nConfidence: %.2f\nSource: %s\n", c.Category, c.Confidence, c.Tier)), nil
}

func (s *Server) prepare(ctx context.Context) (*classifier.Prepared, error) {
	categories, err := s.db.ListCategories(ctx, s.owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	rules, err := s.db.ListRules(ctx, s.owner, db.RuleFilter{AutoApplyOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return classifier.Prepare(categories, rules), nil
}

func (s *Server) listRulesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ, err := typeArg(request, false)
	if err != nil {
		return nil, err
	}
	category, _ := request.Params.Arguments["category"].(string)

	rules, err := s.db.ListRules(ctx, s.owner, db.RuleFilter{TransactionType: typ, Category: category})
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	var result strings.Builder
	for _, r := range rules {
		fmt.Fprintf(&result, "#%d %s %q -> %s\n", r.ID, r.MatchType, r.Pattern, r.Category)
		fmt.Fprintf(&result, "  Type: %s\n", r.TransactionType)
		fmt.Fprintf(&result, "  Priority: %d\n", r.Priority)
		if !r.AutoApply {
			result.WriteString("  Auto apply: off\n")
		}
		result.WriteString("\n")
	}
	fmt.Fprintf(&result, "Total Rules: %d\n", len(rules))

	return mcp.NewToolResultText(result.String()), nil
}

func (s *Server) createRuleHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern, err := stringArg(request, "pattern")
	if err != nil {
		return nil, err
	}
	category, err := stringArg(request, "category")
	if err != nil {
		return nil, err
	}
	typ, err := typeArg(request, true)
	if err != nil {
		return nil, err
	}
	matchType := types.MatchTypeContains
	if v, ok := request.Params.Arguments["match_type"].(string); ok && v != "" {
		matchType = types.MatchType(strings.ToLower(v))
	}
	priority, err := intArg(request, "priority", 10)
	if err != nil {
		return nil, err
	}

	rule, err := types.NewClassificationRule(s.owner, pattern, matchType, category, typ, priority, true)
	if err != nil {
		return nil, err
	}
	rule, err = s.db.CreateRule(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}

	s.logger.Info("Created rule", "id", rule.ID, "pattern", rule.Pattern, "category", rule.Category)
	return mcp.NewToolResultText(fmt.Sprintf("Saved rule #%d: %s %q -> %s (%s)\n", rule.ID, rule.MatchType, rule.Pattern, rule.Category, rule.TransactionType)), nil
}

func (s *Server) deleteRuleHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := intArg(request, "id", 0)
	if err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, errors.New("id must be a positive integer")
	}

	if err := s.db.DeleteRule(ctx, s.owner, int64(id)); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return mcp.NewToolResultText(fmt.Sprintf("Rule #%d not found\n", id)), nil
		}
		return nil, fmt.Errorf("failed to delete rule: %w", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted rule #%d\n", id)), nil
}

func (s *Server) listCategoriesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	categories, err := s.db.ListCategories(ctx, s.owner)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	var result strings.Builder
	result.WriteString("Budget Categories\n\n")
	for _, cat := range categories {
		fmt.Fprintf(&result, "%-30s %-8s", cat.Name, cat.CategoryType)
		if len(cat.Keywords) > 0 {
			fmt.Fprintf(&result, " keywords: %s", strings.Join(cat.Keywords, ", "))
		}
		result.WriteString("\n")
	}
	fmt.Fprintf(&result, "\nDefault expense categories: %s\n", strings.Join(classifier.DefaultCategories(types.TransactionTypeExpense), ", "))
	fmt.Fprintf(&result, "Default income categories: %s\n", strings.Join(classifier.DefaultCategories(types.TransactionTypeIncome), ", "))

	return mcp.NewToolResultText(result.String()), nil
}

func (s *Server) parseStatementHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := stringArg(request, "path")
	if err != nil {
		return nil, err
	}
	selector, err := stringArg(request, "bank")
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open statement: %w", err)
	}
	defer f.Close()

	file, err := ingest.ReadFile(path, selector, f)
	if err != nil {
		return nil, err
	}

	parsed, err := ingest.NewImporter(s.registry, s.logger).WithClock(s.now).ParseFiles(ctx, []ingest.File{file})
	if err != nil {
		return nil, err
	}
	if len(parsed.FileErrors) > 0 {
		return nil, parsed.FileErrors[0]
	}

	prepared, err := s.prepare(ctx)
	if err != nil {
		return nil, err
	}

	var result strings.Builder
	for _, tx := range parsed.Transactions {
		c := prepared.Classify(tx.Description, tx.Type)
		fmt.Fprintf(&result, "%s: %s %s - %s\n", tx.Date, tx.Type, tx.Amount.StringFixed(2), tx.Description)
		if c.Matched() {
			fmt.Fprintf(&result, "  Category: %s (%s, %.2f)\n", c.Category, c.Tier, c.Confidence)
		}
	}
	fmt.Fprintf(&result, "\nTransactions: %d, skipped rows: %d, duplicates: %d\n", len(parsed.Transactions), parsed.Skipped, parsed.Duplicates)

	return mcp.NewToolResultText(result.String()), nil
}
