package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/lox/statement-importer/internal/commands"
	"github.com/lox/statement-importer/internal/db"
	"github.com/lox/statement-importer/internal/mcp"
)

type CLI struct {
	commands.CommonConfig
}

func (c *CLI) Run() error {
	logger, err := commands.SetupLogger(c.LogLevel)
	if err != nil {
		return err
	}
	now, err := commands.Clock(c.Timezone)
	if err != nil {
		return err
	}

	database, err := db.New(c.DataDir, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	s := mcp.New(database, commands.NewRegistry(logger), c.Owner, now, logger)
	return s.Run()
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("statement-mcp-server"),
		kong.Description("MCP server for statement classification and rules"),
		kong.UsageOnError(),
	)

	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
