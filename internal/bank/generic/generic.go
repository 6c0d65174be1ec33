// Package generic is the fallback parser for PDF statement text from banks
// without a dedicated parser. It only accepts the safest line shape: a full
// DD/MM/YYYY date, a description and exactly one trailing amount.
package generic

import (
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/lox/statement-importer/internal/amount"
	"github.com/lox/statement-importer/internal/bank"
)

var linePattern = regexp.MustCompile(`^(\d{2}/\d{2}/\d{4})\s+(.+)$`)

// Generic represents the conservative fallback statement parser
type Generic struct {
	logger *log.Logger
}

// New creates a new fallback parser
func New(logger *log.Logger) *Generic {
	return &Generic{logger: logger}
}

// Name returns the name of the parser
func (g *Generic) Name() string {
	return "generic"
}

// ParseTransactions parses transactions from statement text
func (g *Generic) ParseTransactions(ctx context.Context, r io.Reader, opts bank.Options) (*bank.Result, error) {
	lines, err := bank.Lines(r)
	if err != nil {
		return nil, err
	}

	collector := bank.NewCollector(opts.SourceOr("PDF"), g.logger)
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m := linePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		rest := m[2]
		tokens := amount.FindAllIndex(rest)
		// a second money column is ambiguous (balance? foreign amount?), so leave it alone
		if len(tokens) != 1 || tokens[0][1] != len(rest) {
			collector.Skip("ambiguous line", line)
			continue
		}
		collector.Add(m[1], strings.TrimSpace(rest[:tokens[0][0]]), rest[tokens[0][0]:])
	}

	return collector.Result(), nil
}

// Ensure Generic implements the Bank interface
var _ bank.Bank = (*Generic)(nil)
