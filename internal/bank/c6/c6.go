// Package c6 parses text extracted from C6 Bank account statements.
//
// Transaction lines only carry day and month ("15/03 Pix enviado ... -150,00");
// the year comes from the most recent month banner ("Março 2024"), so parsing
// is stateful across lines.
package c6

import (
	"context"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/lox/statement-importer/internal/amount"
	"github.com/lox/statement-importer/internal/bank"
	"github.com/lox/statement-importer/internal/dates"
)

var (
	bannerPattern = regexp.MustCompile(`(?i)^(janeiro|fevereiro|mar[çc]o|abril|maio|junho|julho|agosto|setembro|outubro|novembro|dezembro)(?:\s+de)?\s+(\d{4})$`)
	linePattern   = regexp.MustCompile(`^(\d{2}/\d{2})\s+(.+)$`)
)

// bannerMarkers are substrings that identify a C6 statement
var bannerMarkers = []string{"c6 bank", "c6bank", "banco c6"}

// C6 represents the C6 Bank statement text parser
type C6 struct {
	logger *log.Logger
}

// New creates a new C6 Bank parser
func New(logger *log.Logger) *C6 {
	return &C6{logger: logger}
}

// Name returns the name of the bank
func (c *C6) Name() string {
	return "c6"
}

// Detect reports whether statement text looks like a C6 Bank statement
func (c *C6) Detect(content string) bool {
	lower := strings.ToLower(content)
	for _, m := range bannerMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// state is the per-file parse state. Only banner lines change currentYear.
type state struct {
	currentYear int
}

// ParseTransactions parses transactions from C6 statement text
func (c *C6) ParseTransactions(ctx context.Context, r io.Reader, opts bank.Options) (*bank.Result, error) {
	lines, err := bank.Lines(r)
	if err != nil {
		return nil, err
	}

	collector := bank.NewCollector(opts.SourceOr("C6 Bank"), c.logger)
	st := state{currentYear: opts.Today.Year()}

	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if m := bannerPattern.FindStringSubmatch(line); m != nil {
			year, err := strconv.Atoi(m[2])
			if err == nil {
				c.logger.Debug("Statement banner", "banner", line, "year", year)
				st.currentYear = year
			}
			continue
		}

		m := linePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		c.transaction(collector, st, m[1], m[2], line)
	}

	return collector.Result(), nil
}

// transaction turns one "DD/MM description amount" line into a transaction
func (c *C6) transaction(collector *bank.Collector, st state, dayMonth, rest, line string) {
	iso, err := dates.FromDayMonth(dayMonth, st.currentYear)
	if err != nil {
		collector.Skip("invalid day/month", line)
		return
	}

	tokens := amount.FindAllIndex(rest)
	if len(tokens) == 0 {
		collector.Skip("no amount", line)
		return
	}
	last := tokens[len(tokens)-1]
	signed, err := amount.Parse(rest[last[0]:last[1]])
	if err != nil {
		collector.Skip("invalid amount", line)
		return
	}
	collector.AddSigned(iso, strings.TrimSpace(rest[:last[0]]), signed)
}

// Ensure C6 implements the Bank and Detector interfaces
var (
	_ bank.Bank     = (*C6)(nil)
	_ bank.Detector = (*C6)(nil)
)
