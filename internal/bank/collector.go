package bank

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/lox/statement-importer/internal/amount"
	"github.com/lox/statement-importer/internal/dates"
	"github.com/lox/statement-importer/internal/types"
	"github.com/shopspring/decimal"
)

// MinDescriptionLength is the shortest description accepted as a transaction
const MinDescriptionLength = 2

// balanceMarkers identify opening/closing balance rows, which are not transactions
var balanceMarkers = []string{
	"saldo anterior",
	"saldo do dia",
	"saldo final",
	"saldo inicial",
	"saldo em conta",
	"saldo disponivel",
	"saldo disponível",
	"saldo total",
	"opening balance",
	"closing balance",
	"balance brought forward",
	"balance carried forward",
}

// IsBalanceMarker reports whether a description is an opening/closing balance row
func IsBalanceMarker(description string) bool {
	d := strings.ToLower(strings.TrimSpace(description))
	for _, m := range balanceMarkers {
		if strings.HasPrefix(d, m) {
			return true
		}
	}
	return d == "saldo" || d == "balance"
}

// Collector is the row sink shared by all parsers. It normalises dates and
// amounts, applies the post-filter and counts skipped rows.
type Collector struct {
	opts   Options
	logger *log.Logger
	result Result
}

// NewCollector creates a collector for one file
func NewCollector(opts Options, logger *log.Logger) *Collector {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Collector{opts: opts, logger: logger}
}

// Add converts a raw row into a transaction. It returns false when the row was
// filtered out or skipped.
func (c *Collector) Add(rawDate, description, rawAmount string) bool {
	signed, err := amount.Parse(rawAmount)
	if err != nil {
		c.skip("non-numeric amount", description, err)
		return false
	}
	return c.AddSigned(dates.Normalize(rawDate, c.opts.Today), description, signed)
}

// AddSigned adds a row whose date is already ISO and whose amount is already parsed
func (c *Collector) AddSigned(isoDate, description string, signed decimal.Decimal) bool {
	description = types.CleanDescription(description)
	if utf8.RuneCountInString(description) < MinDescriptionLength {
		c.skip("description too short", description, nil)
		return false
	}
	if IsBalanceMarker(description) {
		c.logger.Debug("Dropping balance row", "description", description)
		return false
	}
	tx, err := types.FromSigned(isoDate, description, signed, c.opts.Source)
	if err != nil {
		c.skip("invalid transaction", description, err)
		return false
	}
	c.result.Transactions = append(c.result.Transactions, tx)
	return true
}

// Skip records a row that could not be parsed
func (c *Collector) Skip(reason, row string) {
	c.skip(reason, row, nil)
}

func (c *Collector) skip(reason, row string, err error) {
	c.result.Skipped++
	if err != nil {
		c.logger.Debug("Skipping row", "reason", reason, "row", row, "error", err)
		return
	}
	c.logger.Debug("Skipping row", "reason", reason, "row", row)
}

// Result returns the collected transactions
func (c *Collector) Result() *Result {
	r := c.result
	return &r
}

// SourceOr returns opts.Source, or fallback when it is empty
func (o Options) SourceOr(fallback string) Options {
	if strings.TrimSpace(o.Source) == "" {
		o.Source = fallback
	}
	return o
}
