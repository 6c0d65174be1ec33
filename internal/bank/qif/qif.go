package qif

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/lox/statement-importer/internal/bank"
)

// Record represents a single QIF record
type Record struct {
	Date     string
	Amount   string
	Payee    string
	Category string
	Number   string
	Memo     string
}

// description prefers the payee and falls back to the memo
func (r Record) description() string {
	if strings.TrimSpace(r.Payee) != "" {
		return r.Payee
	}
	return r.Memo
}

// ParseRecords reads QIF records separated by "^" lines
func ParseRecords(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanLines)

	var records []Record
	current := Record{}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 {
			continue
		}

		switch line[0] {
		case '^':
			if current.Date != "" {
				records = append(records, current)
			}
			current = Record{}
		case '!':
			// header such as !Type:Bank
		case 'D':
			// some exporters write 15/03'24 for 15/03/2024
			current.Date = strings.ReplaceAll(line[1:], "'", "/")
		case 'T', 'U':
			current.Amount = line[1:]
		case 'P':
			current.Payee = line[1:]
		case 'L':
			current.Category = line[1:]
		case 'N':
			current.Number = line[1:]
		case 'M':
			current.Memo = line[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read qif: %w", err)
	}

	if current.Date != "" {
		records = append(records, current)
	}

	return records, nil
}

// QIF parses Quicken Interchange Format exports
type QIF struct {
	logger *log.Logger
}

// New creates a new QIF parser
func New(logger *log.Logger) *QIF {
	return &QIF{logger: logger}
}

// Name returns the selector name of the format
func (q *QIF) Name() string {
	return "qif"
}

// ParseTransactions parses transactions from a QIF file
func (q *QIF) ParseTransactions(ctx context.Context, r io.Reader, opts bank.Options) (*bank.Result, error) {
	records, err := ParseRecords(r)
	if err != nil {
		return nil, err
	}

	collector := bank.NewCollector(opts.SourceOr("QIF"), q.logger)
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		collector.Add(rec.Date, rec.description(), rec.Amount)
	}
	return collector.Result(), nil
}

// Ensure QIF implements the Bank interface
var _ bank.Bank = (*QIF)(nil)
