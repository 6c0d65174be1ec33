package csv

import (
	"bufio"
	"bytes"
	"context"
	encsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/lox/statement-importer/internal/bank"
)

const (
	colDate        = 0
	colDescription = 1
	colAmount      = 2
	minColumns     = 3
)

// CSV parses generic "date, description, signed amount" exports, separated by
// commas or semicolons
type CSV struct {
	logger *log.Logger
}

// New creates a new CSV parser
func New(logger *log.Logger) *CSV {
	return &CSV{logger: logger}
}

// Name returns the selector name of the format
func (c *CSV) Name() string {
	return "csv"
}

// ParseTransactions parses transactions from a CSV export
func (c *CSV) ParseTransactions(ctx context.Context, r io.Reader, opts bank.Options) (*bank.Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	// drop a UTF-8 byte order mark, common in spreadsheet exports
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	collector := bank.NewCollector(opts.SourceOr("CSV"), c.logger)

	reader := encsv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *encsv.ParseError
			if errors.As(err, &parseErr) {
				collector.Skip("malformed csv row", err.Error())
				continue
			}
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		if isBlank(record) {
			continue
		}
		if len(record) < minColumns {
			collector.Skip("too few columns", strings.Join(record, string(reader.Comma)))
			continue
		}
		collector.Add(record[colDate], record[colDescription], amountField(record, reader.Comma))
	}

	return collector.Result(), nil
}

// sniffDelimiter uses a semicolon when the first non-empty line contains one
func sniffDelimiter(data []byte) rune {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.Contains(line, ";") {
			return ';'
		}
		return ','
	}
	return ','
}

// amountField returns the amount column. An unquoted decimal comma in a
// comma-separated file splits the amount in two ("-45","90"); rejoin it.
func amountField(record []string, comma rune) string {
	raw := record[colAmount]
	if comma == ',' && len(record) == minColumns+1 {
		cents := strings.TrimSpace(record[minColumns])
		if len(cents) == 2 && strings.Trim(cents, "0123456789") == "" {
			return raw + "," + cents
		}
	}
	return raw
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Ensure CSV implements the Bank interface
var _ bank.Bank = (*CSV)(nil)
