package ofx

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/lox/statement-importer/internal/bank"
)

var (
	blockPattern  = regexp.MustCompile(`(?is)<STMTTRN>(.*?)</STMTTRN>`)
	fieldPatterns = map[string]*regexp.Regexp{}
)

func init() {
	for _, tag := range []string{"TRNAMT", "DTPOSTED", "MEMO", "NAME", "FITID"} {
		fieldPatterns[tag] = regexp.MustCompile(fmt.Sprintf(`(?i)<%s>([^<\r\n]*)`, tag))
	}
}

// OFX parses OFX/SGML statements. The format is read block by block with
// patterns rather than as strict XML, since most banks emit unclosed SGML tags.
type OFX struct {
	logger *log.Logger
}

// New creates a new OFX parser
func New(logger *log.Logger) *OFX {
	return &OFX{logger: logger}
}

// Name returns the selector name of the format
func (o *OFX) Name() string {
	return "ofx"
}

// ParseTransactions parses every <STMTTRN> block of an OFX file
func (o *OFX) ParseTransactions(ctx context.Context, r io.Reader, opts bank.Options) (*bank.Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read ofx: %w", err)
	}

	collector := bank.NewCollector(opts.SourceOr("OFX"), o.logger)

	for _, match := range blockPattern.FindAllStringSubmatch(string(data), -1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		block := match[1]

		posted := field(block, "DTPOSTED")
		amount := field(block, "TRNAMT")
		memo := field(block, "MEMO")
		if memo == "" {
			memo = field(block, "NAME")
		}

		if posted == "" || amount == "" {
			collector.Skip("incomplete STMTTRN block", field(block, "FITID"))
			continue
		}
		collector.Add(posted, memo, amount)
	}

	return collector.Result(), nil
}

func field(block, tag string) string {
	if m := fieldPatterns[tag].FindStringSubmatch(block); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// Ensure OFX implements the Bank interface
var _ bank.Bank = (*OFX)(nil)
