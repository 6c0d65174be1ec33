// Package itau parses text extracted from Itaú account statements.
//
// Lines look like "15/03/2024 PIX TRANSF JOAO -150,00 4.850,00": the amount can
// be followed by the running balance of the day. With two trailing money
// tokens the first is the transaction amount and the last is the balance.
// Debits are often printed unsigned, so their sign comes from the next
// balance the statement prints.
package itau

import (
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/lox/statement-importer/internal/amount"
	"github.com/lox/statement-importer/internal/bank"
	"github.com/lox/statement-importer/internal/dates"
	"github.com/shopspring/decimal"
)

var linePattern = regexp.MustCompile(`^(\d{2}/\d{2}/\d{4})\s+(.+)$`)

// Itau represents the Itaú statement text parser
type Itau struct {
	logger *log.Logger
}

// New creates a new Itaú parser
func New(logger *log.Logger) *Itau {
	return &Itau{logger: logger}
}

// Name returns the name of the bank
func (i *Itau) Name() string {
	return "itau"
}

// row is a transaction waiting for a balance to settle its sign
type row struct {
	iso         string
	description string
	signed      decimal.Decimal
	// signed rows carried an explicit minus; the others are unsigned
	explicit bool
}

// state tracks the last known running balance of one file and the rows
// seen since then
type state struct {
	balance decimal.Decimal
	known   bool
	pending []row
}

// ParseTransactions parses transactions from Itaú statement text
func (i *Itau) ParseTransactions(ctx context.Context, r io.Reader, opts bank.Options) (*bank.Result, error) {
	lines, err := bank.Lines(r)
	if err != nil {
		return nil, err
	}

	collector := bank.NewCollector(opts.SourceOr("Itaú"), i.logger)
	var st state

	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m := linePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		iso, err := dates.Parse(m[1])
		if err != nil {
			collector.Skip("invalid date", line)
			continue
		}
		i.line(collector, &st, iso, m[2], line)
	}
	i.flush(collector, &st)

	return collector.Result(), nil
}

func (i *Itau) line(collector *bank.Collector, st *state, iso, rest, line string) {
	tokens := amount.FindAllIndex(rest)
	if len(tokens) == 0 {
		collector.Skip("no amount", line)
		return
	}

	amountIdx := tokens[len(tokens)-1]
	var balanceRaw string
	if len(tokens) >= 2 {
		amountIdx = tokens[len(tokens)-2]
		balanceRaw = rest[tokens[len(tokens)-1][0]:tokens[len(tokens)-1][1]]
	}
	description := strings.TrimSpace(rest[:amountIdx[0]])
	amountRaw := rest[amountIdx[0]:amountIdx[1]]

	signed, err := amount.Parse(amountRaw)
	if err != nil {
		collector.Skip("invalid amount", line)
		return
	}

	var (
		balance    decimal.Decimal
		hasBalance bool
	)
	if balanceRaw != "" {
		if b, err := amount.Parse(balanceRaw); err == nil {
			balance, hasBalance = b, true
		}
	}

	if bank.IsBalanceMarker(description) {
		// "SALDO DO DIA 7.487,50" carries the balance in its only money column
		if !hasBalance {
			balance = signed
		}
		if st.known && len(st.pending) > 0 {
			i.settle(st, balance, nil)
		}
		i.flush(collector, st)
		st.balance, st.known = balance, true
		i.logger.Debug("Balance row", "description", description, "balance", st.balance)
		return
	}

	r := row{iso: iso, description: description, signed: signed, explicit: signed.IsNegative()}
	switch {
	case hasBalance && st.known:
		i.settle(st, balance, &r)
		i.flush(collector, st)
		collector.AddSigned(r.iso, r.description, r.signed)
		st.balance = balance
	case hasBalance:
		i.flush(collector, st)
		collector.AddSigned(r.iso, r.description, r.signed)
		st.balance, st.known = balance, true
	case st.known:
		// wait for the next balance to tell debits from credits
		st.pending = append(st.pending, r)
	default:
		collector.AddSigned(r.iso, r.description, r.signed)
	}
}

// settle picks the signs of the pending unsigned rows, and of current when it
// is unsigned, so that the last balance plus the rows equals target. Unsigned
// amounts stay credits when no choice reconciles.
func (i *Itau) settle(st *state, target decimal.Decimal, current *row) {
	base := st.balance
	unsigned := decimal.Zero
	for _, r := range st.pending {
		if r.explicit {
			base = base.Add(r.signed)
		} else {
			unsigned = unsigned.Add(r.signed)
		}
	}

	pendingSigns := []int64{1, -1}
	if unsigned.IsZero() {
		pendingSigns = pendingSigns[:1]
	}
	currentSigns := []int64{0}
	if current != nil {
		currentSigns = []int64{1}
		if !current.explicit {
			currentSigns = append(currentSigns, -1)
		}
	}

	for _, ps := range pendingSigns {
		for _, cs := range currentSigns {
			total := base.Add(unsigned.Mul(decimal.NewFromInt(ps)))
			if current != nil {
				total = total.Add(current.signed.Mul(decimal.NewFromInt(cs)))
			}
			if !total.Equal(target) {
				continue
			}
			if ps < 0 {
				for j := range st.pending {
					if !st.pending[j].explicit {
						st.pending[j].signed = st.pending[j].signed.Neg()
					}
				}
			}
			if cs < 0 {
				current.signed = current.signed.Neg()
			}
			return
		}
	}
	i.logger.Debug("Balance does not reconcile", "balance", st.balance, "target", target, "rows", len(st.pending))
}

// flush hands the pending rows to the collector in statement order
func (i *Itau) flush(collector *bank.Collector, st *state) {
	for _, r := range st.pending {
		collector.AddSigned(r.iso, r.description, r.signed)
	}
	st.pending = st.pending[:0]
}

// Ensure Itau implements the Bank interface
var _ bank.Bank = (*Itau)(nil)
