package ofx

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/statement-importer/internal/bank"
	"github.com/lox/statement-importer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statement = `OFXHEADER:100
DATA:OFXSGML
VERSION:102

<OFX>
<BANKMSGSRSV1><STMTTRNRS><STMTRS>
<BANKTRANLIST>
<DTSTART>20240301
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240315120000[-3:BRT]
<TRNAMT>-45.90
<FITID>0001
<MEMO>IFD*RESTAURANTE XYZ
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240305
<TRNAMT>5000.00
<FITID>0002
<NAME>SALARIO EMPRESA
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<FITID>0003
<MEMO>SEM DATA
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240320
<TRNAMT>-12,30
<FITID>0004
<MEMO>PADARIA CENTRAL
</STMTTRN>
</BANKTRANLIST>
</STMTRS></STMTTRNRS></BANKMSGSRSV1>
</OFX>
`

func TestParseTransactions(t *testing.T) {
	p := New(log.New(io.Discard))
	result, err := p.ParseTransactions(context.Background(), strings.NewReader(statement), bank.Options{
		Today: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.Len(t, result.Transactions, 3)
	assert.Equal(t, 1, result.Skipped)

	first := result.Transactions[0]
	assert.Equal(t, "2024-03-15", first.Date)
	assert.Equal(t, "IFD*RESTAURANTE XYZ", first.Description)
	assert.Equal(t, "45.9", first.Amount.String())
	assert.Equal(t, types.TransactionTypeExpense, first.Type)
	assert.Equal(t, "OFX", first.Source)

	second := result.Transactions[1]
	assert.Equal(t, "SALARIO EMPRESA", second.Description, "falls back to NAME without MEMO")
	assert.Equal(t, types.TransactionTypeIncome, second.Type)

	third := result.Transactions[2]
	assert.Equal(t, "12.3", third.Amount.String())
	assert.Equal(t, types.TransactionTypeExpense, third.Type)
}

func TestParseNoBlocks(t *testing.T) {
	p := New(log.New(io.Discard))
	result, err := p.ParseTransactions(context.Background(), strings.NewReader("<OFX></OFX>"), bank.Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Transactions)
}
