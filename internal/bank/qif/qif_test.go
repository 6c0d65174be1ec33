package qif

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

const export = `!Type:Bank
D15/03/2024
T-45.90
PIFD*RESTAURANTE XYZ
^
D16/03'24
T1,500.00
MSALARIO MARCO
^
D17/03/2024
TNaN
PBROKEN
^
`

func TestParseRecords(t *testing.T) {
	records, err := ParseRecords(strings.NewReader(export))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "15/03/2024", records[0].Date)
	assert.Equal(t, "16/03/24", records[1].Date)
	assert.Equal(t, "SALARIO MARCO", records[1].Memo)
}

func TestParseTransactions(t *testing.T) {
	p := New(log.New(io.Discard))
	result, err := p.ParseTransactions(context.Background(), strings.NewReader(export), bank.Options{
		Source: "conta.qif",
		Today:  time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.Len(t, result.Transactions, 2)
	assert.Equal(t, 1, result.Skipped)

	assert.Equal(t, "2024-03-15", result.Transactions[0].Date)
	assert.Equal(t, types.TransactionTypeExpense, result.Transactions[0].Type)
	assert.Equal(t, "2024-03-16", result.Transactions[1].Date)
	assert.Equal(t, "SALARIO MARCO", result.Transactions[1].Description)
	assert.Equal(t, "1500", result.Transactions[1].Amount.String())
	assert.Equal(t, "conta.qif", result.Transactions[1].Source)
}
