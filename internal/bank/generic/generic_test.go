package generic

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

func TestParseTransactionsAcceptsOnlySafeLines(t *testing.T) {
	text := `Banco Exemplo
Extrato do período
15/03/2024 IFD*RESTAURANTE XYZ -45,90
16/03/2024 TED RECEBIDA 1.000,00 2.500,00
17/03/2024 DESCRICAO SEM VALOR
18/03 SEM ANO -10,00
19/03/2024 UBER *TRIP -12,00
`
	p := New(log.New(io.Discard))
	result, err := p.ParseTransactions(context.Background(), strings.NewReader(text), bank.Options{
		Source: "extrato.pdf",
		Today:  time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.Len(t, result.Transactions, 2)
	assert.Equal(t, 2, result.Skipped)

	assert.Equal(t, "2024-03-15", result.Transactions[0].Date)
	assert.Equal(t, "IFD*RESTAURANTE XYZ", result.Transactions[0].Description)
	assert.Equal(t, types.TransactionTypeExpense, result.Transactions[0].Type)
	assert.Equal(t, "UBER *TRIP", result.Transactions[1].Description)
	assert.Equal(t, "extrato.pdf", result.Transactions[1].Source)
}

func TestParseLargeAmountsWithoutSeparators(t *testing.T) {
	text := `15/03/2024 ALUGUEL -1500,00
16/03/2024 SALARIO 5000,00 7000,00
17/03/2024 REEMBOLSO 1234.56
18/03/2024 PEDIDO REF1500,00
`
	p := New(log.New(io.Discard))
	result, err := p.ParseTransactions(context.Background(), strings.NewReader(text), bank.Options{
		Today: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.Len(t, result.Transactions, 2)
	assert.Equal(t, 2, result.Skipped, "two money columns and a glued amount are both ambiguous")

	rent := result.Transactions[0]
	assert.Equal(t, "ALUGUEL", rent.Description)
	assert.Equal(t, "1500", rent.Amount.String())
	assert.Equal(t, types.TransactionTypeExpense, rent.Type)

	refund := result.Transactions[1]
	assert.Equal(t, "REEMBOLSO", refund.Description)
	assert.Equal(t, "1234.56", refund.Amount.String())
	assert.Equal(t, types.TransactionTypeIncome, refund.Type)
}
