package c6

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

const statement = `C6 BANK S.A.
Extrato de conta corrente
Período 01/12/2023 a 31/01/2024
Dezembro 2023
28/12 Pix enviado para JOAO SILVA -150,00
30/12 Pix recebido de MARIA SOUZA 1.200,00
30/12 Saldo do dia 5.000,00
JANEIRO DE 2024
02/01 Compra no débito IFD*RESTAURANTE XYZ -R$ 45,90
31/02 Linha com data impossível -1,00
03/01 Tarifa sem valor
`

var today = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

func parse(t *testing.T, text string) *bank.Result {
	t.Helper()
	p := New(log.New(io.Discard))
	result, err := p.ParseTransactions(context.Background(), strings.NewReader(text), bank.Options{Today: today})
	require.NoError(t, err)
	return result
}

func TestParseTransactionsCarriesBannerYear(t *testing.T) {
	result := parse(t, statement)

	require.Len(t, result.Transactions, 3)
	assert.Equal(t, 2, result.Skipped)

	assert.Equal(t, "2023-12-28", result.Transactions[0].Date)
	assert.Equal(t, "Pix enviado para JOAO SILVA", result.Transactions[0].Description)
	assert.Equal(t, types.TransactionTypeExpense, result.Transactions[0].Type)
	assert.Equal(t, "150", result.Transactions[0].Amount.String())

	assert.Equal(t, "2023-12-30", result.Transactions[1].Date)
	assert.Equal(t, types.TransactionTypeIncome, result.Transactions[1].Type)
	assert.Equal(t, "1200", result.Transactions[1].Amount.String())

	assert.Equal(t, "2024-01-02", result.Transactions[2].Date)
	assert.Equal(t, "Compra no débito IFD*RESTAURANTE XYZ", result.Transactions[2].Description)
	assert.Equal(t, "45.9", result.Transactions[2].Amount.String())
	assert.Equal(t, "C6 Bank", result.Transactions[2].Source)
}

func TestParseLargeAmountsWithoutSeparators(t *testing.T) {
	tests := []struct {
		line        string
		description string
		amount      string
		typ         types.TransactionType
	}{
		{"15/03 Pix enviado -1500,00", "Pix enviado", "1500", types.TransactionTypeExpense},
		{"15/03 Pix recebido 1500,00", "Pix recebido", "1500", types.TransactionTypeIncome},
		{"15/03 Compra internacional 1234.56", "Compra internacional", "1234.56", types.TransactionTypeIncome},
		{"15/03 Aluguel -R$ 12500,00", "Aluguel", "12500", types.TransactionTypeExpense},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			result := parse(t, "C6 BANK\nMarço 2024\n"+tt.line+"\n")
			require.Len(t, result.Transactions, 1)
			tx := result.Transactions[0]
			assert.Equal(t, "2024-03-15", tx.Date)
			assert.Equal(t, tt.description, tx.Description)
			assert.Equal(t, tt.amount, tx.Amount.String())
			assert.Equal(t, tt.typ, tx.Type)
		})
	}
}

func TestBannerStateDoesNotLeakAcrossFiles(t *testing.T) {
	first := parse(t, "C6 BANK\nMarço 2019\n05/03 PADARIA -5,00\n")
	require.Len(t, first.Transactions, 1)
	assert.Equal(t, "2019-03-05", first.Transactions[0].Date)

	second := parse(t, "C6 BANK\n05/03 PADARIA -5,00\n")
	require.Len(t, second.Transactions, 1)
	assert.Equal(t, "2024-03-05", second.Transactions[0].Date, "starts from the current year")
}

func TestDetect(t *testing.T) {
	p := New(log.New(io.Discard))
	assert.True(t, p.Detect("Extrato C6 Bank S.A."))
	assert.True(t, p.Detect("BANCO C6 CONSIGNADO"))
	assert.False(t, p.Detect("ITAU UNIBANCO"))
}
