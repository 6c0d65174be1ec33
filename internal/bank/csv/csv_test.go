package csv

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

var opts = bank.Options{
	Source: "extrato.csv",
	Today:  time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
}

func parse(t *testing.T, input string) *bank.Result {
	t.Helper()
	p := New(log.New(io.Discard))
	result, err := p.ParseTransactions(context.Background(), strings.NewReader(input), opts)
	require.NoError(t, err)
	return result
}

func TestParseRestaurantExpense(t *testing.T) {
	result := parse(t, "15/03/2024,IFD*RESTAURANTE XYZ,-45.90\n")

	require.Len(t, result.Transactions, 1)
	tx := result.Transactions[0]
	assert.Equal(t, "2024-03-15", tx.Date)
	assert.Equal(t, "IFD*RESTAURANTE XYZ", tx.Description)
	assert.Equal(t, "45.9", tx.Amount.String())
	assert.Equal(t, types.TransactionTypeExpense, tx.Type)
	assert.Equal(t, "extrato.csv", tx.Source)
	assert.Equal(t, "2024-03", tx.MonthYear())
}

func TestParseSemicolonWithDecimalComma(t *testing.T) {
	input := strings.Join([]string{
		"Data;Descrição;Valor",
		"01/03/2024;SALARIO EMPRESA X;5.000,00",
		"02/03/2024;PIX ENVIADO JOAO;-1.234,56",
		"",
	}, "\n")
	result := parse(t, input)

	require.Len(t, result.Transactions, 2)
	assert.Equal(t, 1, result.Skipped, "header row is skipped")

	assert.Equal(t, types.TransactionTypeIncome, result.Transactions[0].Type)
	assert.Equal(t, "5000", result.Transactions[0].Amount.String())
	assert.Equal(t, types.TransactionTypeExpense, result.Transactions[1].Type)
	assert.Equal(t, "1234.56", result.Transactions[1].Amount.String())
}

func TestParseNegativeAmountsAreExpensesWithPositiveMagnitude(t *testing.T) {
	input := strings.Join([]string{
		"10/01/2024,MERCADO,-10.00",
		"11/01/2024,FARMACIA,\"-1,234.50\"",
		"12/01/2024,ESTORNO,20.00",
		"13/01/2024,PADARIA,-7,50",
	}, "\n")
	result := parse(t, input)

	require.Len(t, result.Transactions, 4)
	for _, tx := range result.Transactions {
		assert.False(t, tx.Amount.IsNegative(), tx.Description)
	}
	assert.Equal(t, types.TransactionTypeExpense, result.Transactions[0].Type)
	assert.Equal(t, "1234.5", result.Transactions[1].Amount.String())
	assert.Equal(t, types.TransactionTypeIncome, result.Transactions[2].Type)
	assert.Equal(t, "7.5", result.Transactions[3].Amount.String())
	assert.Equal(t, types.TransactionTypeExpense, result.Transactions[3].Type)
}

func TestParseSkipsMalformedRows(t *testing.T) {
	input := strings.Join([]string{
		"15/03/2024,ONLY TWO",
		"15/03/2024,VALOR INVALIDO,abc",
		"15/03/2024,X,-1.00",
		"15/03/2024,SALDO ANTERIOR,100.00",
		"15/03/2024,UBER *TRIP,-12.00",
	}, "\n")
	result := parse(t, input)

	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "UBER *TRIP", result.Transactions[0].Description)
	assert.Equal(t, 3, result.Skipped)
}

func TestParseMalformedDateFallsBackToToday(t *testing.T) {
	result := parse(t, "ontem,CAFE DA ESQUINA,-5.00\n")

	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "2024-06-01", result.Transactions[0].Date)
}

func TestParseTruncatesLongDescriptions(t *testing.T) {
	result := parse(t, "15/03/2024,"+strings.Repeat("A", 150)+",-1.00\n")

	require.Len(t, result.Transactions, 1)
	assert.Len(t, result.Transactions[0].Description, types.MaxDescriptionLength)
}

func TestParseEmptyInput(t *testing.T) {
	result := parse(t, "")
	assert.Empty(t, result.Transactions)
	assert.Zero(t, result.Skipped)
}
