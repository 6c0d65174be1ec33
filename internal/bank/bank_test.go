package bank_test

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/statement-importer/internal/bank"
	"github.com/lox/statement-importer/internal/bank/c6"
	"github.com/lox/statement-importer/internal/bank/csv"
	"github.com/lox/statement-importer/internal/bank/generic"
	"github.com/lox/statement-importer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry() *bank.Registry {
	logger := log.New(io.Discard)
	r := bank.NewRegistry()
	r.Register(csv.New(logger))
	r.Register(c6.New(logger))
	r.SetPDFFallback(generic.New(logger))
	return r
}

func TestRegistryResolve(t *testing.T) {
	r := newRegistry()

	b, err := r.Resolve("CSV", nil)
	require.NoError(t, err)
	assert.Equal(t, "csv", b.Name())

	b, err = r.Resolve("pdf", []byte("C6 BANK S.A.\nMarço 2024\n"))
	require.NoError(t, err)
	assert.Equal(t, "c6", b.Name())

	b, err = r.Resolve("pdf", []byte("Banco Qualquer\n"))
	require.NoError(t, err)
	assert.Equal(t, "generic", b.Name())

	_, err = r.Resolve("unknown", nil)
	assert.Error(t, err)

	assert.Equal(t, []string{"c6", "csv", "generic"}, r.List())
}

func TestIsBalanceMarker(t *testing.T) {
	assert.True(t, bank.IsBalanceMarker("SALDO ANTERIOR"))
	assert.True(t, bank.IsBalanceMarker("Saldo do dia 16/03"))
	assert.True(t, bank.IsBalanceMarker("Closing balance"))
	assert.False(t, bank.IsBalanceMarker("PIX RECEBIDO SALDO DEVEDOR"))
	assert.False(t, bank.IsBalanceMarker("UBER *TRIP"))
}

func TestCollector(t *testing.T) {
	c := bank.NewCollector(bank.Options{
		Source: "test",
		Today:  time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
	}, nil)

	assert.True(t, c.Add("15/03/2024", "  UBER   *TRIP ", "-12,00"))
	assert.False(t, c.Add("15/03/2024", "X", "-12,00"))
	assert.False(t, c.Add("15/03/2024", "MERCADO", "doze"))
	assert.False(t, c.Add("15/03/2024", "Saldo final", "100,00"))

	result := c.Result()
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, "UBER *TRIP", result.Transactions[0].Description)
	assert.Equal(t, types.TransactionTypeExpense, result.Transactions[0].Type)
}
