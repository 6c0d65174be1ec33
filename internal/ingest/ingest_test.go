package ingest

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/statement-importer/internal/bank"
	"github.com/lox/statement-importer/internal/bank/csv"
	"github.com/lox/statement-importer/internal/bank/ofx"
	"github.com/lox/statement-importer/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImporter() *Importer {
	logger := log.New(io.Discard)
	registry := bank.NewRegistry()
	registry.Register(csv.New(logger))
	registry.Register(ofx.New(logger))
	return NewImporter(registry, logger).
		WithConcurrency(2).
		WithClock(func() time.Time { return time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC) })
}

const ofxStatement = `<OFX><BANKTRANLIST>
<STMTTRN><TRNTYPE>DEBIT<DTPOSTED>20240316120000<TRNAMT>-12.00<MEMO>UBER *TRIP</STMTTRN>
<STMTTRN><TRNTYPE>DEBIT<DTPOSTED>20240315<TRNAMT>-45.90<MEMO>IFD*RESTAURANTE XYZ</STMTTRN>
</BANKTRANLIST></OFX>`

func TestParseFilesDeduplicatesAcrossFiles(t *testing.T) {
	files := []File{
		{Name: "a.csv", Bank: "csv", Data: []byte("15/03/2024,IFD*RESTAURANTE XYZ,-45.90\n17/03/2024,SALARIO,1000.00\n")},
		{Name: "b.ofx", Bank: "OFX", Data: []byte(ofxStatement)},
	}

	result, err := newImporter().ParseFiles(context.Background(), files)
	require.NoError(t, err)

	require.Len(t, result.Transactions, 3)
	assert.Equal(t, 1, result.Duplicates)
	assert.Empty(t, result.FileErrors)

	// file order is preserved and the first copy wins
	assert.Equal(t, "IFD*RESTAURANTE XYZ", result.Transactions[0].Description)
	assert.Equal(t, "a.csv", result.Transactions[0].Source)
	assert.Equal(t, "SALARIO", result.Transactions[1].Description)
	assert.Equal(t, "UBER *TRIP", result.Transactions[2].Description)
	assert.Equal(t, "b.ofx", result.Transactions[2].Source)
}

func TestParseFilesReportsFileErrors(t *testing.T) {
	files := []File{
		{Name: "bad.xls", Bank: "xls", Data: []byte("whatever")},
		{Name: "a.csv", Bank: "csv", Data: []byte("15/03/2024,MERCADO CENTRAL,-10,00\nnot,a,row\n")},
	}

	result, err := newImporter().ParseFiles(context.Background(), files)
	require.NoError(t, err)

	require.Len(t, result.FileErrors, 1)
	assert.Equal(t, "bad.xls", result.FileErrors[0].File)
	assert.Contains(t, result.FileErrors[0].Error(), "unknown bank")
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, 1, result.Skipped)
}

func TestParseFilesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newImporter().ParseFiles(ctx, []File{
		{Name: "a.csv", Bank: "csv", Data: []byte("15/03/2024,MERCADO CENTRAL,-10.00\n")},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDeduplicate(t *testing.T) {
	mk := func(date, desc, amount string) types.CanonicalTransaction {
		tx, err := types.FromSigned(date, desc, decimal.RequireFromString(amount), "test")
		require.NoError(t, err)
		return tx
	}

	txs := []types.CanonicalTransaction{
		mk("2024-03-15", "IFD*RESTAURANTE XYZ", "-45.90"),
		mk("2024-03-15", "IFD*RESTAURANTE XYZ", "-45.9"),
		mk("2024-03-15", "IFD*RESTAURANTE XYZ", "-46.90"),
		mk("2024-03-16", "IFD*RESTAURANTE XYZ", "-45.90"),
	}

	once, dropped := Deduplicate(txs)
	assert.Len(t, once, 3)
	assert.Equal(t, 1, dropped)

	twice, dropped := Deduplicate(once)
	assert.Equal(t, once, twice)
	assert.Zero(t, dropped)
}

func TestReadFile(t *testing.T) {
	f, err := ReadFile("a.csv", "csv", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, File{Name: "a.csv", Bank: "csv", Data: []byte("x")}, f)
}
