package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Valid reports whether t is one of the known directions
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// ParseTransactionType parses a direction name, case-insensitively
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("invalid transaction type %q", s)
	}
	return t, nil
}

// MaxDescriptionLength caps descriptions, in runes
const MaxDescriptionLength = 100

// SourceManual labels transactions entered by hand
const SourceManual = "Manual"

const isoDate = "2006-01-02"

var (
	ErrInvalidDate        = errors.New("date must be YYYY-MM-DD")
	ErrEmptyDescription   = errors.New("description is empty")
	ErrNegativeAmount     = errors.New("amount must not be negative")
	ErrInvalidTransaction = errors.New("invalid transaction type")
)

// CanonicalTransaction is the parser-agnostic record every format parser emits.
// Amount is always a magnitude; the direction lives in Type.
type CanonicalTransaction struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Source      string          `json:"source"`
}

// NewCanonicalTransaction validates its inputs and returns a normalised transaction
func NewCanonicalTransaction(date, description string, amount decimal.Decimal, typ TransactionType, source string) (CanonicalTransaction, error) {
	if _, err := time.Parse(isoDate, date); err != nil {
		return CanonicalTransaction{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	description = CleanDescription(description)
	if description == "" {
		return CanonicalTransaction{}, ErrEmptyDescription
	}
	if amount.IsNegative() {
		return CanonicalTransaction{}, ErrNegativeAmount
	}
	if !typ.Valid() {
		return CanonicalTransaction{}, fmt.Errorf("%w: %q", ErrInvalidTransaction, typ)
	}
	return CanonicalTransaction{
		Date:        date,
		Description: description,
		Amount:      amount,
		Type:        typ,
		Source:      strings.TrimSpace(source),
	}, nil
}

// FromSigned builds a transaction from a signed amount: negative amounts are
// expenses, everything else is income. The sign is dropped afterwards.
func FromSigned(date, description string, signed decimal.Decimal, source string) (CanonicalTransaction, error) {
	typ := TransactionTypeIncome
	if signed.IsNegative() {
		typ = TransactionTypeExpense
	}
	return NewCanonicalTransaction(date, description, signed.Abs(), typ, source)
}

// MonthYear returns the YYYY-MM bucket of the transaction date
func (t CanonicalTransaction) MonthYear() string {
	if len(t.Date) < 7 {
		return ""
	}
	return t.Date[:7]
}

// Signed returns the amount with the sign implied by the direction
func (t CanonicalTransaction) Signed() decimal.Decimal {
	if t.Type == TransactionTypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Key returns the (date, description, amount) identity used for deduplication
func (t CanonicalTransaction) Key() string {
	return t.Date + "|" + t.Description + "|" + t.Amount.StringFixed(2)
}

// HashID derives the ledger hash for re-import detection from date, amount and description
func HashID(date string, amount decimal.Decimal, description string) string {
	h := sha256.New()
	h.Write([]byte(fmt.Sprintf("%s|%s|%s", date, amount.StringFixed(2), strings.ToLower(strings.TrimSpace(description)))))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// HashID returns the ledger hash of the transaction
func (t CanonicalTransaction) HashID() string {
	return HashID(t.Date, t.Amount, t.Description)
}

// CleanDescription collapses whitespace and truncates to MaxDescriptionLength runes
func CleanDescription(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= MaxDescriptionLength {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:MaxDescriptionLength]))
}

// NormalizeDescription is the comparison form of a description: trimmed and lower-cased
func NormalizeDescription(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
