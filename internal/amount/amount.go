// Package amount parses the money tokens printed by bank exports.
package amount

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// Token matches a money token inside a line of statement text: optional sign,
// optional currency symbol, an integer part with or without thousands
// separators and two decimals. Group 1 is the token; the token must start at
// the beginning of the line or after whitespace.
var Token = regexp.MustCompile(`(?:^|\s)(-?\s?(?:R\$|US\$|\$|€|£)?\s?-?(?:\d{1,3}(?:[.,]\d{3})+|\d+)[.,]\d{2}-?)`)

var currencySymbols = []string{"R$", "US$", "BRL", "USD", "EUR", "$", "€", "£"}

// Parse converts a raw amount into a signed decimal. It strips currency
// symbols and thousands separators and accepts either a decimal comma or a
// decimal point. A leading or trailing minus, or surrounding parentheses,
// make the result negative.
func Parse(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	for _, sym := range currencySymbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == ' ' || r == '+' {
			return -1
		}
		return r
	}, s)
	if strings.HasSuffix(s, "-") {
		negative = !negative
		s = strings.TrimSuffix(s, "-")
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = strings.TrimPrefix(s, "-")
	}
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
		}
	}

	d, err := decimal.NewFromString(normalizeSeparators(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// normalizeSeparators rewrites a digits-and-separators string to use a single decimal point
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		// whichever comes last is the decimal separator
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 <= 2 {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			return strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}

// FindAllIndex returns the [start, end) offsets of the money tokens in a
// line, in order of appearance. Tokens glued to other text on either side,
// like the "1500,00" in "REF1500,00", are not money.
func FindAllIndex(line string) [][]int {
	var out [][]int
	for _, m := range Token.FindAllStringSubmatchIndex(line, -1) {
		start, end := m[2], m[3]
		if next, _ := utf8.DecodeRuneInString(line[end:]); end < len(line) && !unicode.IsSpace(next) {
			continue
		}
		for start < end && line[start] == ' ' {
			start++
		}
		out = append(out, []int{start, end})
	}
	return out
}

// FindAll returns the money tokens in a line, in order of appearance
func FindAll(line string) []string {
	idx := FindAllIndex(line)
	out := make([]string, 0, len(idx))
	for _, m := range idx {
		out = append(out, line[m[0]:m[1]])
	}
	return out
}
