// Package dates normalises the date tokens found in bank exports into ISO dates.
//
// Three-part dates are always read as day/month/year (DD/MM/YYYY). There is no
// locale detection: a token like 03/04/2024 is the 3rd of April.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISO is the layout of normalised dates
const ISO = "2006-01-02"

var (
	isoPattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	compactPattern = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})`)
)

// Normalize converts a raw date token into YYYY-MM-DD. Tokens that cannot be
// parsed fall back to today, so one malformed date never aborts an import.
func Normalize(raw string, today time.Time) string {
	iso, err := Parse(raw)
	if err != nil {
		return today.Format(ISO)
	}
	return iso
}

// Parse is Normalize without the fallback
func Parse(raw string) (string, error) {
	token := strings.TrimSpace(raw)
	if isoPattern.MatchString(token) {
		return token, nil
	}

	// OFX style YYYYMMDD[HHMMSS[.XXX][TZ]]
	if m := compactPattern.FindStringSubmatch(token); m != nil {
		token = m[3] + "/" + m[2] + "/" + m[1]
	}

	parts := strings.FieldsFunc(token, func(r rune) bool { return r == '/' || r == '-' })
	if len(parts) != 3 {
		return "", fmt.Errorf("unrecognised date %q", raw)
	}

	day, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return "", fmt.Errorf("invalid day in %q: %w", raw, err)
	}
	month, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", fmt.Errorf("invalid month in %q: %w", raw, err)
	}
	yearPart := strings.TrimSpace(parts[2])
	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return "", fmt.Errorf("invalid year in %q: %w", raw, err)
	}
	if len(yearPart) <= 2 {
		year += 2000
	}

	iso := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	// reject impossible calendar dates such as 31/02
	if _, err := time.Parse(ISO, iso); err != nil {
		return "", fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return iso, nil
}

// FromDayMonth builds an ISO date from a day/month token and a year carried by the caller
func FromDayMonth(dayMonth string, year int) (string, error) {
	return Parse(fmt.Sprintf("%s/%d", strings.TrimSpace(dayMonth), year))
}

// MonthYear returns the YYYY-MM bucket of an ISO date
func MonthYear(iso string) string {
	if len(iso) < 7 {
		return ""
	}
	return iso[:7]
}
