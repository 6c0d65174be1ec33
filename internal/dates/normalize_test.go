package dates

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "already_iso", raw: "2024-03-15", want: "2024-03-15"},
		{name: "day_month_year_slash", raw: "15/03/2024", want: "2024-03-15"},
		{name: "day_month_year_dash", raw: "15-03-2024", want: "2024-03-15"},
		{name: "single_digit_parts", raw: "5/3/2024", want: "2024-03-05"},
		{name: "two_digit_year", raw: "05/03/24", want: "2024-03-05"},
		{name: "ofx_compact", raw: "20240315", want: "2024-03-15"},
		{name: "ofx_with_time_and_zone", raw: "20240315120000[-3:BRT]", want: "2024-03-15"},
		{name: "surrounding_space", raw: "  15/03/2024 ", want: "2024-03-15"},
		{name: "day_first_not_month_first", raw: "03/04/2024", want: "2024-04-03"},
		{name: "garbage_falls_back", raw: "Data", want: "2024-06-01"},
		{name: "two_parts_fall_back", raw: "15/03", want: "2024-06-01"},
		{name: "impossible_date_falls_back", raw: "31/02/2024", want: "2024-06-01"},
		{name: "empty_falls_back", raw: "", want: "2024-06-01"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.raw, today))
		})
	}
}

func TestNormalizeRoundTripsCalendarDate(t *testing.T) {
	start := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	for d := start; d.Year() < 2025; d = d.AddDate(0, 0, 1) {
		raw := fmt.Sprintf("%02d/%02d/%04d", d.Day(), int(d.Month()), d.Year())
		iso := Normalize(raw, today)

		parsed, err := time.Parse(ISO, iso)
		require.NoError(t, err, raw)
		assert.True(t, parsed.Equal(d), "%s normalised to %s", raw, iso)
	}
}

func TestFromDayMonth(t *testing.T) {
	iso, err := FromDayMonth("02/04", 2023)
	require.NoError(t, err)
	assert.Equal(t, "2023-04-02", iso)

	_, err = FromDayMonth("30/02", 2023)
	assert.Error(t, err)
}

func TestMonthYear(t *testing.T) {
	assert.Equal(t, "2024-03", MonthYear("2024-03-15"))
	assert.Equal(t, "", MonthYear("2024"))
}
