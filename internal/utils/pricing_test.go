package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	t.Run("Valid date", func(t *testing.T) {
		date, err := ParseDate("2024-01-15")
		assert.NoError(t, err)
		assert.Equal(t, 2024, date.Year)
		assert.Equal(t, 1, date.Month)
		assert.Equal(t, 15, date.Day)
	})

	t.Run("Invalid format", func(t *testing.T) {
		_, err := ParseDate("2024/01/15")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid date format")
	})

	t.Run("Invalid month", func(t *testing.T) {
		_, err := ParseDate("2024-13-15")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "month must be between 1 and 12")
	})

	t.Run("Day beyond month end", func(t *testing.T) {
		_, err := ParseDate("2023-02-29")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "day must be between 1 and 28")
	})
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDay("2026-03-01T08:30:00+07:00")
	require.NoError(t, err)
	assert.Equal(t, 1, d.UTC().Day())

	_, err = ParseDay("tomorrow")
	assert.Error(t, err)
}

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year     int
		month    int
		expected int
	}{
		{2024, 1, 31},
		{2024, 2, 29},
		{2023, 2, 28},
		{1900, 2, 28},
		{2000, 2, 29},
		{2024, 4, 30},
		{2024, 12, 31},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, DaysInMonth(tt.year, tt.month), "%d-%d", tt.year, tt.month)
	}
}

func TestMonthBounds(t *testing.T) {
	start, next := MonthBounds(time.Date(2026, 12, 17, 15, 4, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), next)
}

func TestAge(t *testing.T) {
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 17, Age(time.Date(2009, 10, 15, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, 16, Age(time.Date(2009, 10, 16, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, 16, Age(time.Date(2009, 11, 1, 0, 0, 0, 0, time.UTC), now))
}

func TestFormatIDR(t *testing.T) {
	assert.Equal(t, "Rp 0", FormatIDR(0))
	assert.Equal(t, "Rp 950", FormatIDR(950))
	assert.Equal(t, "Rp 1.850.000", FormatIDR(1850000))
	assert.Equal(t, "Rp 950.000", FormatIDR(950000))
	assert.Equal(t, "-Rp 3.700.000", FormatIDR(-3700000))
}

func TestLineTotal(t *testing.T) {
	assert.Equal(t, int64(3700000), LineTotal(1850000, 2))
}
