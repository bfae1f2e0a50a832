package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adspace/internal/domain/shared/daterange"
	"adspace/internal/domain/shared/money"
)

func rangeOfDays(days int) daterange.DateRange {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	dr, err := daterange.New(start, start.AddDate(0, 0, days))
	if err != nil {
		panic(err)
	}
	return dr
}

func TestMonths(t *testing.T) {
	tests := []struct {
		days int
		want int64
	}{
		{1, 1},
		{15, 1},
		{29, 1},
		{30, 1},
		{31, 2},
		{59, 2},
		{60, 2},
		{61, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Months(rangeOfDays(tt.days)), "days=%d", tt.days)
	}
}

func TestQuote(t *testing.T) {
	rate := money.Must(300000, "XAF")

	got := Quote(rate, rangeOfDays(29))
	assert.Equal(t, money.Must(300000, "XAF"), got)

	got = Quote(rate, rangeOfDays(31))
	assert.Equal(t, money.Must(600000, "XAF"), got)
}

func TestQuoteMonotonic(t *testing.T) {
	rate := money.Must(250000, "XAF")
	prev := int64(0)
	for days := 1; days <= 120; days++ {
		got := Quote(rate, rangeOfDays(days))
		require.GreaterOrEqual(t, got.Amount, prev, "days=%d", days)
		prev = got.Amount
	}
}
