package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeightedPortfolio(t *testing.T) {
	symbols, alloc, window, err := ParseWeightedPortfolio("spy 0.6 gld 0.4 3M")
	require.NoError(t, err)
	assert.Equal(t, []string{"SPY", "GLD"}, symbols)
	assert.Equal(t, Allocation{0.6, 0.4}, alloc)
	assert.Equal(t, "3m", window)

	_, _, window, err = ParseWeightedPortfolio("SPY 1")
	require.NoError(t, err)
	assert.Equal(t, DefaultWindow, window)
}

func TestParseWeightedPortfolioErrors(t *testing.T) {
	for _, input := range []string{
		"",
		"SPY",
		"SPY 0.5 GLD",
		"SPY half GLD 0.5",
		"SPY 0.5 SPY 0.5",
		"SPY 0.5 GLD 0.6",
		"SPY 1.5 GLD -0.5",
	} {
		_, _, _, err := ParseWeightedPortfolio(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestParseSymbols(t *testing.T) {
	symbols, window, err := ParseSymbols("aapl msft 2w")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)
	assert.Equal(t, "2w", window)

	_, _, err = ParseSymbols("1y")
	assert.Error(t, err)
	_, _, err = ParseSymbols("AAPL aapl")
	assert.Error(t, err)
}

func TestParseWindow(t *testing.T) {
	// 15:00 UTC is still the 15th in New York
	now := time.Date(2024, 3, 15, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		window string
		start  time.Time
	}{
		{"10d", day(2024, 3, 5)},
		{"2w", day(2024, 3, 1)},
		{"3m", day(2023, 12, 15)},
		{"1Y", day(2023, 3, 15)},
		{"", day(2023, 3, 15)},
	}
	for _, tt := range tests {
		start, end, err := ParseWindow(tt.window, now)
		require.NoError(t, err, tt.window)
		assert.Equal(t, tt.start, start, tt.window)
		assert.Equal(t, day(2024, 3, 15), end)
	}

	for _, bad := range []string{"0d", "m", "3x", "-1y"} {
		_, _, err := ParseWindow(bad, now)
		assert.Error(t, err, bad)
	}
}

func TestTradingDay(t *testing.T) {
	// 02:00 UTC on the 16th is the evening of the 15th in New York
	late := time.Date(2024, 3, 16, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, day(2024, 3, 15), TradingDay(late))
	assert.Equal(t, day(2024, 3, 16), CalendarDay(late))
}
