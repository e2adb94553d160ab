package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"compinvest/internal/finance"
)

// MarketData is the aligned price history of a set of symbols.
// Close holds adjusted closes, ActualClose the raw closes, both over the same days.
type MarketData struct {
	Close       *finance.PriceTable
	ActualClose *finance.PriceTable
	Missing     []string // symbols the source had no data for; filled with 1.0
}

// Loader fetches every symbol once and aligns the results.
type Loader struct {
	src Source
	log zerolog.Logger
}

func NewLoader(src Source) *Loader {
	return &Loader{src: src, log: log.With().Str("component", "loader").Logger()}
}

// Load returns closes for symbols over the trading days between start and end,
// inclusive. The calendar is the union of days any symbol traded.
func (l *Loader) Load(ctx context.Context, start, end time.Time, symbols []string) (*MarketData, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: no symbols requested", finance.ErrEmptyPriceSeries)
	}
	start, end = finance.CalendarDay(start), finance.CalendarDay(end)
	if end.Before(start) {
		return nil, fmt.Errorf("end %s is before start %s", end.Format(csvDateLayout), start.Format(csvDateLayout))
	}

	names := make([]string, len(symbols))
	series := make(map[string][]Bar, len(symbols))
	var missing []string
	for i, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		names[i] = symbol
		if _, done := series[symbol]; done {
			return nil, fmt.Errorf("duplicate symbol: %s", symbol)
		}

		bars, err := l.src.Bars(ctx, symbol, start, end)
		if errors.Is(err, ErrNoData) || errors.Is(err, ErrUnknownSymbol) {
			l.log.Warn().Str("symbol", symbol).Err(err).Msg("no prices, filling with 1.0")
			missing = append(missing, symbol)
			bars = nil
		} else if err != nil {
			return nil, fmt.Errorf("loading %s: %w", symbol, err)
		}
		series[symbol] = bars
	}

	calendar := unionCalendar(series)
	if len(calendar) == 0 {
		return nil, fmt.Errorf("%w: no trading days between %s and %s", finance.ErrEmptyPriceSeries,
			start.Format(csvDateLayout), end.Format(csvDateLayout))
	}

	closes := make([][]float64, len(names))
	actual := make([][]float64, len(names))
	for i, symbol := range names {
		closes[i] = alignBars(calendar, series[symbol], pickClose)
		actual[i] = alignBars(calendar, series[symbol], pickActualClose)
	}

	closeTable := finance.NewPriceTable(calendar, names, closes)
	if err := closeTable.Validate(); err != nil {
		return nil, err
	}
	actualTable := finance.NewPriceTable(calendar, names, actual)

	l.log.Info().Strs("symbols", names).Int("days", len(calendar)).Msg("loaded prices")
	return &MarketData{Close: closeTable, ActualClose: actualTable, Missing: missing}, nil
}
