package marketdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"compinvest/internal/finance"
)

// FinanceGoSource reads daily bars through the piquette/finance-go chart client.
type FinanceGoSource struct {
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewFinanceGoSource(requestsPerSecond int) *FinanceGoSource {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	return &FinanceGoSource{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		log:     log.With().Str("component", "financego").Logger(),
	}
}

func (f *FinanceGoSource) Bars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	timer := prometheus.NewTimer(fetchDuration.WithLabelValues("financego"))
	defer timer.ObserveDuration()

	symbol = strings.ToUpper(symbol)
	start, end = finance.CalendarDay(start), finance.CalendarDay(end)
	until := end.AddDate(0, 0, 1)
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&until),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)
	var bars []Bar
	for iter.Next() {
		bar := iter.Bar()
		bars = append(bars, Bar{
			Day:         finance.TradingDay(time.Unix(int64(bar.Timestamp), 0)),
			Close:       bar.AdjClose.InexactFloat64(),
			ActualClose: bar.Close.InexactFloat64(),
		})
	}
	if err := iter.Err(); err != nil {
		fetchTotal.WithLabelValues("financego", "error").Inc()
		return nil, fmt.Errorf("finance-go %s: %w", symbol, err)
	}
	fetchTotal.WithLabelValues("financego", "ok").Inc()

	bars = withinRange(cleanBars(bars), start, end)
	if len(bars) == 0 {
		return nil, fmt.Errorf("finance-go %s: %w", symbol, ErrNoData)
	}
	f.log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("fetched")
	return bars, nil
}
