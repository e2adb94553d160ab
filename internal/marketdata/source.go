// Package marketdata loads daily closing prices from remote or local sources
// and aligns them onto a shared trading-day calendar.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoData is returned when a source has no bars for a symbol in range.
var ErrNoData = errors.New("no data")

// Bar is one trading day of a symbol.
// Close is the split/dividend adjusted close; ActualClose is the raw close.
type Bar struct {
	Day         time.Time
	Close       float64
	ActualClose float64
}

// Source fetches daily bars for a symbol over the inclusive date range [start, end].
// Bars are returned in ascending day order with Day set to the New York trading date.
type Source interface {
	Bars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error)
}

// NewSource builds the named source: "yahoo", "financego" or "csv".
func NewSource(kind, dataDir string, yahoo YahooOptions) (Source, error) {
	switch kind {
	case "", "yahoo":
		return NewYahooSource(yahoo), nil
	case "financego":
		return NewFinanceGoSource(yahoo.RequestsPerSecond), nil
	case "csv":
		if dataDir == "" {
			return nil, errors.New("csv source needs a data directory")
		}
		return CSVSource{Dir: dataDir}, nil
	default:
		return nil, fmt.Errorf("unknown price source %q", kind)
	}
}
