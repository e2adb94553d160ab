package finance

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// DefaultEventThreshold is the price a close must fall below to count as an event.
const DefaultEventThreshold = 10.0

// Event is a single threshold crossing.
type Event struct {
	Symbol string
	Day    time.Time
	Index  int // day index in the price table
}

// EventMatrix marks, per symbol and day, whether an event occurred.
type EventMatrix struct {
	Days    []time.Time
	Symbols []string
	Hits    [][]bool // Hits[s][d]
}

// FindEvents flags the days where a symbol's price drops below threshold
// after closing at or above it the previous day.
func FindEvents(table *PriceTable, threshold float64) EventMatrix {
	m := EventMatrix{
		Days:    table.Days,
		Symbols: table.Symbols,
		Hits:    make([][]bool, len(table.Symbols)),
	}
	for s, col := range table.Values {
		hits := make([]bool, len(col))
		for day := 1; day < len(col); day++ {
			if col[day] < threshold && col[day-1] >= threshold {
				hits[day] = true
			}
		}
		m.Hits[s] = hits
	}
	return m
}

// Count returns the total number of events.
func (m EventMatrix) Count() int {
	n := 0
	for _, hits := range m.Hits {
		for _, h := range hits {
			if h {
				n++
			}
		}
	}
	return n
}

// List returns every event ordered by symbol, then day.
func (m EventMatrix) List() []Event {
	var out []Event
	for s, hits := range m.Hits {
		for day, h := range hits {
			if h {
				out = append(out, Event{Symbol: m.Symbols[s], Day: m.Days[day], Index: day})
			}
		}
	}
	return out
}

// StudyOptions controls the event study window.
type StudyOptions struct {
	Lookback      int
	Lookforward   int
	MarketNeutral bool
	MarketSymbol  string
}

// DefaultStudyOptions mirrors the usual 20 day window around each event.
func DefaultStudyOptions() StudyOptions {
	return StudyOptions{Lookback: 20, Lookforward: 20, MarketNeutral: true, MarketSymbol: "SPY"}
}

// EventStudy holds the average price path around events, normalized to 1.0
// on the event day.
type EventStudy struct {
	Offsets []int     // -Lookback .. +Lookforward
	Mean    []float64 // mean normalized cumulative return per offset
	StdDev  []float64 // std dev across events per offset
	Used    int       // events whose window fit inside the data
	Dropped int       // events too close to either end
}

// Profile builds an event study from events over the given prices.
// With MarketNeutral set, the market symbol's daily return is subtracted
// from every symbol return before compounding.
func Profile(events EventMatrix, prices *PriceTable, opts StudyOptions) (EventStudy, error) {
	if err := prices.Validate(); err != nil {
		return EventStudy{}, err
	}
	if opts.Lookback < 0 || opts.Lookforward < 0 {
		return EventStudy{}, fmt.Errorf("event window must be non-negative: %d/%d", opts.Lookback, opts.Lookforward)
	}

	var market []float64
	if opts.MarketNeutral {
		col, ok := prices.Column(opts.MarketSymbol)
		if !ok {
			return EventStudy{}, fmt.Errorf("market symbol %s not in price table", opts.MarketSymbol)
		}
		market = DailyReturns(col)
	}

	width := opts.Lookback + opts.Lookforward + 1
	study := EventStudy{Offsets: make([]int, width)}
	for i := range study.Offsets {
		study.Offsets[i] = i - opts.Lookback
	}

	// paths[o] collects the value at offset o for every usable event
	paths := make([][]float64, width)
	for _, ev := range events.List() {
		col, ok := prices.Column(ev.Symbol)
		if !ok {
			return EventStudy{}, fmt.Errorf("event symbol %s not in price table", ev.Symbol)
		}
		start, end := ev.Index-opts.Lookback, ev.Index+opts.Lookforward
		// the first return in the window needs the day before start
		if start < 1 || end >= len(col) {
			study.Dropped++
			continue
		}

		returns := DailyReturns(col[start-1 : end+1])
		if market != nil {
			for i := range returns {
				returns[i] -= market[start-1+i]
			}
		}

		path := make([]float64, width)
		cum := 1.0
		for i, r := range returns {
			cum *= 1 + r
			path[i] = cum
		}
		base := path[opts.Lookback]
		for i := range path {
			paths[i] = append(paths[i], path[i]/base)
		}
		study.Used++
	}

	study.Mean = make([]float64, width)
	study.StdDev = make([]float64, width)
	if study.Used == 0 {
		return study, nil
	}
	for i, vals := range paths {
		mean, variance := stat.PopMeanVariance(vals, nil)
		study.Mean[i] = mean
		study.StdDev[i] = math.Sqrt(variance)
	}
	return study, nil
}
