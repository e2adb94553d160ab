package finance

import (
	"fmt"
	"math"
	"time"
)

// AllocationTolerance is how far an allocation's weights may sum away from 1.0.
const AllocationTolerance = 1e-9

// PriceTable holds one price per symbol per trading day.
// Values[s][d] is the price of Symbols[s] on Days[d].
type PriceTable struct {
	Days    []time.Time
	Symbols []string
	Values  [][]float64
}

// Allocation is a set of fractional capital weights, one per symbol.
type Allocation []float64

// Stats represents the summary statistics of a portfolio value series
type Stats struct {
	Volatility       float64 // Population std dev of daily returns
	MeanReturn       float64 // Mean daily return
	Sharpe           float64 // sqrt(K) * mean / volatility, NaN when volatility is zero
	CumulativeReturn float64 // Product of (1 + r), seeded at 1.0
	Days             int     // Number of trading days in the series
}

// NewPriceTable builds a table from per-symbol columns.
func NewPriceTable(days []time.Time, symbols []string, values [][]float64) *PriceTable {
	return &PriceTable{Days: days, Symbols: symbols, Values: values}
}

// Validate checks the table is rectangular and can be normalized.
func (t *PriceTable) Validate() error {
	if t == nil || len(t.Days) == 0 {
		return fmt.Errorf("%w: no trading days", ErrEmptyPriceSeries)
	}
	if len(t.Symbols) == 0 {
		return fmt.Errorf("%w: no symbols", ErrEmptyPriceSeries)
	}
	if len(t.Values) != len(t.Symbols) {
		return fmt.Errorf("%w: %d columns for %d symbols", ErrEmptyPriceSeries, len(t.Values), len(t.Symbols))
	}
	for i, col := range t.Values {
		if len(col) != len(t.Days) {
			return fmt.Errorf("%w: symbol %s has %d prices, expected %d", ErrEmptyPriceSeries, t.Symbols[i], len(col), len(t.Days))
		}
		if col[0] <= 0 || math.IsNaN(col[0]) || math.IsInf(col[0], 0) {
			return fmt.Errorf("%w: invalid first price for %s: %f", ErrEmptyPriceSeries, t.Symbols[i], col[0])
		}
	}
	return nil
}

// Column returns the prices of a symbol, or false if the table does not carry it.
func (t *PriceTable) Column(symbol string) ([]float64, bool) {
	for i, s := range t.Symbols {
		if s == symbol {
			return t.Values[i], true
		}
	}
	return nil, false
}

// Select returns a table restricted to the given symbols, in that order.
func (t *PriceTable) Select(symbols []string) (*PriceTable, error) {
	values := make([][]float64, 0, len(symbols))
	for _, s := range symbols {
		col, ok := t.Column(s)
		if !ok {
			return nil, fmt.Errorf("symbol %s not in price table", s)
		}
		values = append(values, col)
	}
	return NewPriceTable(t.Days, symbols, values), nil
}

// Validate checks the allocation matches n symbols and sums to 1.0.
func (a Allocation) Validate(n int) error {
	if len(a) != n {
		return fmt.Errorf("%w: %d weights for %d symbols", ErrInvalidAllocation, len(a), n)
	}
	sum := 0.0
	for i, w := range a {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: weight %d is %f", ErrInvalidAllocation, i, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) >= AllocationTolerance {
		return fmt.Errorf("%w: weights sum to %f", ErrInvalidAllocation, sum)
	}
	return nil
}

// String renders the allocation as "[0.30 0.70]".
func (a Allocation) String() string {
	out := "["
	for i, w := range a {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%.2f", w)
	}
	return out + "]"
}
