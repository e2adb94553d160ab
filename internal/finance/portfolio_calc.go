package finance

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Returns that agree to within float noise count as flat.
const volatilityEpsilon = 1e-12

// EvalOption tunes how statistics are annualized.
type EvalOption func(*evalConfig)

type evalConfig struct {
	periodsPerYear int
}

// WithPeriodsPerYear fixes the Sharpe annualization factor K.
// Zero or negative keeps the default of the number of observed trading days.
func WithPeriodsPerYear(n int) EvalOption {
	return func(c *evalConfig) {
		c.periodsPerYear = n
	}
}

// Normalize divides each symbol's prices by its first-day price.
func Normalize(table *PriceTable) [][]float64 {
	out := make([][]float64, len(table.Values))
	for i, col := range table.Values {
		norm := make([]float64, len(col))
		floats.ScaleTo(norm, 1/col[0], col)
		out[i] = norm
	}
	return out
}

// PortfolioValues weights the normalized prices and sums them per day.
func PortfolioValues(table *PriceTable, alloc Allocation) ([]float64, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if err := alloc.Validate(len(table.Symbols)); err != nil {
		return nil, err
	}

	normalized := Normalize(table)
	values := make([]float64, len(table.Days))
	for i, col := range normalized {
		// values += weight * normalized column
		floats.AddScaled(values, alloc[i], col)
	}
	return values, nil
}

// DailyReturns computes simple day-over-day returns.
// The first day has no return, so the result is one shorter than values.
func DailyReturns(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}
	returns := make([]float64, len(values)-1)
	for day := 1; day < len(values); day++ {
		returns[day-1] = values[day]/values[day-1] - 1
	}
	return returns
}

// CumulativeReturn compounds daily returns starting from 1.0.
func CumulativeReturn(returns []float64) float64 {
	cum := 1.0
	for _, r := range returns {
		cum *= 1 + r
	}
	return cum
}

// Evaluate computes the statistics of a portfolio holding alloc over table.
func Evaluate(table *PriceTable, alloc Allocation, opts ...EvalOption) (Stats, error) {
	values, err := PortfolioValues(table, alloc)
	if err != nil {
		return Stats{}, err
	}
	return SeriesStats(values, opts...)
}

// SeriesStats computes statistics for an already built value series.
// On ErrDegenerateReturns the returned Stats are filled except for Sharpe, which is NaN.
func SeriesStats(values []float64, opts ...EvalOption) (Stats, error) {
	if len(values) == 0 {
		return Stats{}, fmt.Errorf("%w: no values", ErrEmptyPriceSeries)
	}
	for day, v := range values {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return Stats{}, fmt.Errorf("%w: invalid portfolio value on day %d: %f", ErrEmptyPriceSeries, day, v)
		}
	}

	cfg := evalConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	k := float64(len(values))
	if cfg.periodsPerYear > 0 {
		k = float64(cfg.periodsPerYear)
	}

	returns := DailyReturns(values)
	stats := Stats{
		CumulativeReturn: CumulativeReturn(returns),
		Days:             len(values),
		Sharpe:           math.NaN(),
	}
	if len(returns) == 0 {
		return stats, fmt.Errorf("%w: need at least 2 trading days", ErrDegenerateReturns)
	}

	mean, variance := stat.PopMeanVariance(returns, nil)
	stats.MeanReturn = mean
	stats.Volatility = math.Sqrt(variance)
	if stats.Volatility < volatilityEpsilon {
		return stats, fmt.Errorf("%w: zero volatility over %d days", ErrDegenerateReturns, len(values))
	}
	stats.Sharpe = math.Sqrt(k) * mean / stats.Volatility
	return stats, nil
}

// MaxDrawdown is the largest peak-to-trough decline of values, as a fraction.
func MaxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0.0
	}

	maxDrawdown := 0.0
	peak := values[0]
	for _, value := range values {
		if value > peak {
			peak = value
		}
		if peak > 0 {
			drawdown := (peak - value) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}
	return maxDrawdown
}
