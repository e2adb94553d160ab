package finance

import (
	"errors"
	"fmt"
	"math"
)

// DefaultGridStep is the weight increment of the default grid.
const DefaultGridStep = 0.1

// Sharpe ratios closer than this count as ties.
const sharpeTieTolerance = 1e-12

// MaxGridCandidates bounds the number of raw grid points SearchGrid will enumerate.
const MaxGridCandidates = 10_000_000

// SearchResult is the best allocation found by a search and how it got there.
type SearchResult struct {
	Symbols   []string
	Best      Allocation
	Stats     Stats
	Evaluated int // candidates with a defined Sharpe ratio
	Skipped   int // candidates with degenerate returns
}

// best-so-far accumulator carried through the fold
type searchState struct {
	sharpe float64
	alloc  Allocation
	stats  Stats
	found  bool
}

// consider keeps the candidate if it strictly beats the current best by more
// than sharpeTieTolerance, so the first maximum in traversal order wins ties.
func (s *searchState) consider(alloc Allocation, stats Stats) {
	if math.IsNaN(stats.Sharpe) || math.IsInf(stats.Sharpe, 0) {
		return
	}
	if !s.found || stats.Sharpe > s.sharpe+sharpeTieTolerance {
		s.sharpe = stats.Sharpe
		s.alloc = append(Allocation(nil), alloc...)
		s.stats = stats
		s.found = true
	}
}

// gridUnits converts a step into the number of increments between 0 and 1.
func gridUnits(step float64) (int, error) {
	if step <= 0 || step > 1 || math.IsNaN(step) {
		return 0, fmt.Errorf("grid step must be in (0, 1], got %f", step)
	}
	units := int(math.Round(1 / step))
	if math.Abs(float64(units)*step-1) > AllocationTolerance {
		return 0, fmt.Errorf("grid step %f does not divide 1.0 evenly", step)
	}
	return units, nil
}

// GridCandidates enumerates every n-weight vector on a uniform grid whose
// weights sum to 1.0. The first weight is the outermost loop and every
// weight runs from 0 upward.
func GridCandidates(n int, step float64) ([]Allocation, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: no symbols to allocate", ErrInvalidAllocation)
	}
	units, err := gridUnits(step)
	if err != nil {
		return nil, err
	}
	if math.Pow(float64(units+1), float64(n)) > MaxGridCandidates {
		return nil, fmt.Errorf("%w: %d symbols at step %g", ErrSearchSpaceTooLarge, n, step)
	}

	var out []Allocation
	counters := make([]int, n)
	for {
		weights := make(Allocation, n)
		sum := 0.0
		for i, c := range counters {
			weights[i] = float64(c) / float64(units)
			sum += weights[i]
		}
		if math.Abs(sum-1.0) < AllocationTolerance {
			out = append(out, weights)
		}

		// advance the innermost counter, carrying outward
		i := n - 1
		for ; i >= 0; i-- {
			counters[i]++
			if counters[i] <= units {
				break
			}
			counters[i] = 0
		}
		if i < 0 {
			break
		}
	}
	return out, nil
}

// SearchGrid evaluates every grid candidate against table and returns the
// allocation with the highest Sharpe ratio. Prices are read from table only;
// nothing is fetched per candidate.
func SearchGrid(table *PriceTable, step float64, opts ...EvalOption) (SearchResult, error) {
	if err := table.Validate(); err != nil {
		return SearchResult{}, err
	}
	candidates, err := GridCandidates(len(table.Symbols), step)
	if err != nil {
		return SearchResult{}, err
	}

	state := searchState{sharpe: math.Inf(-1)}
	result := SearchResult{Symbols: table.Symbols}
	for _, alloc := range candidates {
		stats, err := Evaluate(table, alloc, opts...)
		if errors.Is(err, ErrDegenerateReturns) {
			result.Skipped++
			continue
		}
		if err != nil {
			return SearchResult{}, fmt.Errorf("evaluating %s: %w", alloc, err)
		}
		result.Evaluated++
		state.consider(alloc, stats)
	}

	if !state.found {
		return result, fmt.Errorf("%w: no candidate has a defined Sharpe ratio", ErrDegenerateReturns)
	}
	result.Best = state.alloc
	result.Stats = state.stats
	return result, nil
}
