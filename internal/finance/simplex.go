package finance

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// Objective value for points where the Sharpe ratio is undefined.
const degeneratePenalty = 1e9

// DefaultSimplexEvaluations caps objective calls for SearchSimplex.
const DefaultSimplexEvaluations = 5000

// SearchSimplex maximizes the Sharpe ratio over the allocation simplex with
// Nelder-Mead. Weights are parameterized through a softmax so every point the
// optimizer visits is a valid allocation. Intended for universes where the
// grid search is impractical.
func SearchSimplex(table *PriceTable, maxEvals int, opts ...EvalOption) (SearchResult, error) {
	if err := table.Validate(); err != nil {
		return SearchResult{}, err
	}
	if maxEvals <= 0 {
		maxEvals = DefaultSimplexEvaluations
	}

	n := len(table.Symbols)
	result := SearchResult{Symbols: table.Symbols}
	state := searchState{sharpe: math.Inf(-1)}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			alloc := softmax(x)
			stats, err := Evaluate(table, alloc, opts...)
			if err != nil {
				result.Skipped++
				return degeneratePenalty
			}
			result.Evaluated++
			state.consider(alloc, stats)
			return -stats.Sharpe
		},
	}

	// zero logits start from the equal-weight portfolio
	init := make([]float64, n)
	settings := &optimize.Settings{FuncEvaluations: maxEvals}
	if _, err := optimize.Minimize(problem, init, settings, &optimize.NelderMead{}); err != nil && !state.found {
		return result, fmt.Errorf("simplex search: %w", err)
	}

	if !state.found {
		return result, fmt.Errorf("%w: no allocation has a defined Sharpe ratio", ErrDegenerateReturns)
	}
	result.Best = state.alloc
	result.Stats = state.stats
	return result, nil
}

// softmax maps unconstrained logits onto positive weights summing to 1.
func softmax(x []float64) Allocation {
	out := make(Allocation, len(x))
	if len(x) == 0 {
		return out
	}
	max := floats.Max(x)
	for i, v := range x {
		out[i] = math.Exp(v - max)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}

// Search runs the named method: "grid" (default) or "simplex".
func Search(method string, table *PriceTable, step float64, opts ...EvalOption) (SearchResult, error) {
	switch method {
	case "", "grid":
		return SearchGrid(table, step, opts...)
	case "simplex":
		return SearchSimplex(table, DefaultSimplexEvaluations, opts...)
	default:
		return SearchResult{}, errors.New("unknown search method: " + method)
	}
}
