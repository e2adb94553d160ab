package finance

import "errors"

var (
	// ErrInvalidAllocation is returned for weight vectors of the wrong length
	// or that do not sum to 1.0 within AllocationTolerance.
	ErrInvalidAllocation = errors.New("invalid allocation")
	// ErrEmptyPriceSeries is returned when a price table has nothing to evaluate.
	ErrEmptyPriceSeries = errors.New("empty price series")
	// ErrDegenerateReturns is returned when daily returns have zero volatility
	// and the Sharpe ratio is undefined.
	ErrDegenerateReturns = errors.New("degenerate returns")
	// ErrSearchSpaceTooLarge is returned when a grid search would enumerate
	// more than MaxGridCandidates vectors.
	ErrSearchSpaceTooLarge = errors.New("search space too large")
)
