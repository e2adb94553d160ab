package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"compinvest/internal/finance"
)

func TestFormatSimulation(t *testing.T) {
	out := FormatSimulation(Simulation{
		Symbols:    []string{"SPY", "GLD"},
		Allocation: finance.Allocation{0.6, 0.4},
		Days:       []time.Time{jan(3), jan(4), jan(5)},
		Values:     []float64{1, 1.1, 0.9},
		Stats:      finance.Stats{Sharpe: -0.50291, Volatility: 0.1409, MeanReturn: -0.0409, CumulativeReturn: 0.9},
		Missing:    []string{"GLD"},
	})
	assert.Contains(t, out, "Symbols:    SPY, GLD")
	assert.Contains(t, out, "Allocation: [0.60 0.40]")
	assert.Contains(t, out, "2011-01-03 .. 2011-01-05 (3 trading days)")
	assert.Contains(t, out, "Sharpe ratio:       -0.5029")
	assert.Contains(t, out, "Max drawdown:       18.18%")
	assert.Contains(t, out, "No prices for GLD")
}

func TestFormatSimulationUndefinedSharpe(t *testing.T) {
	out := FormatSimulation(Simulation{Stats: finance.Stats{Sharpe: math.NaN(), CumulativeReturn: 1}})
	assert.Contains(t, out, "undefined (zero volatility)")
	assert.Contains(t, out, "no trading days")
	assert.NotContains(t, out, "No prices")
}

func TestFormatOptimization(t *testing.T) {
	out := FormatOptimization(Optimization{
		SearchResult: finance.SearchResult{
			Symbols:   []string{"A", "B"},
			Best:      finance.Allocation{0, 1},
			Stats:     finance.Stats{Sharpe: 6.04},
			Evaluated: 11,
		},
		Method: "grid",
		Days:   []time.Time{jan(3), jan(4)},
	})
	assert.Contains(t, out, "Best:       [0.00 1.00] (grid search)")
	assert.Contains(t, out, "Evaluated:  11 (skipped 0)")
}

func TestFormatEvents(t *testing.T) {
	rep := EventReport{
		Events: []finance.Event{
			{Symbol: "A", Day: jan(4)},
			{Symbol: "B", Day: jan(5)},
			{Symbol: "C", Day: jan(6)},
		},
		Study: finance.EventStudy{
			Offsets: []int{-1, 0, 1},
			Mean:    []float64{1.1, 1, 0.97},
			StdDev:  []float64{0.1, 0, 0.05},
			Used:    2,
			Dropped: 1,
		},
	}
	out := FormatEvents(rep, 2)
	assert.Contains(t, out, "Events: 3 (profiled 2, dropped 1 near the edges)")
	assert.Contains(t, out, "2011-01-04 A")
	assert.NotContains(t, out, "2011-01-06 C")
	assert.Contains(t, out, "... and 1 more")
	assert.Contains(t, out, "Mean path at +1 days: 0.9700 (std 0.0500)")

	assert.Contains(t, FormatEvents(rep, 0), "2011-01-06 C")
}

func TestFormatMarketSim(t *testing.T) {
	out := FormatMarketSim(MarketSimulation{
		Series: finance.ValueSeries{Days: []time.Time{jan(3), jan(4)}, Values: []float64{1000000, 1000123.45}},
		Stats:  finance.Stats{Sharpe: 1.2, CumulativeReturn: 1.000123},
	})
	assert.Contains(t, out, "Final value: 1000123.45")
	assert.Contains(t, out, "Sharpe ratio:       1.2000")
}
