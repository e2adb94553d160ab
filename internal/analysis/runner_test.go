package analysis

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compinvest/internal/finance"
	"compinvest/internal/marketdata"
	"compinvest/internal/storage"
)

func jan(day int) time.Time {
	return time.Date(2011, 1, day, 0, 0, 0, 0, time.UTC)
}

// writePrices writes one csv per symbol with consecutive days from Jan 3.
func writePrices(t *testing.T, dir string, prices map[string][]float64) {
	t.Helper()
	for symbol, closes := range prices {
		var b strings.Builder
		b.WriteString("date,close\n")
		for i, c := range closes {
			fmt.Fprintf(&b, "%s,%g\n", jan(3+i).Format("2006-01-02"), c)
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, symbol+".csv"), []byte(b.String()), 0o644))
	}
}

func newTestRunner(t *testing.T, prices map[string][]float64) (*Runner, *storage.Store) {
	t.Helper()
	dir := t.TempDir()
	writePrices(t, dir, prices)

	db, err := storage.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.InitSchema(context.Background(), db))
	store := storage.NewStore(db)

	loader := marketdata.NewLoader(marketdata.CSVSource{Dir: dir})
	return NewRunner(loader, store, Options{}), store
}

func TestRunnerSimulate(t *testing.T) {
	r, store := newTestRunner(t, map[string][]float64{
		"A": {10, 11, 9},
		"B": {20, 22, 18},
	})
	ctx := context.Background()
	req := Request{ChatID: 42, Symbols: []string{"a", "b"}, Start: jan(1), End: jan(31), Window: "1m"}

	sim, err := r.Simulate(ctx, req, finance.Allocation{0.5, 0.5})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, sim.Symbols)
	assert.InDeltaSlice(t, []float64{1, 1.1, 0.9}, sim.Values, 1e-12)
	assert.InDelta(t, -0.503, sim.Stats.Sharpe, 1e-3)
	assert.False(t, sim.Degenerate)

	runs, err := store.RecentRuns(ctx, 42, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, KindSimulate, runs[0].Kind)
	assert.Equal(t, "A,B", runs[0].Symbols)
	assert.Equal(t, "[0.50 0.50]", runs[0].Allocation)
	assert.Equal(t, "1m", runs[0].Window)

	_, err = r.Simulate(ctx, req, finance.Allocation{0.5, 0.6})
	assert.ErrorIs(t, err, finance.ErrInvalidAllocation)
}

func TestRunnerSimulateDegenerateIsNotRecorded(t *testing.T) {
	r, store := newTestRunner(t, map[string][]float64{"FLAT": {5, 5, 5}})
	ctx := context.Background()

	sim, err := r.Simulate(ctx, Request{ChatID: 1, Symbols: []string{"FLAT"}, Start: jan(1), End: jan(31)}, finance.Allocation{1})
	require.NoError(t, err)
	assert.True(t, sim.Degenerate)
	assert.True(t, math.IsNaN(sim.Stats.Sharpe))

	runs, err := store.RecentRuns(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunnerOptimize(t *testing.T) {
	r, store := newTestRunner(t, map[string][]float64{
		"DOWN": {10, 9.7, 9.9, 9.4, 9.1, 9.2},
		"UP":   {10, 10.4, 10.6, 11.1, 11.3, 11.9},
	})
	ctx := context.Background()

	opt, err := r.Optimize(ctx, Request{ChatID: 3, Symbols: []string{"DOWN", "UP"}, Start: jan(1), End: jan(31)}, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "grid", opt.Method)
	assert.InDeltaSlice(t, []float64{0, 1}, opt.Best, 1e-12)
	assert.Equal(t, 11, opt.Evaluated)
	assert.Len(t, opt.Values, 6)

	runs, err := store.RecentRuns(ctx, 3, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, KindOptimize, runs[0].Kind)
}

func TestRunnerEvents(t *testing.T) {
	r, _ := newTestRunner(t, map[string][]float64{
		"A":   {12, 11, 9, 9.5, 10},
		"SPY": {100, 101, 102, 103, 104},
	})

	rep, err := r.Events(context.Background(), Request{Symbols: []string{"A"}, Start: jan(1), End: jan(31)},
		finance.StudyOptions{Lookback: 1, Lookforward: 1, MarketNeutral: true})
	require.NoError(t, err)
	require.Len(t, rep.Events, 1)
	assert.Equal(t, "A", rep.Events[0].Symbol)
	assert.Equal(t, jan(5), rep.Events[0].Day)
	assert.Equal(t, 1, rep.Study.Used)
}

func TestRunnerMarketSim(t *testing.T) {
	r, _ := newTestRunner(t, map[string][]float64{
		"AAPL": {100, 102, 105, 101},
	})
	orders := []finance.Order{
		{Year: 2011, Month: 1, Day: 3, Symbol: "AAPL", Action: finance.Buy, Shares: 10},
		{Year: 2011, Month: 1, Day: 6, Symbol: "AAPL", Action: finance.Sell, Shares: 10},
	}

	ms, err := r.MarketSim(context.Background(), decimal.NewFromInt(1000), orders)
	require.NoError(t, err)
	assert.Equal(t, []float64{1000, 1020, 1050, 1010}, ms.Series.Values)
	assert.InDelta(t, 1.01, ms.Stats.CumulativeReturn, 1e-12)

	_, err = r.MarketSim(context.Background(), decimal.NewFromInt(1000), nil)
	assert.Error(t, err)
}

func TestRunnerWithoutStore(t *testing.T) {
	r := NewRunner(marketdata.NewLoader(marketdata.CSVSource{Dir: t.TempDir()}), nil, Options{})
	_, err := r.RecentRuns(context.Background(), 1, 5)
	assert.Error(t, err)
}

func TestRunnerMarketSimNegativeAccount(t *testing.T) {
	r, _ := newTestRunner(t, map[string][]float64{
		"AAPL": {100, 60, 40},
	})
	orders := []finance.Order{
		{Year: 2011, Month: 1, Day: 3, Symbol: "AAPL", Action: finance.Buy, Shares: 20},
		{Year: 2011, Month: 1, Day: 5, Symbol: "AAPL", Action: finance.Sell, Shares: 0},
	}

	ms, err := r.MarketSim(context.Background(), decimal.NewFromInt(1000), orders)
	require.NoError(t, err)
	assert.Equal(t, []float64{1000, 200, -200}, ms.Series.Values)
	assert.True(t, ms.Degenerate)
	assert.True(t, math.IsNaN(ms.Stats.Sharpe))
	assert.Equal(t, 3, ms.Stats.Days)
	assert.Contains(t, FormatMarketSim(ms), "Final value: -200.00")
}

func TestRunnerMarketSimRejectsUnknownSymbol(t *testing.T) {
	r, _ := newTestRunner(t, map[string][]float64{
		"AAPL": {100, 102, 105},
	})
	orders := []finance.Order{
		{Year: 2011, Month: 1, Day: 3, Symbol: "AAPL", Action: finance.Buy, Shares: 1},
		{Year: 2011, Month: 1, Day: 5, Symbol: "APPL", Action: finance.Buy, Shares: 100},
	}

	_, err := r.MarketSim(context.Background(), decimal.NewFromInt(1000), orders)
	require.ErrorIs(t, err, marketdata.ErrNoData)
	assert.Contains(t, err.Error(), "APPL")
}
