// Package analysis ties price loading to the portfolio, search and event
// routines so the CLI and the bot run the same studies.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"compinvest/internal/finance"
	"compinvest/internal/marketdata"
	"compinvest/internal/storage"
)

// Run kinds recorded in storage.
const (
	KindSimulate = "simulate"
	KindOptimize = "optimize"
)

type Runner struct {
	loader    *marketdata.Loader
	store     *storage.Store
	evalOpts  []finance.EvalOption
	market    string
	threshold float64
	log       zerolog.Logger
}

type Options struct {
	SharpePeriods  int
	MarketSymbol   string
	EventThreshold float64
}

// NewRunner builds a runner. store may be nil, in which case runs are not recorded.
func NewRunner(loader *marketdata.Loader, store *storage.Store, opts Options) *Runner {
	if opts.MarketSymbol == "" {
		opts.MarketSymbol = "SPY"
	}
	if opts.EventThreshold == 0 {
		opts.EventThreshold = finance.DefaultEventThreshold
	}
	return &Runner{
		loader:    loader,
		store:     store,
		evalOpts:  []finance.EvalOption{finance.WithPeriodsPerYear(opts.SharpePeriods)},
		market:    opts.MarketSymbol,
		threshold: opts.EventThreshold,
		log:       log.With().Str("component", "analysis").Logger(),
	}
}

// Request names the symbols and date range of a study.
type Request struct {
	ChatID  int64
	Symbols []string
	Start   time.Time
	End     time.Time
	Window  string // label only, e.g. "1y"
}

type Simulation struct {
	Symbols    []string
	Allocation finance.Allocation
	Days       []time.Time
	Values     []float64
	Stats      finance.Stats
	Degenerate bool // volatility was zero; Sharpe is NaN
	Missing    []string
}

// Simulate evaluates a fixed allocation.
func (r *Runner) Simulate(ctx context.Context, req Request, alloc finance.Allocation) (Simulation, error) {
	req.Symbols = upper(req.Symbols)
	if err := alloc.Validate(len(req.Symbols)); err != nil {
		return Simulation{}, err
	}
	data, err := r.loader.Load(ctx, req.Start, req.End, req.Symbols)
	if err != nil {
		return Simulation{}, err
	}

	values, err := finance.PortfolioValues(data.Close, alloc)
	if err != nil {
		return Simulation{}, err
	}
	stats, err := finance.SeriesStats(values, r.evalOpts...)
	degenerate := errors.Is(err, finance.ErrDegenerateReturns)
	if err != nil && !degenerate {
		return Simulation{}, err
	}

	sim := Simulation{
		Symbols:    data.Close.Symbols,
		Allocation: alloc,
		Days:       data.Close.Days,
		Values:     values,
		Stats:      stats,
		Degenerate: degenerate,
		Missing:    data.Missing,
	}
	if !degenerate {
		r.record(ctx, req, KindSimulate, alloc, stats)
	}
	return sim, nil
}

type Optimization struct {
	finance.SearchResult
	Method  string
	Days    []time.Time
	Values  []float64 // value series of the best allocation
	Missing []string
}

// Optimize searches for the allocation with the highest Sharpe ratio.
func (r *Runner) Optimize(ctx context.Context, req Request, method string, step float64) (Optimization, error) {
	req.Symbols = upper(req.Symbols)
	if step == 0 {
		step = finance.DefaultGridStep
	}
	data, err := r.loader.Load(ctx, req.Start, req.End, req.Symbols)
	if err != nil {
		return Optimization{}, err
	}

	started := time.Now()
	result, err := finance.Search(method, data.Close, step, r.evalOpts...)
	if err != nil {
		return Optimization{}, err
	}
	r.log.Info().
		Str("method", method).
		Strs("symbols", result.Symbols).
		Str("best", result.Best.String()).
		Float64("sharpe", result.Stats.Sharpe).
		Int("evaluated", result.Evaluated).
		Int("skipped", result.Skipped).
		Dur("took", time.Since(started)).
		Msg("search finished")

	values, err := finance.PortfolioValues(data.Close, result.Best)
	if err != nil {
		return Optimization{}, err
	}
	r.record(ctx, req, KindOptimize, result.Best, result.Stats)
	if method == "" {
		method = "grid"
	}
	return Optimization{SearchResult: result, Method: method, Days: data.Close.Days, Values: values, Missing: data.Missing}, nil
}

type EventReport struct {
	Events []finance.Event
	Study  finance.EventStudy
}

// Events finds threshold crossings on actual closes and profiles them on adjusted closes.
func (r *Runner) Events(ctx context.Context, req Request, opts finance.StudyOptions) (EventReport, error) {
	req.Symbols = upper(req.Symbols)
	if opts.MarketSymbol == "" {
		opts.MarketSymbol = r.market
	}
	opts.MarketSymbol = strings.ToUpper(opts.MarketSymbol)
	symbols := req.Symbols
	if opts.MarketNeutral && !contains(symbols, opts.MarketSymbol) {
		symbols = append(append([]string{}, symbols...), opts.MarketSymbol)
	}
	data, err := r.loader.Load(ctx, req.Start, req.End, symbols)
	if err != nil {
		return EventReport{}, err
	}

	actual, err := data.ActualClose.Select(req.Symbols)
	if err != nil {
		return EventReport{}, err
	}
	matrix := finance.FindEvents(actual, r.threshold)
	study, err := finance.Profile(matrix, data.Close, opts)
	if err != nil {
		return EventReport{}, err
	}
	return EventReport{Events: matrix.List(), Study: study}, nil
}

type MarketSimulation struct {
	Series     finance.ValueSeries
	Stats      finance.Stats
	Degenerate bool
}

// MarketSim replays an order log over the trading days from its first to its last order.
func (r *Runner) MarketSim(ctx context.Context, cash decimal.Decimal, orders []finance.Order) (MarketSimulation, error) {
	if len(orders) == 0 {
		return MarketSimulation{}, fmt.Errorf("no orders")
	}
	start, end := finance.OrderRange(orders)
	data, err := r.loader.Load(ctx, start, end, finance.OrderSymbols(orders))
	if err != nil {
		return MarketSimulation{}, err
	}
	// placeholder prices must not fill orders
	if len(data.Missing) > 0 {
		return MarketSimulation{}, fmt.Errorf("no prices for %s: %w", strings.Join(data.Missing, ", "), marketdata.ErrNoData)
	}

	series, err := finance.Simulate(cash, orders, data.Close)
	if err != nil {
		return MarketSimulation{}, err
	}
	stats, err := finance.SeriesStats(series.Values, r.evalOpts...)
	if err != nil && !errors.Is(err, finance.ErrDegenerateReturns) {
		// the account went to or below zero, so returns are undefined
		r.log.Warn().Err(err).Msg("no statistics for account value series")
		stats = finance.Stats{Sharpe: math.NaN(), Days: len(series.Values)}
	}
	return MarketSimulation{Series: series, Stats: stats, Degenerate: err != nil}, nil
}

// RecentRuns lists stored runs for a chat.
func (r *Runner) RecentRuns(ctx context.Context, chatID int64, limit int) ([]storage.Run, error) {
	if r.store == nil {
		return nil, fmt.Errorf("run history is disabled")
	}
	return r.store.RecentRuns(ctx, chatID, limit)
}

func (r *Runner) record(ctx context.Context, req Request, kind string, alloc finance.Allocation, stats finance.Stats) {
	if r.store == nil {
		return
	}
	run, err := r.store.SaveRun(ctx, storage.Run{
		ChatID:           req.ChatID,
		Kind:             kind,
		Symbols:          strings.Join(req.Symbols, ","),
		Allocation:       alloc.String(),
		Window:           req.Window,
		Sharpe:           stats.Sharpe,
		CumulativeReturn: stats.CumulativeReturn,
	})
	if err != nil {
		r.log.Warn().Err(err).Str("kind", kind).Msg("could not record run")
		return
	}
	r.log.Debug().Str("id", run.ID).Str("kind", kind).Msg("run recorded")
}

func upper(symbols []string) []string {
	out := make([]string, len(symbols))
	for i, s := range symbols {
		out[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
