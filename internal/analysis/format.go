package analysis

import (
	"fmt"
	"math"
	"strings"
	"time"

	"compinvest/internal/finance"
)

const dayLayout = "2006-01-02"

func formatSharpe(s float64) string {
	if math.IsNaN(s) {
		return "undefined (zero volatility)"
	}
	return fmt.Sprintf("%.4f", s)
}

func formatSpan(days []time.Time) string {
	if len(days) == 0 {
		return "no trading days"
	}
	return fmt.Sprintf("%s .. %s (%d trading days)",
		days[0].Format(dayLayout), days[len(days)-1].Format(dayLayout), len(days))
}

func writeStats(b *strings.Builder, stats finance.Stats, values []float64) {
	fmt.Fprintf(b, "Sharpe ratio:       %s\n", formatSharpe(stats.Sharpe))
	fmt.Fprintf(b, "Volatility (daily): %.6f\n", stats.Volatility)
	fmt.Fprintf(b, "Mean daily return:  %.6f\n", stats.MeanReturn)
	fmt.Fprintf(b, "Cumulative return:  %.6f\n", stats.CumulativeReturn)
	if len(values) > 1 {
		fmt.Fprintf(b, "Max drawdown:       %.2f%%\n", finance.MaxDrawdown(values)*100)
	}
}

func writeMissing(b *strings.Builder, missing []string) {
	if len(missing) > 0 {
		fmt.Fprintf(b, "No prices for %s; held flat at 1.0\n", strings.Join(missing, ", "))
	}
}

// FormatSimulation renders a simulation as plain text.
func FormatSimulation(sim Simulation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbols:    %s\n", strings.Join(sim.Symbols, ", "))
	fmt.Fprintf(&b, "Allocation: %s\n", sim.Allocation)
	fmt.Fprintf(&b, "Window:     %s\n", formatSpan(sim.Days))
	writeStats(&b, sim.Stats, sim.Values)
	writeMissing(&b, sim.Missing)
	return b.String()
}

// FormatOptimization renders a search result as plain text.
func FormatOptimization(opt Optimization) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbols:    %s\n", strings.Join(opt.Symbols, ", "))
	fmt.Fprintf(&b, "Best:       %s (%s search)\n", opt.Best, opt.Method)
	fmt.Fprintf(&b, "Window:     %s\n", formatSpan(opt.Days))
	fmt.Fprintf(&b, "Evaluated:  %d (skipped %d)\n", opt.Evaluated, opt.Skipped)
	writeStats(&b, opt.Stats, opt.Values)
	writeMissing(&b, opt.Missing)
	return b.String()
}

// FormatEvents renders an event report, listing at most limit events.
func FormatEvents(rep EventReport, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Events: %d (profiled %d, dropped %d near the edges)\n",
		len(rep.Events), rep.Study.Used, rep.Study.Dropped)
	for i, ev := range rep.Events {
		if limit > 0 && i >= limit {
			fmt.Fprintf(&b, "... and %d more\n", len(rep.Events)-limit)
			break
		}
		fmt.Fprintf(&b, "  %s %s\n", ev.Day.Format(dayLayout), ev.Symbol)
	}
	if rep.Study.Used > 0 {
		last := len(rep.Study.Mean) - 1
		fmt.Fprintf(&b, "Mean path at +%d days: %.4f (std %.4f)\n",
			rep.Study.Offsets[last], rep.Study.Mean[last], rep.Study.StdDev[last])
	}
	return b.String()
}

// FormatMarketSim renders a market simulation summary.
func FormatMarketSim(ms MarketSimulation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Window:      %s\n", formatSpan(ms.Series.Days))
	if n := len(ms.Series.Values); n > 0 {
		fmt.Fprintf(&b, "Final value: %.2f\n", ms.Series.Values[n-1])
	}
	writeStats(&b, ms.Stats, ms.Series.Values)
	return b.String()
}
