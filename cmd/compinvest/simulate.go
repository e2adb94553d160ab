package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"compinvest/internal/analysis"
	"compinvest/internal/finance"
)

func simulateCmd(ctx context.Context, a *app) *cobra.Command {
	var (
		flags studyFlags
		alloc []float64
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Evaluate a fixed allocation: volatility, mean return, Sharpe ratio, cumulative return",
		Example: "  compinvest simulate --start 2011-01-01 --end 2011-12-31 \\\n" +
			"    --symbols AAPL,GLD,GOOG,XOM --alloc 0.4,0.4,0,0.2",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, st, err := flags.resolve()
			if err != nil {
				return err
			}
			weights := finance.Allocation(st.Allocation)
			if len(alloc) > 0 {
				weights = alloc
			}
			if len(weights) == 0 {
				return fmt.Errorf("no allocation: use --alloc or --study")
			}

			runner, closeDB, err := a.runner(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			sim, err := runner.Simulate(ctx, req, weights)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), analysis.FormatSimulation(sim))

			if flags.report == "" {
				return nil
			}
			title := fmt.Sprintf("Portfolio %s %s", strings.Join(sim.Symbols, ","), sim.Allocation)
			img, err := finance.RenderPortfolio(title, sim.Days, sim.Values, sim.Stats)
			if err != nil {
				return err
			}
			return writeReport(flags.report, img)
		},
	}
	flags.register(cmd)
	cmd.Flags().Float64SliceVar(&alloc, "alloc", nil, "comma separated weights, one per symbol, summing to 1")
	return cmd
}
