package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"compinvest/internal/analysis"
	"compinvest/internal/finance"
)

func optimizeCmd(ctx context.Context, a *app) *cobra.Command {
	var (
		flags  studyFlags
		step   float64
		method string
	)
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Search for the allocation with the highest Sharpe ratio",
		Example: "  compinvest optimize --start 2011-01-01 --end 2011-12-31 --symbols AAPL,GLD,GOOG,XOM\n" +
			"  compinvest optimize --study study.yaml --method simplex",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, st, err := flags.resolve()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("step") && st.Step > 0 {
				step = st.Step
			}
			if !cmd.Flags().Changed("method") && st.Method != "" {
				method = st.Method
			}

			runner, closeDB, err := a.runner(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			opt, err := runner.Optimize(ctx, req, method, step)
			if errors.Is(err, finance.ErrSearchSpaceTooLarge) {
				return fmt.Errorf("%w; try --method simplex", err)
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), analysis.FormatOptimization(opt))

			if flags.report == "" {
				return nil
			}
			title := fmt.Sprintf("Best Sharpe %s %s", strings.Join(opt.Symbols, ","), opt.Best)
			img, err := finance.RenderPortfolio(title, opt.Days, opt.Values, opt.Stats)
			if err != nil {
				return err
			}
			return writeReport(flags.report, img)
		},
	}
	flags.register(cmd)
	cmd.Flags().Float64Var(&step, "step", finance.DefaultGridStep, "grid weight increment")
	cmd.Flags().StringVar(&method, "method", "grid", "search method: grid or simplex")
	return cmd
}
