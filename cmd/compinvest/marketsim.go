package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"compinvest/internal/analysis"
	"compinvest/internal/finance"
)

func marketsimCmd(ctx context.Context, a *app) *cobra.Command {
	var report string
	cmd := &cobra.Command{
		Use:     "marketsim CASH ORDERS VALUES",
		Short:   "Replay an order log and write the daily account value",
		Example: "  compinvest marketsim 1000000 orders.csv values.csv",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cash, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid starting cash %q: %w", args[0], err)
			}

			in, err := os.Open(args[1])
			if err != nil {
				return err
			}
			orders, err := finance.ReadOrders(in)
			in.Close()
			if err != nil {
				return err
			}

			runner, closeDB, err := a.runner(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			ms, err := runner.MarketSim(ctx, cash, orders)
			if err != nil {
				return err
			}

			out, err := os.Create(args[2])
			if err != nil {
				return err
			}
			if err := finance.WriteValues(out, ms.Series); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), analysis.FormatMarketSim(ms))

			if report == "" {
				return nil
			}
			img, err := finance.RenderPortfolio("Account value", ms.Series.Days, ms.Series.Values, ms.Stats)
			if err != nil {
				return err
			}
			return writeReport(report, img)
		},
	}
	cmd.Flags().StringVar(&report, "report", "", "write a PNG chart to this path")
	return cmd
}
