package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"compinvest/internal/analysis"
	"compinvest/internal/finance"
)

func eventsCmd(ctx context.Context, a *app) *cobra.Command {
	var (
		flags         studyFlags
		opts          = finance.DefaultStudyOptions()
		listLimit     int
		marketNeutral bool
	)
	cmd := &cobra.Command{
		Use:     "events",
		Short:   "Find days a stock's actual close falls below the threshold and profile the price path around them",
		Long: `Find days a stock's actual close falls below EVENT_THRESHOLD and profile the price path around them.

Only the listed symbols are scanned for events. The market symbol is loaded for
market-neutral returns but is not itself scanned; add it to the symbol list to
include its own events.`,
		Example: "  compinvest events --start 2008-01-01 --end 2009-12-31 --symbols-file sp5002012.txt --report events.png",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, _, err := flags.resolve()
			if err != nil {
				return err
			}
			opts.MarketNeutral = marketNeutral
			if opts.MarketSymbol == "" {
				opts.MarketSymbol = a.cfg.MarketSymbol
			}

			runner, closeDB, err := a.runner(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			rep, err := runner.Events(ctx, req, opts)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), analysis.FormatEvents(rep, listLimit))

			if flags.report == "" || rep.Study.Used == 0 {
				return nil
			}
			title := fmt.Sprintf("Event study (%d events)", rep.Study.Used)
			if len(req.Symbols) <= 5 {
				title = "Event study " + strings.Join(req.Symbols, ",")
			}
			img, err := finance.RenderEventStudy(title, rep.Study)
			if err != nil {
				return err
			}
			return writeReport(flags.report, img)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&opts.Lookback, "lookback", opts.Lookback, "trading days before each event")
	cmd.Flags().IntVar(&opts.Lookforward, "lookforward", opts.Lookforward, "trading days after each event")
	cmd.Flags().StringVar(&opts.MarketSymbol, "market", "", "market symbol for market-neutral returns (default MARKET_SYMBOL)")
	cmd.Flags().BoolVar(&marketNeutral, "market-neutral", true, "subtract the market's daily return")
	cmd.Flags().IntVar(&listLimit, "list", 50, "list at most this many events (0 lists all)")
	return cmd
}
