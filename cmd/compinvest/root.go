package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"compinvest/internal/analysis"
	"compinvest/internal/config"
)

// app carries configuration shared by every subcommand.
type app struct {
	cfg      config.Config
	logLevel string
	source   string
	dataDir  string
}

func Execute(ctx context.Context) error {
	return newRootCmd(ctx).ExecuteContext(ctx)
}

func newRootCmd(ctx context.Context) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "compinvest",
		Short:         "Portfolio backtests, allocation search, event studies and order simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.LogLevel = a.logLevel
			}
			if a.source != "" {
				cfg.PriceSource = strings.ToLower(a.source)
			}
			if a.dataDir != "" {
				cfg.DataDir = a.dataDir
			}
			config.SetupLogger(cfg.LogLevel)
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	root.PersistentFlags().StringVar(&a.source, "source", "", "price source: yahoo, financego or csv (overrides PRICE_SOURCE)")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "directory of <SYMBOL>.csv files for the csv source")

	root.AddCommand(simulateCmd(ctx, a))
	root.AddCommand(optimizeCmd(ctx, a))
	root.AddCommand(eventsCmd(ctx, a))
	root.AddCommand(marketsimCmd(ctx, a))
	return root
}

func (a *app) runner(ctx context.Context) (*analysis.Runner, func() error, error) {
	return analysis.NewFromConfig(ctx, a.cfg)
}

// studyFlags are the date range and symbols shared by the study commands.
type studyFlags struct {
	start   string
	end     string
	symbols []string
	list    string
	study   string
	report  string
}

func (f *studyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.end, "end", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringSliceVar(&f.symbols, "symbols", nil, "comma separated symbols")
	cmd.Flags().StringVar(&f.list, "symbols-file", "", "file with one symbol per line")
	cmd.Flags().StringVar(&f.study, "study", "", "YAML study file with start, end, symbols, allocation, step, method")
	cmd.Flags().StringVar(&f.report, "report", "", "write a PNG chart to this path")
}

// resolve merges the study file (if any) with explicit flags; flags win.
func (f *studyFlags) resolve() (analysis.Request, config.Study, error) {
	var st config.Study
	if f.study != "" {
		loaded, err := config.LoadStudy(f.study)
		if err != nil {
			return analysis.Request{}, st, err
		}
		st = loaded
	}
	if f.start != "" {
		st.Start = f.start
	}
	if f.end != "" {
		st.End = f.end
	}
	if len(f.symbols) > 0 {
		st.Symbols = f.symbols
	}
	if f.list != "" {
		symbols, err := readSymbolList(f.list)
		if err != nil {
			return analysis.Request{}, st, err
		}
		st.Symbols = append(st.Symbols, symbols...)
	}
	if len(st.Symbols) == 0 {
		return analysis.Request{}, st, fmt.Errorf("no symbols: use --symbols or --study")
	}
	start, end, err := st.Range()
	if err != nil {
		return analysis.Request{}, st, err
	}
	return analysis.Request{
		Symbols: st.Symbols,
		Start:   start,
		End:     end,
		Window:  st.Start + ".." + st.End,
	}, st, nil
}

func writeReport(path string, img []byte) error {
	if path == "" {
		return nil
	}
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// readSymbolList reads one symbol per line, skipping blanks and # comments.
func readSymbolList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, strings.ToUpper(line))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no symbols", path)
	}
	return out, nil
}
