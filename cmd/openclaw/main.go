// Command openclaw scores a stock watchlist, backtests the strategy over
// history, runs the morning and evening scans, and serves the same over
// HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"openclaw-agent/internal/analyst"
	"openclaw-agent/internal/backtest"
	"openclaw-agent/internal/httpapi"
	"openclaw-agent/internal/logger"
	"openclaw-agent/internal/performance"
	"openclaw-agent/internal/report"
	"openclaw-agent/internal/store"
	"openclaw-agent/internal/trader"
	"openclaw-agent/internal/types"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "openclaw",
		Short:         "Technical-signal scanner and portfolio backtester",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML configuration")
	root.AddCommand(backtestCmd(), scanCmd(), analyzeCmd(), tradeCmd(), serveCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = logger.Shutdown(shutdownCtx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withApp bootstraps the process and hands the wired services to fn.
func withApp(cmd *cobra.Command, override func(*store.Config), fn func(ctx context.Context, a *app) error) error {
	if err := initializeSystem(); err != nil {
		return err
	}
	ctx := cmd.Context()
	cfg, err := loadConfig(ctx, configPath)
	if err != nil {
		return err
	}
	if override != nil {
		override(cfg)
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

func (a *app) send(ctx context.Context, text string) {
	if err := a.notifier.Send(ctx, text); err != nil {
		logger.ErrorWithErr(ctx, "Failed to deliver report", err)
	}
}

func backtestCmd() *cobra.Command {
	var (
		start, end, csvDir string
		capital            float64
	)
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay the strategy day by day over a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			override := func(cfg *store.Config) {
				if csvDir != "" {
					cfg.Backtest.CSVDir = csvDir
				}
			}
			return withApp(cmd, override, func(ctx context.Context, a *app) error {
				req, err := backtestRequest(a, start, end, capital)
				if err != nil {
					return err
				}
				run, err := a.backtester.Run(ctx, req)
				switch {
				case errors.Is(err, backtest.ErrNoData):
					a.send(ctx, "📭 Not enough price history for any watchlist symbol in that range.")
					return err
				case errors.Is(err, performance.ErrNoTrades):
					a.send(ctx, "📭 The strategy made no trades in that range.")
					return err
				case err != nil:
					a.send(ctx, report.Failure("Backtest failed", err))
					return err
				}
				a.send(ctx, report.Backtest(run.Result))
				a.send(ctx, report.Trades(run.Trades))
				logger.Info(ctx, "Backtest stored", "id", run.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD (default backtest.start)")
	cmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD (default today)")
	cmd.Flags().Float64Var(&capital, "capital", 0, "starting cash (default backtest.initial_capital)")
	cmd.Flags().StringVar(&csvDir, "csv-dir", "", "write trades, equity and per-symbol CSVs under this directory")
	return cmd
}

func backtestRequest(a *app, start, end string, capital float64) (types.BacktestRequest, error) {
	req := types.BacktestRequest{
		Start:          a.cfg.BacktestStart(),
		End:            types.Day(time.Now()),
		InitialCapital: capital,
	}
	var err error
	if start != "" {
		if req.Start, err = types.ParseDay(start); err != nil {
			return req, fmt.Errorf("--start: %w", err)
		}
	}
	if end != "" {
		if req.End, err = types.ParseDay(end); err != nil {
			return req, fmt.Errorf("--end: %w", err)
		}
	}
	return req, nil
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "scan morning|evening",
		Short:     "Run the morning entry scan or the evening exit scan",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"morning", "evening"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, nil, func(ctx context.Context, a *app) error {
				if args[0] == "morning" {
					rep, err := a.scanner.MorningScan(ctx)
					if err != nil {
						a.send(ctx, report.Failure("Morning scan failed", err))
						return err
					}
					logger.Info(ctx, "Morning scan done", "bullish", rep.Bullish, "bought", rep.Bought)
					return nil
				}
				rep, err := a.scanner.EveningScan(ctx)
				if err != nil {
					a.send(ctx, report.Failure("Evening scan failed", err))
					return err
				}
				logger.Info(ctx, "Evening scan done", "positions", len(rep.Positions), "sold", rep.Sold)
				return nil
			})
		},
	}
}

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze SYMBOL",
		Short: "Score one symbol and print its indicators",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, nil, func(ctx context.Context, a *app) error {
				res, err := a.analyst.Analyze(ctx, args[0])
				if errors.Is(err, analyst.ErrNoData) {
					a.send(ctx, fmt.Sprintf("❌ No data for %s", strings.ToUpper(args[0])))
					return err
				}
				if err != nil {
					a.send(ctx, report.Failure("Analysis failed", err))
					return err
				}
				a.send(ctx, report.Analysis(res))
				return nil
			})
		},
	}
}

func tradeCmd() *cobra.Command {
	var qty int
	cmd := &cobra.Command{
		Use:   "trade buy|sell SYMBOL | trade positions|portfolio",
		Short: "Place a manual order or show the account",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := trader.ParseAction(args[0])
			if err != nil {
				return err
			}
			in := trader.Intent{Action: action, Qty: qty}
			if action == trader.ActionBuy || action == trader.ActionSell {
				if len(args) != 2 {
					return fmt.Errorf("%s needs a symbol", action)
				}
				in.Symbol = args[1]
			}
			return withApp(cmd, nil, func(ctx context.Context, a *app) error {
				_, err := a.trader.Execute(ctx, in)
				return err
			})
		},
	}
	cmd.Flags().IntVar(&qty, "qty", 0, "shares to buy or sell (default 1)")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve analysis, scans and backtests over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, nil, func(ctx context.Context, a *app) error {
				if addr == "" {
					addr = a.cfg.Server.Addr
				}
				srv := httpapi.NewServer(addr, httpapi.Deps{
					Analyst:    a.analyst,
					Scanner:    a.scanner,
					Backtester: a.backtester,
					Results:    a.results,
				})

				errc := make(chan error, 1)
				go func() { errc <- srv.Start() }()

				select {
				case err := <-errc:
					return err
				case <-ctx.Done():
					logger.Info(context.Background(), "Shutting down HTTP API")
					return srv.Shutdown(context.Background())
				}
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	return cmd
}
