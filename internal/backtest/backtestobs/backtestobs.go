package backtestobs

import (
	"context"

	"openclaw-agent/internal/interfaces"
	"openclaw-agent/internal/logger"
	"openclaw-agent/internal/trace"
	"openclaw-agent/internal/types"
)

// observableBacktester wraps a Backtester with logging and tracing
type observableBacktester struct {
	backtester interfaces.Backtester
}

var _ interfaces.Backtester = (*observableBacktester)(nil)

func Wrap(b interfaces.Backtester) interfaces.Backtester {
	return &observableBacktester{backtester: b}
}

func (ob *observableBacktester) Run(ctx context.Context, req types.BacktestRequest) (*types.BacktestRun, error) {
	ctx, span := trace.StartSpan(ctx, "backtest.Run")
	defer span.End()

	start, end := req.Start.Format(types.DateLayout), req.End.Format(types.DateLayout)
	logger.InfoSkip(ctx, 1, "Starting backtest", "start", start, "end", end, "initial_capital", req.InitialCapital)

	run, err := ob.backtester.Run(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Backtest failed", err, "start", start, "end", end)
		return nil, err
	}

	r := run.Result.Rounded()
	logger.InfoSkip(ctx, 1, "Backtest completed",
		"run_id", run.ID,
		"symbols", len(r.Symbols),
		"total_trades", r.TotalTrades,
		"total_return", r.TotalReturn,
		"win_rate", r.WinRate,
		"max_drawdown", r.MaxDrawdown,
	)
	return run, nil
}
