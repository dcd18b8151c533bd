package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"openclaw-agent/internal/export"
	"openclaw-agent/internal/interfaces"
	"openclaw-agent/internal/logger"
	"openclaw-agent/internal/performance"
	"openclaw-agent/internal/types"
)

// ErrInvalidRange is returned when a request ends before it starts.
var ErrInvalidRange = errors.New("invalid backtest range")

const commentarySystem = "You are an expert trading analyst. Review the backtest results and give 3-4 sentences of concrete suggestions for improving the strategy."

// Runner loads history, simulates and summarises one backtest.
type Runner struct {
	data        interfaces.MarketData
	cfg         Config
	symbols     []string
	benchmark   string
	concurrency int
	commentator interfaces.Commentator
	results     interfaces.ResultStore
	csvDir      string
	now         func() time.Time
}

var _ interfaces.Backtester = (*Runner)(nil)

type RunnerOption func(*Runner)

func WithBenchmark(symbol string) RunnerOption {
	return func(r *Runner) { r.benchmark = symbol }
}

func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) { r.concurrency = n }
}

// WithCommentator adds AI commentary to results. Failures are logged.
func WithCommentator(c interfaces.Commentator) RunnerOption {
	return func(r *Runner) { r.commentator = c }
}

func WithResultStore(s interfaces.ResultStore) RunnerOption {
	return func(r *Runner) { r.results = s }
}

// WithCSVDir exports every run under dir.
func WithCSVDir(dir string) RunnerOption {
	return func(r *Runner) { r.csvDir = dir }
}

func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

func NewRunner(data interfaces.MarketData, cfg Config, symbols []string, opts ...RunnerOption) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backtest config: %w", err)
	}
	r := &Runner{
		data:        data,
		cfg:         cfg,
		symbols:     append([]string(nil), symbols...),
		benchmark:   "SPY",
		concurrency: defaultFetchConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run returns ErrNoData or performance.ErrNoTrades (wrapped) when there is
// nothing to report.
func (r *Runner) Run(ctx context.Context, req types.BacktestRequest) (*types.BacktestRun, error) {
	start, end := types.Day(req.Start), types.Day(req.End)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s is before start %s", ErrInvalidRange, end.Format(types.DateLayout), start.Format(types.DateLayout))
	}

	cfg := r.cfg
	if req.InitialCapital > 0 {
		cfg.InitialCapital = req.InitialCapital
	}
	sim, err := NewSimulator(cfg)
	if err != nil {
		return nil, err
	}

	bars, err := LoadBars(ctx, r.data, r.symbols, start, end, r.concurrency)
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}
	benchmark, err := r.data.Bars(ctx, r.benchmark, start, end)
	if err != nil {
		// the regime filter fails open on missing benchmark data
		logger.Warn(ctx, "Benchmark fetch failed, regime filter open", "benchmark", r.benchmark, "error", err)
		benchmark = nil
	}
	benchmark = sortedBars(benchmark)

	op := logger.StartOperation(ctx, "backtest.simulate", "symbols", len(r.symbols), "start", start.Format(types.DateLayout))
	outcome, err := sim.Run(op.GetContext(), Input{Symbols: r.symbols, Bars: bars, Benchmark: benchmark})
	if err != nil {
		op.EndWithError(err)
		return nil, fmt.Errorf("backtest %s..%s: %w", start.Format(types.DateLayout), end.Format(types.DateLayout), err)
	}

	op.End("trades", len(outcome.Trades), "open", len(outcome.Open))

	summary, err := performance.Summarize(outcome.Trades, outcome.Equity, cfg.InitialCapital)
	if err != nil {
		return nil, fmt.Errorf("backtest %s..%s: %w", start.Format(types.DateLayout), end.Format(types.DateLayout), err)
	}

	result := types.BacktestResult{
		StartDate:      start,
		EndDate:        end,
		InitialCapital: cfg.InitialCapital,
		Symbols:        outcome.Symbols,
	}
	summary.Apply(&result)

	if r.commentator != nil {
		result.Commentary = r.comment(ctx, result)
	}

	run := &types.BacktestRun{
		ID:        uuid.NewString(),
		CreatedAt: r.now().UTC(),
		Result:    result,
		Trades:    outcome.Trades,
		Equity:    outcome.Equity,
	}

	if r.results != nil {
		if err := r.results.Save(ctx, run); err != nil {
			logger.ErrorWithErr(ctx, "Failed to persist backtest run", err, "run_id", run.ID)
		}
	}
	if r.csvDir != "" {
		files, err := export.WriteRun(r.csvDir, run)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to export backtest run", err, "run_id", run.ID, "dir", r.csvDir)
		} else {
			logger.Info(ctx, "Backtest exported", "run_id", run.ID, "trades_csv", files.Trades)
		}
	}
	return run, nil
}

func (r *Runner) comment(ctx context.Context, result types.BacktestResult) string {
	payload, err := json.Marshal(result.Rounded())
	if err != nil {
		return ""
	}
	text, err := r.commentator.Comment(ctx, commentarySystem, "Backtest results: "+string(payload))
	if err != nil {
		logger.Warn(ctx, "Backtest commentary unavailable", "error", err)
		return ""
	}
	return text
}

// IsEmpty reports whether err is one of the explicit empty-result outcomes.
func IsEmpty(err error) bool {
	return errors.Is(err, ErrNoData) || errors.Is(err, performance.ErrNoTrades)
}
