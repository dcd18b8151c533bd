package interfaces

import (
	"context"

	"openclaw-agent/internal/types"
)

type Backtester interface {
	Run(ctx context.Context, req types.BacktestRequest) (*types.BacktestRun, error)
}

// ResultStore persists finished backtest runs. List returns the newest
// first without trades or equity.
type ResultStore interface {
	Save(ctx context.Context, run *types.BacktestRun) error
	Get(ctx context.Context, id string) (*types.BacktestRun, error)
	List(ctx context.Context, limit int) ([]types.BacktestRun, error)
}
