// Package repository persists finished backtest runs.
package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"openclaw-agent/internal/interfaces"
	"openclaw-agent/internal/types"
)

var ErrNotFound = errors.New("backtest run not found")

// InMemoryRunRepository keeps runs for the life of the process.
type InMemoryRunRepository struct {
	mu   sync.RWMutex
	runs map[string]types.BacktestRun
}

var _ interfaces.ResultStore = (*InMemoryRunRepository)(nil)

func NewInMemoryRunRepository() *InMemoryRunRepository {
	return &InMemoryRunRepository{runs: make(map[string]types.BacktestRun)}
}

func (r *InMemoryRunRepository) Save(ctx context.Context, run *types.BacktestRun) error {
	if run == nil || run.ID == "" {
		return errors.New("run must have an id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = clone(*run)
	return nil
}

func (r *InMemoryRunRepository) Get(ctx context.Context, id string) (*types.BacktestRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := clone(run)
	return &out, nil
}

// List returns run summaries newest first, without trades or equity.
func (r *InMemoryRunRepository) List(ctx context.Context, limit int) ([]types.BacktestRun, error) {
	r.mu.RLock()
	out := make([]types.BacktestRun, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, types.BacktestRun{ID: run.ID, CreatedAt: run.CreatedAt, Result: run.Result})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func clone(run types.BacktestRun) types.BacktestRun {
	run.Trades = append([]types.Trade(nil), run.Trades...)
	run.Equity = append([]types.EquityPoint(nil), run.Equity...)
	run.Result.Symbols = append([]string(nil), run.Result.Symbols...)
	return run
}
