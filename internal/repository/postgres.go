package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"openclaw-agent/internal/interfaces"
	"openclaw-agent/internal/types"
)

// PostgresRunRepository stores each run as one row with JSONB payloads.
type PostgresRunRepository struct {
	pool *pgxpool.Pool
}

var _ interfaces.ResultStore = (*PostgresRunRepository)(nil)

func NewPostgresRunRepository(pool *pgxpool.Pool) *PostgresRunRepository {
	return &PostgresRunRepository{pool: pool}
}

func (r *PostgresRunRepository) Save(ctx context.Context, run *types.BacktestRun) error {
	if run == nil || run.ID == "" {
		return errors.New("run must have an id")
	}
	result, err := json.Marshal(run.Result)
	if err != nil {
		return err
	}
	trades, err := json.Marshal(nonNil(run.Trades))
	if err != nil {
		return err
	}
	equity, err := json.Marshal(nonNil(run.Equity))
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		insert into backtest_runs(id, created_at, start_date, end_date, total_return, result, trades, equity)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
		on conflict (id) do update set
			result = excluded.result,
			trades = excluded.trades,
			equity = excluded.equity,
			total_return = excluded.total_return
	`,
		run.ID,
		run.CreatedAt,
		run.Result.StartDate,
		run.Result.EndDate,
		run.Result.TotalReturn,
		result,
		trades,
		equity,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

func (r *PostgresRunRepository) Get(ctx context.Context, id string) (*types.BacktestRun, error) {
	var (
		run                    types.BacktestRun
		result, trades, equity []byte
	)
	err := r.pool.QueryRow(ctx, `
		select id, created_at, result, trades, equity
		from backtest_runs
		where id = $1
	`, id).Scan(&run.ID, &run.CreatedAt, &result, &trades, &equity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	if err := decode(result, &run.Result); err != nil {
		return nil, err
	}
	if err := decode(trades, &run.Trades); err != nil {
		return nil, err
	}
	if err := decode(equity, &run.Equity); err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *PostgresRunRepository) List(ctx context.Context, limit int) ([]types.BacktestRun, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		select id, created_at, result
		from backtest_runs
		order by created_at desc, id
		limit $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := make([]types.BacktestRun, 0)
	for rows.Next() {
		var (
			run    types.BacktestRun
			result []byte
		)
		if err := rows.Scan(&run.ID, &run.CreatedAt, &result); err != nil {
			return nil, err
		}
		if err := decode(result, &run.Result); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func decode(b []byte, v any) error {
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode run payload: %w", err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
