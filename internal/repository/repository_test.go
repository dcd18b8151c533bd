package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openclaw-agent/internal/interfaces"
	"openclaw-agent/internal/types"
)

func sampleRun(id string, created time.Time) *types.BacktestRun {
	d := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	return &types.BacktestRun{
		ID:        id,
		CreatedAt: created,
		Result: types.BacktestResult{
			StartDate: d, EndDate: d.AddDate(0, 1, 0),
			InitialCapital: 100000, FinalValue: 102400, TotalReturn: 2.4,
			TotalTrades: 1, Symbols: []string{"AAA"},
		},
		Trades: []types.Trade{{Symbol: "AAA", BuyDate: d, SellDate: d.AddDate(0, 0, 1), Quantity: 150, BuyPrice: 100, SellPrice: 116, PLPct: 16, Reason: types.ExitTakeProfit}},
		Equity: []types.EquityPoint{{Date: d, Value: 100000}, {Date: d.AddDate(0, 0, 1), Value: 102400}},
	}
}

// exerciseStore runs the same contract against any ResultStore.
func exerciseStore(t *testing.T, store interfaces.ResultStore) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	older := sampleRun(uuid.NewString(), base)
	newer := sampleRun(uuid.NewString(), base.Add(time.Hour))

	require.NoError(t, store.Save(ctx, older))
	require.NoError(t, store.Save(ctx, newer))

	got, err := store.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, older.Trades, got.Trades)
	assert.Equal(t, older.Equity, got.Equity)
	assert.Equal(t, older.Result.FinalValue, got.Result.FinalValue)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := store.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Empty(t, list[0].Trades)

	assert.Error(t, store.Save(ctx, &types.BacktestRun{}))
}

func TestInMemoryRunRepository(t *testing.T) {
	repo := NewInMemoryRunRepository()
	exerciseStore(t, repo)

	run := sampleRun("x", time.Now())
	require.NoError(t, repo.Save(context.Background(), run))
	run.Trades[0].Symbol = "MUTATED"
	got, err := repo.Get(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "AAA", got.Trades[0].Symbol, "stored runs are copies")
}

func TestPostgresRunRepository(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, url, DefaultPoolConfig())
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, Migrate(ctx, pool))
	_, err = pool.Exec(ctx, "truncate backtest_runs")
	require.NoError(t, err)

	exerciseStore(t, NewPostgresRunRepository(pool))
}

func TestPoolConfigFromEnv(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "2")
	t.Setenv("DB_MIN_CONNS", "9")
	cfg := PoolConfigFromEnv()
	assert.Equal(t, int32(2), cfg.MaxConns)
	assert.Equal(t, int32(2), cfg.MinConns)
}
