package export

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openclaw-agent/internal/types"
)

func sampleRun() *types.BacktestRun {
	d := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	return &types.BacktestRun{
		ID: "run-1",
		Trades: []types.Trade{
			{Symbol: "NVDA", BuyDate: d, SellDate: d.AddDate(0, 0, 3), Quantity: 10, BuyPrice: 100, SellPrice: 116, PLPct: 16, Reason: types.ExitTakeProfit},
			{Symbol: "AAPL", BuyDate: d, SellDate: d.AddDate(0, 0, 10), Quantity: 5, BuyPrice: 200, SellPrice: 199.994, PLPct: -0.003, Reason: types.ExitTimeout},
			{Symbol: "NVDA", BuyDate: d.AddDate(0, 0, 4), SellDate: d.AddDate(0, 0, 6), Quantity: 10, BuyPrice: 120, SellPrice: 108, PLPct: -10, Reason: types.ExitStopLoss},
		},
		Equity: []types.EquityPoint{{Date: d, Value: 100000}, {Date: d.AddDate(0, 0, 1), Value: 100123.456}},
	}
}

func TestWriteRun(t *testing.T) {
	dir := t.TempDir()
	files, err := WriteRun(dir, sampleRun())
	require.NoError(t, err)

	f, err := os.Open(files.Trades)
	require.NoError(t, err)
	defer f.Close()
	var trades []*tradeRow
	require.NoError(t, gocsv.UnmarshalFile(f, &trades))
	require.Len(t, trades, 3)
	assert.Equal(t, "2024-09-05", trades[0].SellDate)
	assert.Equal(t, "take_profit", trades[0].Reason)
	assert.Equal(t, 199.99, trades[1].SellPrice)

	raw, err := os.ReadFile(files.Equity)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "date,value"))
	assert.Contains(t, string(raw), "2024-09-03,100123.46")
}

func TestWriteRunNeedsID(t *testing.T) {
	_, err := WriteRun(t.TempDir(), &types.BacktestRun{})
	assert.Error(t, err)
}

func TestAggregate(t *testing.T) {
	rows := Aggregate(sampleRun().Trades)
	require.Len(t, rows, 2)

	assert.Equal(t, "AAPL", rows[0].Symbol)
	assert.Equal(t, "NVDA", rows[1].Symbol)
	assert.Equal(t, 2, rows[1].Trades)
	assert.Equal(t, 1, rows[1].Wins)
	assert.InDelta(t, 2200.0, rows[1].BuyValue, 1e-9)
	assert.InDelta(t, 40.0, rows[1].RealizedPnL, 1e-9)
}
