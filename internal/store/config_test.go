package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaults(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, "DRY_RUN", c.Mode)
	assert.Equal(t, "STATIC", c.DataSource)
	assert.Len(t, c.Watchlist, 20)
	assert.Equal(t, "SPY", c.Benchmark)
	assert.Equal(t, 15.0, c.Policy.TakeProfitPct)
	assert.Equal(t, 2, c.Scanner.BuyQty)

	sim, err := c.SimulatorConfig()
	require.NoError(t, err)
	assert.Equal(t, 100000.0, sim.InitialCapital)
	assert.Equal(t, 5, sim.MaxPositions)
	assert.Equal(t, 20, sim.Regime.Window)
	assert.Equal(t, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), c.BacktestStart())
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "g")
	t.Setenv("DATABASE_URL", "postgres://x")
	p := writeConfig(t, `
mode: LIVE
data_source: LIVE
watchlist: [" aapl", "msft "]
policy:
  take_profit_pct: 20
simulation:
  max_positions: 3
storage:
  driver: postgres
cache:
  ttl: 30s
`)
	c, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, c.Watchlist)
	assert.Equal(t, 20.0, c.Policy.TakeProfitPct)
	assert.Equal(t, 10.0, c.Policy.StopLossPct)
	assert.Equal(t, 3, c.Simulation.MaxPositions)
	assert.Equal(t, 30*time.Second, c.Cache.TTL)
	assert.Equal(t, "g", c.Secrets.GroqKey)
	assert.Equal(t, "postgres://x", c.Secrets.DatabaseURL)
}

func TestLoadConfigInvalid(t *testing.T) {
	for name, body := range map[string]string{
		"mode":    "mode: PAPER\n",
		"source":  "data_source: CSV\n",
		"start":   "backtest:\n  start: 08/01/2024\n",
		"storage": "storage:\n  driver: sqlite\n",
		"policy":  "policy:\n  invest_fraction: 2\n",
		"history": "simulation:\n  min_history: 5\n",
		"blank":   "watchlist: [AAPL, \" \"]\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatchlistRepeatsCollapse(t *testing.T) {
	c, err := LoadConfig(writeConfig(t, "watchlist: [aapl, AAPL, msft, \" Aapl \", MSFT]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, c.Watchlist)
}
