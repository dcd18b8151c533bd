package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"openclaw-agent/internal/types"
)

func TestMoney(t *testing.T) {
	assert.Equal(t, "$102,400.00", Money(102400))
	assert.Equal(t, "-$1,234.57", Money(-1234.567))
	assert.Equal(t, "$0.00", Money(0))
	assert.Equal(t, "+2.40%", Pct(2.4, 2))
	assert.Equal(t, "-10.0%", Pct(-10, 1))
}

func TestBacktest(t *testing.T) {
	d := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	best := types.Trade{Symbol: "AAA", BuyDate: d, SellDate: d.AddDate(0, 0, 1), PLPct: 16}
	r := types.BacktestResult{
		StartDate: d, EndDate: d.AddDate(0, 1, 0),
		InitialCapital: 100000, FinalValue: 102400.004, TotalReturn: 2.4,
		TotalTrades: 1, WinningTrades: 1, WinRate: 100,
		AvgWin: 16, BestTrade: best, WorstTrade: best,
		Commentary: "hold winners longer",
	}
	s := Backtest(r)
	assert.Contains(t, s, "2024-08-01 → 2024-09-01")
	assert.Contains(t, s, "$102,400.00 (+2.40%)")
	assert.Contains(t, s, "AAA: +16.00% (2024-08-01 → 2024-08-02)")
	assert.Contains(t, s, "Win rate: 100.0%")
	assert.True(t, strings.HasSuffix(s, "hold winners longer"))

	r.Commentary = ""
	assert.NotContains(t, Backtest(r), "AI analysis")
}

func TestScan(t *testing.T) {
	assert.Contains(t, Scan(nil, 5), "No good opportunities")

	var results []types.ScanResult
	for _, s := range []string{"A", "B", "C", "D", "E", "F"} {
		results = append(results, types.ScanResult{Symbol: s, Score: 60, Signal: types.SignalBuy, Price: 10})
	}
	s := Scan(results, 5)
	assert.Contains(t, s, "5. *E*")
	assert.NotContains(t, s, "*F*")
}

func TestPortfolioAndEvening(t *testing.T) {
	pos := []types.BrokerPosition{
		{Symbol: "AAA", Qty: 2, UnrealizedPL: 30, UnrealizedPLPct: 15.5},
		{Symbol: "BBB", Qty: 1, UnrealizedPL: -50, UnrealizedPLPct: -10.2},
	}
	s := Evening(pos, []string{"AAA (take_profit)"})
	assert.Contains(t, s, "🟢 AAA: $30.00 (+15.5%)")
	assert.Contains(t, s, "🔴 BBB: -$50.00 (-10.2%)")
	assert.Contains(t, s, "Total P&L: -$20.00")
	assert.Contains(t, s, "Sold:* AAA (take_profit)")

	assert.Contains(t, Evening(nil, nil), "no open positions")
	assert.Contains(t, Positions(pos), "AAA")
	assert.Contains(t, Positions(nil), "No open positions")
}

func TestAccountOrderAnalysis(t *testing.T) {
	s := Account(types.Account{Equity: 10500, Cash: 2000, BuyingPower: 4000, LastEquity: 10000})
	assert.Contains(t, s, "P&L today: $500.00")

	o := Order(types.OrderReq{Symbol: "AAPL", Side: types.SideSell, Qty: 3},
		types.OrderResp{OrderID: "0123456789abcdef", Status: "accepted"})
	assert.Contains(t, o, "Sell order placed")
	assert.Contains(t, o, "`01234567...`")

	a := Analysis(types.Analysis{Symbol: "AAPL", Price: 190.5, Signal: types.SignalHold, Score: 40})
	assert.Contains(t, a, "🟡 *Signal: HOLD*")
	assert.Equal(t, "❌ scan: boom", Failure("scan", errors.New("boom")))
}

func TestTradesTable(t *testing.T) {
	d := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	s := Trades([]types.Trade{{Symbol: "AAA", BuyDate: d, SellDate: d, Quantity: 1500, BuyPrice: 100, SellPrice: 116, PLPct: 16, Reason: types.ExitTakeProfit}})
	assert.True(t, strings.HasPrefix(s, "```\n"))
	assert.Contains(t, s, "1,500")
	assert.Contains(t, s, "take_profit")
}
