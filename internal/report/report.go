// Package report renders results as Markdown text for a chat notifier or a
// terminal. Rounding happens here and nowhere upstream.
package report

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"openclaw-agent/internal/types"
)

var printer = message.NewPrinter(language.English)

// Money formats x as dollars with thousands separators.
func Money(x float64) string {
	if x < 0 {
		return "-$" + printer.Sprintf("%.2f", -x)
	}
	return "$" + printer.Sprintf("%.2f", x)
}

// Pct formats a percentage with an explicit sign.
func Pct(x float64, decimals int) string {
	return fmt.Sprintf("%+.*f%%", decimals, x)
}

func mark(x float64) string {
	if x >= 0 {
		return "🟢"
	}
	return "🔴"
}

func signalMark(s types.Signal) string {
	switch s {
	case types.SignalBuy:
		return "🟢"
	case types.SignalSell:
		return "🔴"
	default:
		return "🟡"
	}
}

// table renders rows inside a Markdown code block so columns stay aligned.
func table(header []string, rows [][]string) string {
	var b strings.Builder
	t := tablewriter.NewWriter(&b)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetBorder(false)
	t.SetColumnSeparator("")
	t.SetAlignment(tablewriter.ALIGN_RIGHT)
	t.AppendBulk(rows)
	t.Render()
	return "```\n" + b.String() + "```"
}

func Backtest(r types.BacktestResult) string {
	r = r.Rounded()
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Backtest %s → %s*\n\n", r.StartDate.Format(types.DateLayout), r.EndDate.Format(types.DateLayout))
	fmt.Fprintf(&b, "💰 Initial capital: %s\n", Money(r.InitialCapital))
	fmt.Fprintf(&b, "%s Final value: %s (%s)\n", mark(r.TotalReturn), Money(r.FinalValue), Pct(r.TotalReturn, 2))
	fmt.Fprintf(&b, "📉 Max drawdown: %.2f%%\n\n", r.MaxDrawdown)
	fmt.Fprintf(&b, "🔢 Trades: %d (%d won / %d lost)\n", r.TotalTrades, r.WinningTrades, r.LosingTrades)
	fmt.Fprintf(&b, "🎯 Win rate: %.1f%%\n", r.WinRate)
	fmt.Fprintf(&b, "✅ Avg win: %s | ❌ Avg loss: %s\n\n", Pct(r.AvgWin, 2), Pct(r.AvgLoss, 2))
	fmt.Fprintf(&b, "🏆 *Best trade:* %s\n", tradeLine(r.BestTrade))
	fmt.Fprintf(&b, "💸 *Worst trade:* %s", tradeLine(r.WorstTrade))
	if r.Commentary != "" {
		fmt.Fprintf(&b, "\n\n🤖 *AI analysis:*\n%s", r.Commentary)
	}
	return b.String()
}

func tradeLine(t types.Trade) string {
	return fmt.Sprintf("%s: %s (%s → %s)", t.Symbol, Pct(t.PLPct, 2),
		t.BuyDate.Format(types.DateLayout), t.SellDate.Format(types.DateLayout))
}

// Trades lists closed trades in execution order.
func Trades(trades []types.Trade) string {
	rows := make([][]string, 0, len(trades))
	for _, t := range trades {
		t = t.Rounded()
		rows = append(rows, []string{
			t.Symbol,
			t.BuyDate.Format(types.DateLayout),
			t.SellDate.Format(types.DateLayout),
			printer.Sprintf("%d", t.Quantity),
			printer.Sprintf("%.2f", t.BuyPrice),
			printer.Sprintf("%.2f", t.SellPrice),
			Pct(t.PLPct, 2),
			string(t.Reason),
		})
	}
	return table([]string{"Symbol", "Buy", "Sell", "Qty", "In", "Out", "P&L", "Exit"}, rows)
}

// Scan reports the first limit results, which are expected ranked.
func Scan(results []types.ScanResult, limit int) string {
	if len(results) == 0 {
		return "😴 No good opportunities found this morning."
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	var b strings.Builder
	b.WriteString("📊 *Morning scan results:*\n")
	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. *%s* - score %d/100 %s\n", i+1, r.Symbol, r.Score, signalMark(r.Signal))
		fmt.Fprintf(&b, "   💰 %s | RSI %.2f | change %s", Money(r.Price), r.Snapshot.RSI, Pct(r.Snapshot.ChangePct, 2))
	}
	return b.String()
}

func MarketRegime(bullish bool) string {
	if bullish {
		return "🌅 *Morning scan starting...*\n🟢 Market trend is positive"
	}
	return "🌅 *Morning scan starting...*\n🔴 Market trend is negative - no buying today"
}

func Bought(symbols []string, qty int) string {
	return fmt.Sprintf("✅ *Bought automatically:* %s\n%d shares of each at market.", strings.Join(symbols, ", "), qty)
}

// PortfolioPL lists unrealised P&L per position with a total line.
func PortfolioPL(title string, positions []types.BrokerPosition) string {
	if len(positions) == 0 {
		return "📭 No open positions right now."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", title)
	total := 0.0
	for _, p := range positions {
		total += p.UnrealizedPL
		fmt.Fprintf(&b, "%s %s: %s (%s)\n", mark(p.UnrealizedPL), p.Symbol, Money(p.UnrealizedPL), Pct(p.UnrealizedPLPct, 1))
	}
	fmt.Fprintf(&b, "\n%s *Total P&L: %s*", mark(total), Money(total))
	return b.String()
}

func Evening(positions []types.BrokerPosition, sold []string) string {
	if len(positions) == 0 {
		return "🌆 *Evening scan:* no open positions."
	}
	s := PortfolioPL("🌆 *Evening report:*", positions)
	if len(sold) > 0 {
		s += "\n\n🔄 *Sold:* " + strings.Join(sold, ", ")
	}
	return s
}

func Positions(positions []types.BrokerPosition) string {
	if len(positions) == 0 {
		return "📭 No open positions right now."
	}
	rows := make([][]string, 0, len(positions))
	for _, p := range positions {
		rows = append(rows, []string{
			p.Symbol,
			printer.Sprintf("%d", p.Qty),
			printer.Sprintf("%.2f", p.AvgEntryPrice),
			printer.Sprintf("%.2f", p.CurrentPrice),
			Money(p.UnrealizedPL),
			Pct(p.UnrealizedPLPct, 1),
		})
	}
	return "📋 *Your positions:*\n" + table([]string{"Symbol", "Qty", "Avg", "Now", "P&L", "%"}, rows)
}

func Account(a types.Account) string {
	var b strings.Builder
	b.WriteString("💼 *Portfolio:*\n\n")
	fmt.Fprintf(&b, "💰 Equity: %s\n", Money(a.Equity))
	fmt.Fprintf(&b, "💵 Cash: %s\n", Money(a.Cash))
	fmt.Fprintf(&b, "🛒 Buying power: %s\n", Money(a.BuyingPower))
	fmt.Fprintf(&b, "%s P&L today: %s", mark(a.PLToday()), Money(a.PLToday()))
	return b.String()
}

func Order(req types.OrderReq, resp types.OrderResp) string {
	verb := "Buy"
	if req.Side == types.SideSell {
		verb = "Sell"
	}
	id := resp.OrderID
	if len(id) > 8 {
		id = id[:8] + "..."
	}
	return fmt.Sprintf("✅ *%s order placed!*\n\n📈 %s\n🔢 Qty: %d shares\n📋 Order: `%s` (%s)\n\n⏳ Fills at market price.",
		verb, req.Symbol, req.Qty, id, resp.Status)
}

func Analysis(a types.Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Analysis %s*\n\n", a.Symbol)
	fmt.Fprintf(&b, "💰 Price: %s\n", Money(a.Price))
	fmt.Fprintf(&b, "📈 Change: %s\n", Pct(a.Snapshot.ChangePct, 2))
	fmt.Fprintf(&b, "📉 RSI: %.2f\n", a.Snapshot.RSI)
	fmt.Fprintf(&b, "📊 MA7: %s | MA20: %s\n\n", Money(a.Snapshot.MAShort), Money(a.Snapshot.MALong))
	fmt.Fprintf(&b, "%s *Signal: %s* (score %d/100)", signalMark(a.Signal), a.Signal, a.Score)
	if a.Commentary != "" {
		fmt.Fprintf(&b, "\n\n%s", a.Commentary)
	}
	return b.String()
}

// Failure is the user-facing line for an operation that could not finish.
func Failure(what string, err error) string {
	return fmt.Sprintf("❌ %s: %v", what, err)
}
