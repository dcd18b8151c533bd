package types

import (
	"math"
	"time"
)

// DateLayout is the calendar-day format used on every boundary (config, CSV, JSON, messages).
const DateLayout = "2006-01-02"

// Bar is one daily observation. Date carries no time component.
type Bar struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a UTC calendar day.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// Closes extracts the close series of bars.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts the volume series of bars.
func Volumes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}

// IndicatorSnapshot is derived from a bar window and never mutated.
type IndicatorSnapshot struct {
	RSI         float64 `json:"rsi"`
	MAShort     float64 `json:"ma_short"`
	MALong      float64 `json:"ma_long"`
	ChangePct   float64 `json:"change_pct"`
	VolumeRatio float64 `json:"volume_ratio"`
}

// Signal is the advisory BUY/SELL/HOLD classification.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// ExitReason explains why a simulated position was closed.
type ExitReason string

const (
	ExitTakeProfit ExitReason = "take_profit"
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTimeout    ExitReason = "timeout"
)

// Position is an open simulated holding.
type Position struct {
	Symbol   string    `json:"symbol"`
	Quantity int       `json:"quantity"`
	BuyPrice float64   `json:"buy_price"`
	BuyDate  time.Time `json:"buy_date"`
}

// Trade is a closed round trip. Immutable once appended to a trade log.
type Trade struct {
	Symbol    string     `json:"symbol"`
	BuyDate   time.Time  `json:"buy_date"`
	SellDate  time.Time  `json:"sell_date"`
	BuyPrice  float64    `json:"buy_price"`
	SellPrice float64    `json:"sell_price"`
	Quantity  int        `json:"quantity"`
	PLPct     float64    `json:"pl_pct"`
	Reason    ExitReason `json:"reason"`
}

// Rounded returns a copy with prices and percentages rounded for display.
func (t Trade) Rounded() Trade {
	t.BuyPrice = Round2(t.BuyPrice)
	t.SellPrice = Round2(t.SellPrice)
	t.PLPct = Round2(t.PLPct)
	return t
}

// EquityPoint is the portfolio value recorded for one simulated date.
type EquityPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// BacktestResult summarises a finished simulation.
type BacktestResult struct {
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	InitialCapital float64   `json:"initial_capital"`
	FinalValue     float64   `json:"final_value"`
	TotalReturn    float64   `json:"total_return"`
	TotalTrades    int       `json:"total_trades"`
	WinRate        float64   `json:"win_rate"`
	AvgWin         float64   `json:"avg_win"`
	AvgLoss        float64   `json:"avg_loss"`
	MaxDrawdown    float64   `json:"max_drawdown"`
	BestTrade      Trade     `json:"best_trade"`
	WorstTrade     Trade     `json:"worst_trade"`
	WinningTrades  int       `json:"winning_trades"`
	LosingTrades   int       `json:"losing_trades"`
	Symbols        []string  `json:"symbols,omitempty"`
	Commentary     string    `json:"commentary,omitempty"`
}

// Rounded returns the presentation form of the result: money and percentages
// to 2 decimals, win rate to 1 decimal.
func (r BacktestResult) Rounded() BacktestResult {
	r.FinalValue = Round2(r.FinalValue)
	r.TotalReturn = Round2(r.TotalReturn)
	r.WinRate = math.Round(r.WinRate*10) / 10
	r.AvgWin = Round2(r.AvgWin)
	r.AvgLoss = Round2(r.AvgLoss)
	r.MaxDrawdown = Round2(r.MaxDrawdown)
	r.BestTrade = r.BestTrade.Rounded()
	r.WorstTrade = r.WorstTrade.Rounded()
	return r
}

// ScanResult is one symbol's live scan output.
type ScanResult struct {
	Symbol   string            `json:"symbol"`
	Price    float64           `json:"price"`
	Snapshot IndicatorSnapshot `json:"indicators"`
	Score    int               `json:"score"`
	Signal   Signal            `json:"signal"`
	AsOf     time.Time         `json:"as_of"`
}

// Analysis is the single-symbol advisory view.
type Analysis struct {
	Symbol     string            `json:"symbol"`
	Price      float64           `json:"price"`
	Snapshot   IndicatorSnapshot `json:"indicators"`
	Signal     Signal            `json:"signal"`
	Score      int               `json:"score"`
	Commentary string            `json:"commentary,omitempty"`
}

type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

type OrderReq struct {
	Symbol string    `json:"symbol"`
	Side   OrderSide `json:"side"`
	Qty    int       `json:"qty"`
	Tag    string    `json:"tag,omitempty"`
}

type OrderResp struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// BrokerPosition is a position as reported by the live broker.
type BrokerPosition struct {
	Symbol        string  `json:"symbol"`
	Qty           int     `json:"qty"`
	AvgEntryPrice float64 `json:"avg_entry_price"`
	CurrentPrice  float64 `json:"current_price"`
	UnrealizedPL  float64 `json:"unrealized_pl"`
	// UnrealizedPLPct is in percent (already multiplied by 100).
	UnrealizedPLPct float64 `json:"unrealized_pl_pct"`
}

type Account struct {
	Cash        float64 `json:"cash"`
	Equity      float64 `json:"equity"`
	BuyingPower float64 `json:"buying_power"`
	LastEquity  float64 `json:"last_equity"`
}

// PLToday is equity change since the previous close.
func (a Account) PLToday() float64 {
	return a.Equity - a.LastEquity
}

// Round2 rounds to 2 decimal places. Presentation only.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// BacktestRequest is the date range and capital for one run.
type BacktestRequest struct {
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	InitialCapital float64   `json:"initial_capital"`
}

// BacktestRun is a finished, identified run as persisted and served.
type BacktestRun struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Result    BacktestResult `json:"result"`
	Trades    []Trade        `json:"trades,omitempty"`
	Equity    []EquityPoint  `json:"equity,omitempty"`
}
