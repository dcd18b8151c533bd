// Package export writes finished backtest runs as CSV files.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gocarina/gocsv"

	"openclaw-agent/internal/types"
)

type tradeRow struct {
	Symbol    string  `csv:"symbol"`
	BuyDate   string  `csv:"buy_date"`
	SellDate  string  `csv:"sell_date"`
	Quantity  int     `csv:"quantity"`
	BuyPrice  float64 `csv:"buy_price"`
	SellPrice float64 `csv:"sell_price"`
	PLPct     float64 `csv:"pl_pct"`
	Reason    string  `csv:"reason"`
}

type equityRow struct {
	Date  string  `csv:"date"`
	Value float64 `csv:"value"`
}

// symbolRow aggregates round trips per symbol.
type symbolRow struct {
	Symbol      string  `csv:"symbol"`
	Trades      int     `csv:"trades"`
	Wins        int     `csv:"wins"`
	BuyValue    float64 `csv:"gross_buy_value"`
	SellValue   float64 `csv:"gross_sell_value"`
	RealizedPnL float64 `csv:"realized_pnl"`
}

// Files are the paths written for one run.
type Files struct {
	Trades  string
	Equity  string
	Symbols string
}

// WriteRun writes trades, the equity curve and a per-symbol summary under
// dir/<run id>/. Values are rounded to 2 decimals.
func WriteRun(dir string, run *types.BacktestRun) (Files, error) {
	if run == nil || run.ID == "" {
		return Files{}, fmt.Errorf("export: run without id")
	}
	base := filepath.Join(dir, run.ID)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return Files{}, err
	}
	files := Files{
		Trades:  filepath.Join(base, "trades.csv"),
		Equity:  filepath.Join(base, "equity.csv"),
		Symbols: filepath.Join(base, "symbols.csv"),
	}

	trades := make([]*tradeRow, 0, len(run.Trades))
	for _, t := range run.Trades {
		r := t.Rounded()
		trades = append(trades, &tradeRow{
			Symbol:    r.Symbol,
			BuyDate:   r.BuyDate.Format(types.DateLayout),
			SellDate:  r.SellDate.Format(types.DateLayout),
			Quantity:  r.Quantity,
			BuyPrice:  r.BuyPrice,
			SellPrice: r.SellPrice,
			PLPct:     r.PLPct,
			Reason:    string(r.Reason),
		})
	}
	if err := marshalFile(files.Trades, &trades); err != nil {
		return Files{}, err
	}

	equity := make([]*equityRow, 0, len(run.Equity))
	for _, p := range run.Equity {
		equity = append(equity, &equityRow{Date: p.Date.Format(types.DateLayout), Value: types.Round2(p.Value)})
	}
	if err := marshalFile(files.Equity, &equity); err != nil {
		return Files{}, err
	}

	symbols := Aggregate(run.Trades)
	if err := marshalFile(files.Symbols, &symbols); err != nil {
		return Files{}, err
	}
	return files, nil
}

// Aggregate sums round trips per symbol, sorted by symbol.
func Aggregate(trades []types.Trade) []*symbolRow {
	aggs := map[string]*symbolRow{}
	for _, t := range trades {
		row := aggs[t.Symbol]
		if row == nil {
			row = &symbolRow{Symbol: t.Symbol}
			aggs[t.Symbol] = row
		}
		qty := float64(t.Quantity)
		row.Trades++
		if t.PLPct > 0 {
			row.Wins++
		}
		row.BuyValue += qty * t.BuyPrice
		row.SellValue += qty * t.SellPrice
	}
	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*symbolRow, 0, len(keys))
	for _, k := range keys {
		r := aggs[k]
		r.RealizedPnL = types.Round2(r.SellValue - r.BuyValue)
		r.BuyValue = types.Round2(r.BuyValue)
		r.SellValue = types.Round2(r.SellValue)
		out = append(out, r)
	}
	return out
}

func marshalFile(path string, rows any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := gocsv.MarshalFile(rows, f); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
