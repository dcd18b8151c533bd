// Package performance reduces a finished simulation into summary statistics.
package performance

import (
	"errors"

	"github.com/montanaflynn/stats"

	"openclaw-agent/internal/types"
)

// ErrNoTrades is returned when there is nothing to summarise.
var ErrNoTrades = errors.New("no trades executed")

// Summary is the trade and equity reduction. Values are unrounded.
type Summary struct {
	FinalValue    float64
	TotalReturn   float64
	TotalTrades   int
	WinRate       float64
	AvgWin        float64
	AvgLoss       float64
	MaxDrawdown   float64
	BestTrade     types.Trade
	WorstTrade    types.Trade
	WinningTrades int
	LosingTrades  int
}

// Summarize computes trade statistics. A trade with pl_pct == 0 counts as a
// loss. Best and worst ties resolve to the earliest trade.
func Summarize(trades []types.Trade, equity []types.EquityPoint, initialCapital float64) (Summary, error) {
	if len(trades) == 0 {
		return Summary{}, ErrNoTrades
	}

	var wins, losses []float64
	best, worst := trades[0], trades[0]
	for _, t := range trades {
		if t.PLPct > 0 {
			wins = append(wins, t.PLPct)
		} else {
			losses = append(losses, t.PLPct)
		}
		if t.PLPct > best.PLPct {
			best = t
		}
		if t.PLPct < worst.PLPct {
			worst = t
		}
	}

	final := initialCapital
	if len(equity) > 0 {
		final = equity[len(equity)-1].Value
	}

	s := Summary{
		FinalValue:    final,
		TotalTrades:   len(trades),
		WinRate:       float64(len(wins)) / float64(len(trades)) * 100,
		AvgWin:        meanOrZero(wins),
		AvgLoss:       meanOrZero(losses),
		MaxDrawdown:   MaxDrawdown(equity, initialCapital),
		BestTrade:     best,
		WorstTrade:    worst,
		WinningTrades: len(wins),
		LosingTrades:  len(losses),
	}
	if initialCapital != 0 {
		s.TotalReturn = (final - initialCapital) / initialCapital * 100
	}
	return s, nil
}

// MaxDrawdown is the largest percent decline from a running peak. The peak
// starts at seed (the initial capital) and never decreases.
func MaxDrawdown(equity []types.EquityPoint, seed float64) float64 {
	peak := seed
	worst := 0.0
	for _, p := range equity {
		if p.Value > peak {
			peak = p.Value
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - p.Value) / peak * 100; dd > worst {
			worst = dd
		}
	}
	if worst > 100 {
		worst = 100
	}
	return worst
}

// Apply copies the summary onto a result record.
func (s Summary) Apply(r *types.BacktestResult) {
	r.FinalValue = s.FinalValue
	r.TotalReturn = s.TotalReturn
	r.TotalTrades = s.TotalTrades
	r.WinRate = s.WinRate
	r.AvgWin = s.AvgWin
	r.AvgLoss = s.AvgLoss
	r.MaxDrawdown = s.MaxDrawdown
	r.BestTrade = s.BestTrade
	r.WorstTrade = s.WorstTrade
	r.WinningTrades = s.WinningTrades
	r.LosingTrades = s.LosingTrades
}

func meanOrZero(vals []float64) float64 {
	m, err := stats.Mean(vals)
	if err != nil {
		return 0
	}
	return m
}
