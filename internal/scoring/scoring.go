// Package scoring turns an indicator snapshot into an opportunity score and
// an advisory signal. The live scanner and the backtest call the same code.
package scoring

import (
	"openclaw-agent/internal/ta"
	"openclaw-agent/internal/types"
)

const (
	MaxScore = 100

	// MinBars is the history ScoreBars needs before it scores at all.
	MinBars = ta.LongWindow

	pointsRSIPullback = 30
	pointsRSIOversold = 20
	pointsTrend       = 25
	pointsVolume      = 20
	pointsMomentum    = 25
)

// Score is additive over four independent conditions, no partial credit.
func Score(s types.IndicatorSnapshot) int {
	score := 0
	switch {
	case s.RSI >= 35 && s.RSI <= 50:
		score += pointsRSIPullback
	case s.RSI >= 30 && s.RSI < 35:
		score += pointsRSIOversold
	}
	if s.MAShort > s.MALong {
		score += pointsTrend
	}
	if s.VolumeRatio > 1.5 {
		score += pointsVolume
	}
	if s.ChangePct > 0 && s.ChangePct < 3 {
		score += pointsMomentum
	}
	return score
}

// Classify is the advisory signal. It is independent of Score and the two
// may disagree.
func Classify(s types.IndicatorSnapshot) types.Signal {
	switch {
	case s.RSI < 30 && s.MAShort > s.MALong:
		return types.SignalBuy
	case s.RSI > 70 && s.MAShort < s.MALong:
		return types.SignalSell
	default:
		return types.SignalHold
	}
}

// ScoreBars scores a bar window, returning 0 when fewer than MinBars bars exist.
func ScoreBars(bars []types.Bar) int {
	if len(bars) < MinBars {
		return 0
	}
	return Score(ta.SnapshotBars(bars))
}
