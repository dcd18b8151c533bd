package ta

import (
	"errors"
	"fmt"

	"openclaw-agent/internal/types"
)

const (
	DefaultRSIPeriod   = 14
	ShortWindow        = 7
	LongWindow         = 20
	VolumeLookback     = 10
	neutralRSI         = 50.0
	neutralVolumeRatio = 1.0
)

var ErrInsufficientData = errors.New("insufficient data")

// RSI is the simple-average variant: plain means of the last period gains
// and losses, no Wilder smoothing.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return neutralRSI
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100.0
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100.0 - (100.0 / (1.0 + rs))
}

// MovingAverage averages the last min(window, len(closes)) values.
// Short history shrinks the window instead of failing.
func MovingAverage(closes []float64, window int) float64 {
	n := window
	if n > len(closes) {
		n = len(closes)
	}
	if n <= 0 {
		return 0
	}
	return mean(closes[len(closes)-n:])
}

// StrictMovingAverage requires at least window values.
func StrictMovingAverage(closes []float64, window int) (float64, error) {
	if window <= 0 {
		return 0, fmt.Errorf("invalid window %d", window)
	}
	if len(closes) < window {
		return 0, fmt.Errorf("moving average over %d needs %d closes, have %d: %w", window, window, len(closes), ErrInsufficientData)
	}
	return mean(closes[len(closes)-window:]), nil
}

// ChangePct is the percent move between the last two closes.
func ChangePct(closes []float64) float64 {
	if len(closes) < 2 {
		return 0
	}
	prev, cur := closes[len(closes)-2], closes[len(closes)-1]
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}

// VolumeRatio compares the last volume with the mean of up to VolumeLookback
// volumes preceding it.
func VolumeRatio(volumes []float64) float64 {
	if len(volumes) < 2 {
		return neutralVolumeRatio
	}
	last := volumes[len(volumes)-1]
	prior := volumes[:len(volumes)-1]
	if len(prior) > VolumeLookback {
		prior = prior[len(prior)-VolumeLookback:]
	}
	avg := mean(prior)
	if avg == 0 {
		return neutralVolumeRatio
	}
	return last / avg
}

// Snapshot derives the indicator set used by scoring from raw series.
// Moving averages use the lenient contract.
func Snapshot(closes, volumes []float64) types.IndicatorSnapshot {
	return types.IndicatorSnapshot{
		RSI:         RSI(closes, DefaultRSIPeriod),
		MAShort:     MovingAverage(closes, ShortWindow),
		MALong:      MovingAverage(closes, LongWindow),
		ChangePct:   ChangePct(closes),
		VolumeRatio: VolumeRatio(volumes),
	}
}

// SnapshotBars is Snapshot over a bar window.
func SnapshotBars(bars []types.Bar) types.IndicatorSnapshot {
	return Snapshot(types.Closes(bars), types.Volumes(bars))
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
