// Package regime gates new entries on the benchmark trend.
package regime

import (
	"sort"
	"time"

	"openclaw-agent/internal/ta"
	"openclaw-agent/internal/types"
)

// DefaultWindow is the benchmark moving-average length.
const DefaultWindow = ta.LongWindow

// Filter gates new entries on the benchmark trend.
type Filter struct {
	Window int
}

// New returns a filter over window closes, DefaultWindow when window is
// not positive.
func New(window int) Filter {
	if window <= 0 {
		window = DefaultWindow
	}
	return Filter{Window: window}
}

// Bullish reports last close > mean of the last Window closes. Fewer than
// Window bars fails open: missing data never blocks trading.
func (f Filter) Bullish(bars []types.Bar) bool {
	if len(bars) < f.Window {
		return true
	}
	closes := types.Closes(bars[len(bars)-f.Window:])
	ma, err := ta.StrictMovingAverage(closes, f.Window)
	if err != nil {
		return true
	}
	return closes[len(closes)-1] > ma
}

// BullishOn restricts bars (ascending by date) to those dated on or before
// date and evaluates Bullish over them.
func (f Filter) BullishOn(bars []types.Bar, date time.Time) bool {
	return f.Bullish(Until(bars, date))
}

// Until returns the prefix of bars dated on or before date.
func Until(bars []types.Bar, date time.Time) []types.Bar {
	day := types.Day(date)
	n := sort.Search(len(bars), func(i int) bool {
		return types.Day(bars[i].Date).After(day)
	})
	return bars[:n]
}
