package backtest

import (
	"time"

	"openclaw-agent/internal/types"
)

// cursor exposes the prefix of one symbol's bars dated on or before the
// current simulated day. It only moves forward.
type cursor struct {
	bars []types.Bar
	n    int
}

func newCursor(bars []types.Bar) *cursor {
	return &cursor{bars: bars}
}

func (c *cursor) advance(day time.Time) {
	for c.n < len(c.bars) && !types.Day(c.bars[c.n].Date).After(day) {
		c.n++
	}
}

// window is capacity-limited so appends cannot reach unseen bars.
func (c *cursor) window() []types.Bar {
	return c.bars[:c.n:c.n]
}

func (c *cursor) len() int {
	return c.n
}

func (c *cursor) last() (types.Bar, bool) {
	if c.n == 0 {
		return types.Bar{}, false
	}
	return c.bars[c.n-1], true
}

func (c *cursor) hasBarOn(day time.Time) bool {
	b, ok := c.last()
	return ok && types.Day(b.Date).Equal(day)
}
