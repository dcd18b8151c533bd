package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openclaw-agent/internal/types"
)

func TestEvaluate(t *testing.T) {
	p := Default()
	tests := []struct {
		name     string
		plPct    float64
		daysHeld int
		want     types.ExitReason
		closes   bool
	}{
		{"hold", 3, 2, "", false},
		{"take profit at threshold", 15, 1, types.ExitTakeProfit, true},
		{"take profit beats timeout", 15, 10, types.ExitTakeProfit, true},
		{"stop loss at threshold", -10, 1, types.ExitStopLoss, true},
		{"stop loss beats timeout", -10, 10, types.ExitStopLoss, true},
		{"just above stop", -9.99, 9, "", false},
		{"timeout", 0, 10, types.ExitTimeout, true},
		{"timeout past max", 14.9, 30, types.ExitTimeout, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, ok := p.Evaluate(tt.plPct, tt.daysHeld)
			assert.Equal(t, tt.closes, ok)
			assert.Equal(t, tt.want, reason)
		})
	}
}

func TestEvaluatePriceIgnoresAge(t *testing.T) {
	p := Default()
	_, ok := p.EvaluatePrice(1)
	assert.False(t, ok)

	reason, ok := p.EvaluatePrice(PLPct(100, 116))
	assert.True(t, ok)
	assert.Equal(t, types.ExitTakeProfit, reason)
}

func TestSize(t *testing.T) {
	p := Default()

	assert.Equal(t, 15, p.Size(10000, 100), "15% of cash is below a third")
	assert.Equal(t, 0, p.Size(100, 200))
	assert.Equal(t, 0, p.Size(0, 10))
	assert.Equal(t, 0, p.Size(1000, 0))

	wide := Default()
	wide.InvestFraction = 0.5
	assert.Equal(t, 33, wide.Size(10000, 100), "a third caps a larger fraction")
}

func TestPLPct(t *testing.T) {
	assert.InDelta(t, 16.0, PLPct(100, 116), 1e-9)
	assert.InDelta(t, -10.0, PLPct(50, 45), 1e-9)
	assert.Equal(t, 0.0, PLPct(0, 10))
}

func TestDaysHeld(t *testing.T) {
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, DaysHeld(d, d))
	assert.Equal(t, 10, DaysHeld(d, d.AddDate(0, 0, 10)))
	assert.Equal(t, 3, DaysHeld(d.Add(20*time.Hour), d.AddDate(0, 0, 3)))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Default().Validate())

	bad := Default()
	bad.MaxHoldDays = 0
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.InvestFraction = 1.5
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.CashDivisor = 0
	assert.Error(t, bad.Validate())
}
