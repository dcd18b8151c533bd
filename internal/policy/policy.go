// Package policy holds the stateless exit and sizing rules shared by the
// simulator and the evening scan.
package policy

import (
	"fmt"
	"math"
	"time"

	"openclaw-agent/internal/types"
)

// Policy holds the exit thresholds and entry sizing. StopLossPct is a
// positive magnitude.
type Policy struct {
	TakeProfitPct float64 `yaml:"take_profit_pct"`
	StopLossPct   float64 `yaml:"stop_loss_pct"`
	MaxHoldDays   int     `yaml:"max_hold_days"`
	// InvestFraction and CashDivisor bound the capital one entry may take:
	// min(cash*InvestFraction, cash/CashDivisor).
	InvestFraction float64 `yaml:"invest_fraction"`
	CashDivisor    float64 `yaml:"cash_divisor"`
}

// Default is +15% take profit, -10% stop loss and a 10 day hold limit.
func Default() Policy {
	return Policy{
		TakeProfitPct:  15,
		StopLossPct:    10,
		MaxHoldDays:    10,
		InvestFraction: 0.15,
		CashDivisor:    3,
	}
}

// Validate rejects non-positive thresholds and sizing outside its range.
func (p Policy) Validate() error {
	if p.TakeProfitPct <= 0 {
		return fmt.Errorf("take_profit_pct must be positive, got %v", p.TakeProfitPct)
	}
	if p.StopLossPct <= 0 {
		return fmt.Errorf("stop_loss_pct must be positive, got %v", p.StopLossPct)
	}
	if p.MaxHoldDays <= 0 {
		return fmt.Errorf("max_hold_days must be positive, got %d", p.MaxHoldDays)
	}
	if p.InvestFraction <= 0 || p.InvestFraction > 1 {
		return fmt.Errorf("invest_fraction must be in (0,1], got %v", p.InvestFraction)
	}
	if p.CashDivisor < 1 {
		return fmt.Errorf("cash_divisor must be >= 1, got %v", p.CashDivisor)
	}
	return nil
}

// Evaluate decides whether a position should close. Precedence is
// take_profit, then stop_loss, then timeout.
func (p Policy) Evaluate(plPct float64, daysHeld int) (types.ExitReason, bool) {
	if reason, ok := p.EvaluatePrice(plPct); ok {
		return reason, true
	}
	if daysHeld >= p.MaxHoldDays {
		return types.ExitTimeout, true
	}
	return "", false
}

// EvaluatePrice applies only the price thresholds.
func (p Policy) EvaluatePrice(plPct float64) (types.ExitReason, bool) {
	switch {
	case plPct >= p.TakeProfitPct:
		return types.ExitTakeProfit, true
	case plPct <= -p.StopLossPct:
		return types.ExitStopLoss, true
	}
	return "", false
}

// Size returns the whole-share quantity for a new entry. Zero means skip.
func (p Policy) Size(cash, price float64) int {
	if cash <= 0 || price <= 0 {
		return 0
	}
	invest := math.Min(cash*p.InvestFraction, cash/p.CashDivisor)
	return int(math.Floor(invest / price))
}

// PLPct is the percent gain of price over cost.
func PLPct(cost, price float64) float64 {
	if cost == 0 {
		return 0
	}
	return (price - cost) / cost * 100
}

// DaysHeld counts calendar days between two dates.
func DaysHeld(from, to time.Time) int {
	return int(types.Day(to).Sub(types.Day(from)).Hours() / 24)
}
