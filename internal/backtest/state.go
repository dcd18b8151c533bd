package backtest

import (
	"fmt"
	"time"

	"openclaw-agent/internal/policy"
	"openclaw-agent/internal/types"
)

// SimulationState is owned by a single run.
type SimulationState struct {
	Cash      float64
	Positions map[string]types.Position
	Trades    []types.Trade
	Equity    []types.EquityPoint
}

func newState(capital float64) *SimulationState {
	return &SimulationState{
		Cash:      capital,
		Positions: make(map[string]types.Position),
	}
}

func (s *SimulationState) open(symbol string, qty int, price float64, day time.Time) error {
	if qty <= 0 {
		return fmt.Errorf("open %s: non-positive quantity %d", symbol, qty)
	}
	if _, held := s.Positions[symbol]; held {
		return fmt.Errorf("open %s: already held", symbol)
	}
	s.Cash -= float64(qty) * price
	s.Positions[symbol] = types.Position{Symbol: symbol, Quantity: qty, BuyPrice: price, BuyDate: day}
	return nil
}

// close credits the sale, appends the trade and drops the position on the same day.
func (s *SimulationState) close(symbol string, price float64, day time.Time, reason types.ExitReason) (types.Trade, error) {
	pos, held := s.Positions[symbol]
	if !held {
		return types.Trade{}, fmt.Errorf("close %s: not held", symbol)
	}
	s.Cash += float64(pos.Quantity) * price
	t := types.Trade{
		Symbol:    symbol,
		BuyDate:   pos.BuyDate,
		SellDate:  day,
		BuyPrice:  pos.BuyPrice,
		SellPrice: price,
		Quantity:  pos.Quantity,
		PLPct:     policy.PLPct(pos.BuyPrice, price),
		Reason:    reason,
	}
	s.Trades = append(s.Trades, t)
	delete(s.Positions, symbol)
	return t, nil
}

func (s *SimulationState) record(day time.Time, value float64) {
	s.Equity = append(s.Equity, types.EquityPoint{Date: day, Value: value})
}
