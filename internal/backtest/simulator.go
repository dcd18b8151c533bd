// Package backtest replays the entry and exit rules day by day over
// historical bars and reports the outcome.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"openclaw-agent/internal/logger"
	"openclaw-agent/internal/policy"
	"openclaw-agent/internal/regime"
	"openclaw-agent/internal/scoring"
	"openclaw-agent/internal/types"
)

// ErrNoData is returned when no symbol has enough history for a run.
var ErrNoData = errors.New("no symbols with sufficient data")

// Config holds the entry, exit and sizing rules of one simulation.
type Config struct {
	InitialCapital   float64
	MaxPositions     int
	MaxEntriesPerDay int
	MinScore         int
	// MinCashFraction of initial capital must remain as cash before entries.
	MinCashFraction float64
	// MinBars qualifying bars make a symbol eligible on a given day.
	MinBars int
	// MinHistory bars over the whole range are needed to include a symbol.
	MinHistory int
	Policy     policy.Policy
	Regime     regime.Filter
}

// DefaultConfig is 100k of capital, at most 5 open positions and 2 entries
// a day, a minimum score of 50 and the default policy and regime filter.
func DefaultConfig() Config {
	return Config{
		InitialCapital:   100000,
		MaxPositions:     5,
		MaxEntriesPerDay: 2,
		MinScore:         50,
		MinCashFraction:  0.1,
		MinBars:          scoring.MinBars,
		MinHistory:       30,
		Policy:           policy.Default(),
		Regime:           regime.New(regime.DefaultWindow),
	}
}

// Validate rejects non-positive limits and histories shorter than the
// scorer needs.
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got %v", c.InitialCapital)
	}
	if c.MaxPositions <= 0 || c.MaxEntriesPerDay <= 0 {
		return fmt.Errorf("max positions (%d) and entries per day (%d) must be positive", c.MaxPositions, c.MaxEntriesPerDay)
	}
	if c.MinBars < scoring.MinBars {
		return fmt.Errorf("min bars must be at least %d, got %d", scoring.MinBars, c.MinBars)
	}
	if c.Regime.Window <= 0 {
		return fmt.Errorf("regime window must be positive, got %d", c.Regime.Window)
	}
	if c.MinHistory < c.MinBars {
		return fmt.Errorf("min history (%d) must not be below min bars (%d)", c.MinHistory, c.MinBars)
	}
	return c.Policy.Validate()
}

// Input is fully materialised history. Symbols fixes the iteration order
// used for exits, ranking ties and valuation.
type Input struct {
	Symbols   []string
	Bars      map[string][]types.Bar
	Benchmark []types.Bar
}

// Outcome is the terminal state of a run.
type Outcome struct {
	Symbols []string
	Trades  []types.Trade
	Equity  []types.EquityPoint
	Cash    float64
	Open    []types.Position
}

// Simulator replays a fixed configuration over any number of inputs. It
// holds no per-run state.
type Simulator struct {
	cfg Config
}

// NewSimulator validates cfg.
func NewSimulator(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulator config: %w", err)
	}
	return &Simulator{cfg: cfg}, nil
}

func (s *Simulator) Config() Config {
	return s.cfg
}

// Included returns the symbols of in with at least MinHistory bars, in
// order. A repeated symbol is kept at its first position only.
func (s *Simulator) Included(in Input) []string {
	var out []string
	seen := make(map[string]struct{}, len(in.Symbols))
	for _, sym := range in.Symbols {
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		if len(in.Bars[sym]) >= s.cfg.MinHistory {
			out = append(out, sym)
		}
	}
	return out
}

type candidate struct {
	symbol string
	score  int
	price  float64
}

// Run replays every distinct date of the included symbols. It is single
// threaded and deterministic for identical input.
func (s *Simulator) Run(ctx context.Context, in Input) (*Outcome, error) {
	symbols := s.Included(in)
	if len(symbols) == 0 {
		return nil, ErrNoData
	}

	cursors := make(map[string]*cursor, len(symbols))
	for _, sym := range symbols {
		cursors[sym] = newCursor(in.Bars[sym])
	}
	bench := newCursor(in.Benchmark)
	state := newState(s.cfg.InitialCapital)

	for _, day := range tradingDays(in.Bars, symbols) {
		for _, c := range cursors {
			c.advance(day)
		}
		bench.advance(day)

		eligible := func(sym string) bool { return cursors[sym].len() >= s.cfg.MinBars }

		for _, sym := range symbols {
			pos, held := state.Positions[sym]
			if !held || !eligible(sym) || !cursors[sym].hasBarOn(day) {
				continue
			}
			bar, _ := cursors[sym].last()
			pl := policy.PLPct(pos.BuyPrice, bar.Close)
			reason, exit := s.cfg.Policy.Evaluate(pl, policy.DaysHeld(pos.BuyDate, day))
			if !exit {
				continue
			}
			if _, err := state.close(sym, bar.Close, day, reason); err != nil {
				return nil, err
			}
			logger.Debug(ctx, "Simulated exit", "symbol", sym, "date", day.Format(types.DateLayout), "reason", reason, "pl_pct", pl)
		}

		if s.entriesAllowed(state, bench) {
			picks := s.rank(symbols, cursors, state, eligible)
			slots := s.cfg.MaxPositions - len(state.Positions)
			if slots > s.cfg.MaxEntriesPerDay {
				slots = s.cfg.MaxEntriesPerDay
			}
			if len(picks) > slots {
				picks = picks[:slots]
			}
			for _, p := range picks {
				qty := s.cfg.Policy.Size(state.Cash, p.price)
				if qty <= 0 {
					continue
				}
				if err := state.open(p.symbol, qty, p.price, day); err != nil {
					return nil, err
				}
				logger.Debug(ctx, "Simulated entry", "symbol", p.symbol, "date", day.Format(types.DateLayout), "score", p.score, "qty", qty, "price", p.price)
			}
		}

		value := state.Cash
		for _, sym := range symbols {
			pos, held := state.Positions[sym]
			if !held {
				continue
			}
			bar, _ := cursors[sym].last()
			value += float64(pos.Quantity) * bar.Close
		}
		state.record(day, value)
	}

	out := &Outcome{
		Symbols: symbols,
		Trades:  state.Trades,
		Equity:  state.Equity,
		Cash:    state.Cash,
	}
	for _, sym := range symbols {
		if pos, held := state.Positions[sym]; held {
			out.Open = append(out.Open, pos)
		}
	}
	logger.Info(ctx, "Simulation finished",
		"symbols", len(symbols),
		"days", len(state.Equity),
		"trades", len(state.Trades),
		"open_positions", len(out.Open),
	)
	return out, nil
}

func (s *Simulator) entriesAllowed(state *SimulationState, bench *cursor) bool {
	return s.cfg.Regime.Bullish(bench.window()) &&
		state.Cash > s.cfg.MinCashFraction*s.cfg.InitialCapital &&
		len(state.Positions) < s.cfg.MaxPositions
}

// rank scores eligible unheld symbols, keeps those at or above MinScore and
// orders them by score, ties in watchlist order.
func (s *Simulator) rank(symbols []string, cursors map[string]*cursor, state *SimulationState, eligible func(string) bool) []candidate {
	var out []candidate
	for _, sym := range symbols {
		if _, held := state.Positions[sym]; held || !eligible(sym) {
			continue
		}
		window := cursors[sym].window()
		score := scoring.ScoreBars(window)
		if score < s.cfg.MinScore {
			continue
		}
		out = append(out, candidate{symbol: sym, score: score, price: window[len(window)-1].Close})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

func tradingDays(bars map[string][]types.Bar, symbols []string) []time.Time {
	seen := make(map[time.Time]struct{})
	var days []time.Time
	for _, sym := range symbols {
		for _, b := range bars[sym] {
			d := types.Day(b.Date)
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
