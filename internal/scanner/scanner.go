// Package scanner runs the live scans: score the watchlist in the morning
// and buy the best, check exits in the evening.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"openclaw-agent/internal/interfaces"
	"openclaw-agent/internal/logger"
	"openclaw-agent/internal/policy"
	"openclaw-agent/internal/regime"
	"openclaw-agent/internal/report"
	"openclaw-agent/internal/scoring"
	"openclaw-agent/internal/ta"
	"openclaw-agent/internal/tradelog"
	"openclaw-agent/internal/trader"
	"openclaw-agent/internal/types"
)

var ErrTooFewBars = errors.New("too few bars to scan")

type Config struct {
	Watchlist    []string
	Benchmark    string
	LookbackDays int
	MinBars      int
	// Report results are listed in the morning message; the first MaxBuys
	// with at least MinScore are bought at BuyQty shares each.
	Report      int
	MaxBuys     int
	MinScore    int
	BuyQty      int
	Concurrency int
	Policy      policy.Policy
	Regime      regime.Filter
}

func DefaultConfig(watchlist []string) Config {
	return Config{
		Watchlist:    watchlist,
		Benchmark:    "SPY",
		LookbackDays: 60,
		MinBars:      10,
		Report:       5,
		MaxBuys:      3,
		MinScore:     50,
		BuyQty:       2,
		Concurrency:  4,
		Policy:       policy.Default(),
		Regime:       regime.New(regime.DefaultWindow),
	}
}

// DecisionJournal records scored symbols. *tradelog.Journal satisfies it.
type DecisionJournal interface {
	AppendDecision(e tradelog.DecisionEntry) error
}

type Scanner struct {
	cfg       Config
	broker    interfaces.Broker
	exec      *trader.Executor
	notifier  interfaces.Notifier
	decisions DecisionJournal
	now       func() time.Time
}

var _ interfaces.Scanner = (*Scanner)(nil)

type Option func(*Scanner)

func WithDecisionJournal(j DecisionJournal) Option {
	return func(s *Scanner) { s.decisions = j }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

func New(cfg Config, broker interfaces.Broker, exec *trader.Executor, notifier interfaces.Notifier, opts ...Option) *Scanner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	s := &Scanner{cfg: cfg, broker: broker, exec: exec, notifier: notifier, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scanner) window() (time.Time, time.Time) {
	end := types.Day(s.now())
	return end.AddDate(0, 0, -s.cfg.LookbackDays), end
}

// ScanSymbol scores the most recent bars of symbol. Moving averages shrink
// to the available history.
func (s *Scanner) ScanSymbol(ctx context.Context, symbol string) (types.ScanResult, error) {
	start, end := s.window()
	bars, err := s.broker.Bars(ctx, symbol, start, end)
	if err != nil {
		return types.ScanResult{}, fmt.Errorf("scan %s: %w", symbol, err)
	}
	if len(bars) < s.cfg.MinBars {
		return types.ScanResult{}, fmt.Errorf("scan %s: %d bars: %w", symbol, len(bars), ErrTooFewBars)
	}

	snap := ta.SnapshotBars(bars)
	last := bars[len(bars)-1]
	res := types.ScanResult{
		Symbol:   symbol,
		Price:    last.Close,
		Snapshot: snap,
		Score:    scoring.Score(snap),
		Signal:   scoring.Classify(snap),
		AsOf:     last.Date,
	}

	logger.Decision(ctx, symbol, string(res.Signal), res.Score, "scan", "price", res.Price, "rsi", snap.RSI)
	if s.decisions != nil {
		err := s.decisions.AppendDecision(tradelog.DecisionEntry{
			Symbol: symbol,
			Signal: string(res.Signal),
			Score:  res.Score,
			Price:  res.Price,
			Reason: "scan",
			Indicators: map[string]float64{
				"RSI":          snap.RSI,
				"MA7":          snap.MAShort,
				"MA20":         snap.MALong,
				"CHANGE_PCT":   snap.ChangePct,
				"VOLUME_RATIO": snap.VolumeRatio,
			},
		})
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to journal decision", err, "symbol", symbol)
		}
	}
	return res, nil
}

// ScanWatchlist scans every symbol, skipping those that fail, and returns
// results ranked by score descending. Ties keep watchlist order.
func (s *Scanner) ScanWatchlist(ctx context.Context) ([]types.ScanResult, error) {
	slots := make([]*types.ScanResult, len(s.cfg.Watchlist))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, symbol := range s.cfg.Watchlist {
		g.Go(func() error {
			res, err := s.ScanSymbol(gctx, symbol)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn(gctx, "Symbol skipped", "symbol", symbol, "error", err)
				return nil
			}
			slots[i] = &res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]types.ScanResult, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			out = append(out, *r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// MarketBullish applies the regime filter to the benchmark. Fetch
// failures fail open.
func (s *Scanner) MarketBullish(ctx context.Context) bool {
	start, end := s.window()
	bars, err := s.broker.Bars(ctx, s.cfg.Benchmark, start, end)
	if err != nil {
		logger.Warn(ctx, "Benchmark unavailable, assuming bullish", "benchmark", s.cfg.Benchmark, "error", err)
		return true
	}
	return s.cfg.Regime.Bullish(bars)
}

type MorningReport struct {
	Bullish bool               `json:"bullish"`
	Results []types.ScanResult `json:"results"`
	Bought  []string           `json:"bought"`
}

// MorningScan reports the regime, then either the portfolio (bearish) or
// the top results and the automatic buys.
func (s *Scanner) MorningScan(ctx context.Context) (*MorningReport, error) {
	rep := &MorningReport{Bullish: s.MarketBullish(ctx)}
	s.send(ctx, report.MarketRegime(rep.Bullish))

	if !rep.Bullish {
		logger.Risk(ctx, s.cfg.Benchmark, "REGIME_BEARISH")
		positions, err := s.broker.Positions(ctx)
		if err != nil {
			return rep, fmt.Errorf("morning scan positions: %w", err)
		}
		s.send(ctx, report.PortfolioPL("📋 *Current portfolio:*", positions))
		return rep, nil
	}

	results, err := s.ScanWatchlist(ctx)
	if err != nil {
		return rep, err
	}
	if len(results) > s.cfg.Report {
		results = results[:s.cfg.Report]
	}
	rep.Results = results
	s.send(ctx, report.Scan(results, s.cfg.Report))

	for i, r := range results {
		if i >= s.cfg.MaxBuys {
			break
		}
		if r.Score < s.cfg.MinScore {
			continue
		}
		if _, err := s.exec.Buy(ctx, r.Symbol, s.cfg.BuyQty, r.Price, fmt.Sprintf("score %d", r.Score), "SCAN"); err != nil {
			continue
		}
		rep.Bought = append(rep.Bought, r.Symbol)
	}
	if len(rep.Bought) > 0 {
		s.send(ctx, report.Bought(rep.Bought, s.cfg.BuyQty))
	}
	return rep, nil
}

type EveningReport struct {
	Positions []types.BrokerPosition `json:"positions"`
	Sold      []string               `json:"sold"`
	TotalPL   float64                `json:"total_pl"`
}

// EveningScan sells positions at take-profit or stop-loss. Holding time is
// not considered: broker positions carry no entry date.
func (s *Scanner) EveningScan(ctx context.Context) (*EveningReport, error) {
	positions, err := s.broker.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("evening scan positions: %w", err)
	}
	rep := &EveningReport{Positions: positions}

	for _, p := range positions {
		rep.TotalPL += p.UnrealizedPL
		reason, ok := s.cfg.Policy.EvaluatePrice(p.UnrealizedPLPct)
		if !ok || p.Qty <= 0 {
			continue
		}
		logger.Risk(ctx, p.Symbol, string(reason), "pl_pct", p.UnrealizedPLPct)
		if _, err := s.exec.Sell(ctx, p.Symbol, p.Qty, p.CurrentPrice, string(reason), "EXIT"); err != nil {
			continue
		}
		rep.Sold = append(rep.Sold, fmt.Sprintf("%s (%s %s)", p.Symbol, reason, report.Pct(p.UnrealizedPLPct, 1)))
	}

	s.send(ctx, report.Evening(positions, rep.Sold))
	return rep, nil
}

func (s *Scanner) send(ctx context.Context, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, text); err != nil {
		logger.ErrorWithErr(ctx, "Failed to deliver scan report", err)
	}
}
