// Package analyst produces the advisory view of a single symbol.
package analyst

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"openclaw-agent/internal/interfaces"
	"openclaw-agent/internal/logger"
	"openclaw-agent/internal/scoring"
	"openclaw-agent/internal/ta"
	"openclaw-agent/internal/types"
)

var ErrNoData = errors.New("no data for symbol")

const commentarySystem = "You are an expert stock analyst. Analyse the data and give a clear recommendation in a few sentences."

type Analyst struct {
	data         interfaces.MarketData
	commentator  interfaces.Commentator
	lookbackDays int
	now          func() time.Time
}

var _ interfaces.Analyst = (*Analyst)(nil)

// New returns an analyst over data. commentator may be nil.
func New(data interfaces.MarketData, commentator interfaces.Commentator, lookbackDays int) *Analyst {
	if lookbackDays <= 0 {
		lookbackDays = 60
	}
	return &Analyst{data: data, commentator: commentator, lookbackDays: lookbackDays, now: time.Now}
}

func (a *Analyst) Analyze(ctx context.Context, symbol string) (types.Analysis, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return types.Analysis{}, errors.New("symbol is required")
	}
	end := types.Day(a.now())
	bars, err := a.data.Bars(ctx, symbol, end.AddDate(0, 0, -a.lookbackDays), end)
	if err != nil {
		return types.Analysis{}, fmt.Errorf("analyze %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return types.Analysis{}, fmt.Errorf("%w %s", ErrNoData, symbol)
	}

	snap := ta.SnapshotBars(bars)
	out := types.Analysis{
		Symbol:   symbol,
		Price:    bars[len(bars)-1].Close,
		Snapshot: snap,
		Signal:   scoring.Classify(snap),
		Score:    scoring.Score(snap),
	}
	logger.Decision(ctx, symbol, string(out.Signal), out.Score, "analysis", "price", out.Price)

	if a.commentator != nil {
		prompt, _ := json.Marshal(struct {
			Symbol string                  `json:"symbol"`
			Price  float64                 `json:"current_price"`
			Snap   types.IndicatorSnapshot `json:"indicators"`
			Signal types.Signal            `json:"signal"`
		}{symbol, types.Round2(out.Price), snap, out.Signal})
		text, err := a.commentator.Comment(ctx, commentarySystem, fmt.Sprintf("Analyse %s from this data: %s", symbol, prompt))
		if err != nil {
			logger.Warn(ctx, "Commentary unavailable", "symbol", symbol, "error", err)
		} else {
			out.Commentary = text
		}
	}
	return out, nil
}
