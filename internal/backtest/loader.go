package backtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"openclaw-agent/internal/interfaces"
	"openclaw-agent/internal/logger"
	"openclaw-agent/internal/types"
)

const defaultFetchConcurrency = 4

// LoadBars fetches every symbol in parallel. A failed fetch is logged and
// yields no bars for that symbol; only cancellation fails the load.
func LoadBars(ctx context.Context, md interfaces.MarketData, symbols []string, start, end time.Time, concurrency int) (map[string][]types.Bar, error) {
	if concurrency <= 0 {
		concurrency = defaultFetchConcurrency
	}

	var mu sync.Mutex
	out := make(map[string][]types.Bar, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, sym := range symbols {
		g.Go(func() error {
			bars, err := md.Bars(gctx, sym, start, end)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn(gctx, "Bar fetch failed, skipping symbol", "symbol", sym, "error", err)
				return nil
			}
			sorted := sortedBars(bars)

			mu.Lock()
			out[sym] = sorted
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// sortedBars returns a copy of bars in ascending date order.
func sortedBars(bars []types.Bar) []types.Bar {
	sorted := make([]types.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	return sorted
}
