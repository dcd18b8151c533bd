// Package static is an offline broker: synthetic daily bars seeded per
// symbol and an in-memory paper account.
package static

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"openclaw-agent/internal/interfaces"
	"openclaw-agent/internal/types"
)

// epoch anchors every synthetic series so any range of the same symbol
// yields the same prices.
var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

type holding struct {
	qty  int
	cost float64
}

type Broker struct {
	seed  int64
	now   func() time.Time
	mu    sync.Mutex
	cash  float64
	start float64
	book  map[string]*holding
}

var _ interfaces.Broker = (*Broker)(nil)

func New(seed int64, cash float64) *Broker {
	return &Broker{
		seed:  seed,
		now:   time.Now,
		cash:  cash,
		start: cash,
		book:  make(map[string]*holding),
	}
}

// series returns weekday closes and volumes from epoch through end.
func (b *Broker) series(symbol string, end time.Time) []types.Bar {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	r := rand.New(rand.NewSource(b.seed ^ int64(h.Sum64())))

	price := 20 + r.Float64()*280
	drift := (r.Float64() - 0.45) * 0.002
	vol := 0.01 + r.Float64()*0.02
	baseVolume := 1e6 * (1 + r.Float64()*20)

	var out []types.Bar
	for d := epoch; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		price *= math.Exp(drift + vol*r.NormFloat64())
		v := baseVolume * math.Exp(0.4*r.NormFloat64())
		out = append(out, types.Bar{Date: d, Close: math.Round(price*100) / 100, Volume: math.Round(v)})
	}
	return out
}

func (b *Broker) Bars(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error) {
	start, end = types.Day(start), types.Day(end)
	if end.Before(epoch) {
		return nil, nil
	}
	all := b.series(symbol, end)
	i := sort.Search(len(all), func(i int) bool { return !all[i].Date.Before(start) })
	return all[i:], nil
}

func (b *Broker) LTP(ctx context.Context, symbol string) (float64, error) {
	bars := b.series(symbol, types.Day(b.now()))
	if len(bars) == 0 {
		return 0, fmt.Errorf("no price for %s", symbol)
	}
	return bars[len(bars)-1].Close, nil
}

// PlaceOrder fills immediately at the last close.
func (b *Broker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if req.Qty <= 0 {
		return types.OrderResp{}, fmt.Errorf("order %s: quantity must be positive, got %d", req.Symbol, req.Qty)
	}
	price, err := b.LTP(ctx, req.Symbol)
	if err != nil {
		return types.OrderResp{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	h := b.book[req.Symbol]
	switch req.Side {
	case types.SideBuy:
		cost := price * float64(req.Qty)
		if cost > b.cash {
			return types.OrderResp{Status: "rejected", Message: "insufficient buying power"}, fmt.Errorf("order %s: insufficient buying power", req.Symbol)
		}
		if h == nil {
			h = &holding{}
			b.book[req.Symbol] = h
		}
		h.cost += cost
		h.qty += req.Qty
		b.cash -= cost
	case types.SideSell:
		if h == nil || h.qty < req.Qty {
			return types.OrderResp{Status: "rejected", Message: "insufficient qty"}, fmt.Errorf("order %s: insufficient qty", req.Symbol)
		}
		avg := h.cost / float64(h.qty)
		h.qty -= req.Qty
		h.cost -= avg * float64(req.Qty)
		b.cash += price * float64(req.Qty)
		if h.qty == 0 {
			delete(b.book, req.Symbol)
		}
	default:
		return types.OrderResp{}, fmt.Errorf("order %s: unknown side %q", req.Symbol, req.Side)
	}
	return types.OrderResp{OrderID: uuid.NewString(), Status: "filled"}, nil
}

func (b *Broker) Positions(ctx context.Context) ([]types.BrokerPosition, error) {
	b.mu.Lock()
	symbols := make([]string, 0, len(b.book))
	snapshot := make(map[string]holding, len(b.book))
	for s, h := range b.book {
		symbols = append(symbols, s)
		snapshot[s] = *h
	}
	b.mu.Unlock()
	sort.Strings(symbols)

	out := make([]types.BrokerPosition, 0, len(symbols))
	for _, s := range symbols {
		h := snapshot[s]
		price, err := b.LTP(ctx, s)
		if err != nil {
			return nil, err
		}
		avg := h.cost / float64(h.qty)
		pl := (price - avg) * float64(h.qty)
		out = append(out, types.BrokerPosition{
			Symbol:          s,
			Qty:             h.qty,
			AvgEntryPrice:   avg,
			CurrentPrice:    price,
			UnrealizedPL:    pl,
			UnrealizedPLPct: (price - avg) / avg * 100,
		})
	}
	return out, nil
}

func (b *Broker) Account(ctx context.Context) (types.Account, error) {
	positions, err := b.Positions(ctx)
	if err != nil {
		return types.Account{}, err
	}
	b.mu.Lock()
	cash := b.cash
	b.mu.Unlock()

	equity := cash
	for _, p := range positions {
		equity += p.CurrentPrice * float64(p.Qty)
	}
	return types.Account{Cash: cash, Equity: equity, BuyingPower: cash, LastEquity: b.start}, nil
}
