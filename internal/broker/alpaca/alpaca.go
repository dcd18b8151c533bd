package alpaca

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"openclaw-agent/internal/api"
	"openclaw-agent/internal/interfaces"
	"openclaw-agent/internal/logger"
	"openclaw-agent/internal/types"
)

const (
	DefaultTradingURL = "https://paper-api.alpaca.markets"
	DefaultDataURL    = "https://data.alpaca.markets"
	DefaultFeed       = "iex"
	barsPageLimit     = 1000
)

var ErrMissingCredentials = errors.New("missing ALPACA_API_KEY / ALPACA_SECRET_KEY")

type Params struct {
	Mode       string // DRY_RUN or LIVE
	KeyID      string
	Secret     string
	TradingURL string
	DataURL    string
	Feed       string
	CacheTTL   time.Duration
	HTTPClient *http.Client
}

type Alpaca struct {
	p       Params
	trading *api.Client
	data    *api.Client
	cache   *barCache
	newID   func() string
}

var _ interfaces.Broker = (*Alpaca)(nil)

func New(p Params) (*Alpaca, error) {
	if p.KeyID == "" || p.Secret == "" {
		return nil, ErrMissingCredentials
	}
	if p.TradingURL == "" {
		p.TradingURL = DefaultTradingURL
	}
	if p.DataURL == "" {
		p.DataURL = DefaultDataURL
	}
	if p.Feed == "" {
		p.Feed = DefaultFeed
	}

	opts := []api.ClientOption{api.WithHeaders(api.AlpacaHeaders(p.KeyID, p.Secret)), api.WithLogging(true)}
	if p.HTTPClient != nil {
		opts = append(opts, api.WithHTTPClient(p.HTTPClient))
	}
	return &Alpaca{
		p:       p,
		trading: api.NewClient(append(opts, api.WithBaseURL(strings.TrimRight(p.TradingURL, "/")))...),
		data:    api.NewClient(append(opts, api.WithBaseURL(strings.TrimRight(p.DataURL, "/")))...),
		cache:   newBarCache(p.CacheTTL),
		newID:   uuid.NewString,
	}, nil
}

type barDTO struct {
	T string  `json:"t"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

// Bars pages through daily bars for [start, end].
func (a *Alpaca) Bars(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error) {
	start, end = types.Day(start), types.Day(end)
	if bars, ok := a.cache.get(symbol, start, end); ok {
		return bars, nil
	}

	var out []types.Bar
	pageToken := ""
	for {
		q := url.Values{
			"timeframe": {"1Day"},
			"start":     {start.Format(types.DateLayout)},
			"end":       {end.Format(types.DateLayout)},
			"limit":     {strconv.Itoa(barsPageLimit)},
			"feed":      {a.p.Feed},
		}
		if pageToken != "" {
			q.Set("page_token", pageToken)
		}
		resp, err := a.data.DoWithRetry(
			api.NewRequest(http.MethodGet, "/v2/stocks/"+url.PathEscape(symbol)+"/bars").WithContext(ctx).WithQuery(q),
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("fetch bars %s: %w", symbol, err)
		}
		var page struct {
			Bars          []barDTO `json:"bars"`
			NextPageToken *string  `json:"next_page_token"`
		}
		if err := resp.ParseJSON(&page); err != nil {
			return nil, fmt.Errorf("decode bars %s: %w", symbol, err)
		}
		for _, b := range page.Bars {
			ts, err := time.Parse(time.RFC3339, b.T)
			if err != nil {
				return nil, fmt.Errorf("bar time %q for %s: %w", b.T, symbol, err)
			}
			out = append(out, types.Bar{Date: types.Day(ts), Close: b.C, Volume: b.V})
		}
		if page.NextPageToken == nil || *page.NextPageToken == "" {
			break
		}
		pageToken = *page.NextPageToken
	}

	a.cache.put(symbol, start, end, out)
	return out, nil
}

func (a *Alpaca) LTP(ctx context.Context, symbol string) (float64, error) {
	resp, err := a.data.GET(ctx, "/v2/stocks/"+url.PathEscape(symbol)+"/trades/latest", url.Values{"feed": {a.p.Feed}})
	if err != nil {
		return 0, fmt.Errorf("latest trade %s: %w", symbol, err)
	}
	var r struct {
		Trade struct {
			P float64 `json:"p"`
		} `json:"trade"`
	}
	if err := resp.ParseJSON(&r); err != nil {
		return 0, err
	}
	return r.Trade.P, nil
}

type orderBody struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"time_in_force"`
	ClientOrderID string `json:"client_order_id"`
}

// PlaceOrder submits a market day order. DRY_RUN never reaches the API.
func (a *Alpaca) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if req.Qty <= 0 {
		return types.OrderResp{}, fmt.Errorf("order %s: quantity must be positive, got %d", req.Symbol, req.Qty)
	}
	if req.Side != types.SideBuy && req.Side != types.SideSell {
		return types.OrderResp{}, fmt.Errorf("order %s: unknown side %q", req.Symbol, req.Side)
	}
	clientID := a.newID()
	if req.Tag != "" {
		clientID = req.Tag + "-" + clientID
	}

	if a.p.Mode == "DRY_RUN" {
		logger.Info(ctx, "Dry-run order", "symbol", req.Symbol, "side", req.Side, "qty", req.Qty)
		return types.OrderResp{OrderID: "SIM-" + clientID, Status: "SIMULATED", Message: "dry-run"}, nil
	}

	resp, err := a.trading.POST(ctx, "/v2/orders", orderBody{
		Symbol:        strings.ToUpper(req.Symbol),
		Qty:           strconv.Itoa(req.Qty),
		Side:          string(req.Side),
		Type:          "market",
		TimeInForce:   "day",
		ClientOrderID: clientID,
	})
	if err != nil {
		return types.OrderResp{}, fmt.Errorf("place order %s: %w", req.Symbol, err)
	}
	var r struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := resp.ParseJSON(&r); err != nil {
		return types.OrderResp{}, err
	}
	return types.OrderResp{OrderID: r.ID, Status: r.Status}, nil
}

type positionDTO struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	AvgEntryPrice string `json:"avg_entry_price"`
	CurrentPrice  string `json:"current_price"`
	UnrealizedPL  string `json:"unrealized_pl"`
	UnrealizedPLP string `json:"unrealized_plpc"`
}

func (a *Alpaca) Positions(ctx context.Context) ([]types.BrokerPosition, error) {
	resp, err := a.trading.GET(ctx, "/v2/positions", nil)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	var dtos []positionDTO
	if err := resp.ParseJSON(&dtos); err != nil {
		return nil, err
	}
	out := make([]types.BrokerPosition, 0, len(dtos))
	for _, d := range dtos {
		qty, _ := strconv.ParseFloat(d.Qty, 64)
		out = append(out, types.BrokerPosition{
			Symbol:          d.Symbol,
			Qty:             int(qty),
			AvgEntryPrice:   num(d.AvgEntryPrice),
			CurrentPrice:    num(d.CurrentPrice),
			UnrealizedPL:    num(d.UnrealizedPL),
			UnrealizedPLPct: num(d.UnrealizedPLP) * 100,
		})
	}
	return out, nil
}

func (a *Alpaca) Account(ctx context.Context) (types.Account, error) {
	resp, err := a.trading.GET(ctx, "/v2/account", nil)
	if err != nil {
		return types.Account{}, fmt.Errorf("get account: %w", err)
	}
	var r struct {
		Cash        string `json:"cash"`
		Equity      string `json:"equity"`
		BuyingPower string `json:"buying_power"`
		LastEquity  string `json:"last_equity"`
	}
	if err := resp.ParseJSON(&r); err != nil {
		return types.Account{}, err
	}
	acct := types.Account{
		Cash:        num(r.Cash),
		Equity:      num(r.Equity),
		BuyingPower: num(r.BuyingPower),
		LastEquity:  num(r.LastEquity),
	}
	if r.LastEquity == "" {
		acct.LastEquity = acct.Equity
	}
	return acct, nil
}

// num parses Alpaca's decimal strings; empty or malformed is 0.
func num(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
