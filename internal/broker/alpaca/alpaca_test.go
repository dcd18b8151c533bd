package alpaca

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openclaw-agent/internal/types"
)

func newTestBroker(t *testing.T, mode string, h http.Handler) *Alpaca {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	a, err := New(Params{Mode: mode, KeyID: "k", Secret: "s", TradingURL: srv.URL, DataURL: srv.URL, CacheTTL: time.Minute})
	require.NoError(t, err)
	a.newID = func() string { return "fixed-id" }
	return a
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Params{KeyID: "k"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestBarsPaginatesAndCaches(t *testing.T) {
	var hits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/stocks/AAPL/bars", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "k", r.Header.Get("APCA-API-KEY-ID"))
		assert.Equal(t, "1Day", r.URL.Query().Get("timeframe"))
		assert.Equal(t, "2024-08-01", r.URL.Query().Get("start"))
		if r.URL.Query().Get("page_token") == "" {
			_, _ = w.Write([]byte(`{"bars":[{"t":"2024-08-01T04:00:00Z","c":218.36,"v":100},{"t":"2024-08-02T04:00:00Z","c":219.86,"v":120}],"next_page_token":"p2"}`))
			return
		}
		_, _ = w.Write([]byte(`{"bars":[{"t":"2024-08-05T04:00:00Z","c":209.27,"v":300}],"next_page_token":null}`))
	})
	a := newTestBroker(t, "LIVE", mux)

	start := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 8, 31, 0, 0, 0, 0, time.UTC)
	bars, err := a.Bars(context.Background(), "AAPL", start, end)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC), bars[2].Date)
	assert.Equal(t, 209.27, bars[2].Close)
	assert.Equal(t, 300.0, bars[2].Volume)

	again, err := a.Bars(context.Background(), "AAPL", start, end)
	require.NoError(t, err)
	assert.Equal(t, bars, again)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "second call served from cache")
}

func TestPlaceOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/orders", func(w http.ResponseWriter, r *http.Request) {
		var body orderBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "NVDA", body.Symbol)
		assert.Equal(t, "2", body.Qty)
		assert.Equal(t, "buy", body.Side)
		assert.Equal(t, "market", body.Type)
		assert.Equal(t, "day", body.TimeInForce)
		assert.Equal(t, "scan-fixed-id", body.ClientOrderID)
		_, _ = w.Write([]byte(`{"id":"6f1c2d","status":"accepted"}`))
	})
	a := newTestBroker(t, "LIVE", mux)

	resp, err := a.PlaceOrder(context.Background(), types.OrderReq{Symbol: "nvda", Side: types.SideBuy, Qty: 2, Tag: "scan"})
	require.NoError(t, err)
	assert.Equal(t, "6f1c2d", resp.OrderID)
	assert.Equal(t, "accepted", resp.Status)

	_, err = a.PlaceOrder(context.Background(), types.OrderReq{Symbol: "NVDA", Side: types.SideBuy, Qty: 0})
	assert.Error(t, err)
}

func TestPlaceOrderDryRun(t *testing.T) {
	a := newTestBroker(t, "DRY_RUN", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("dry run must not call %s", r.URL.Path)
	}))
	resp, err := a.PlaceOrder(context.Background(), types.OrderReq{Symbol: "AAPL", Side: types.SideSell, Qty: 1})
	require.NoError(t, err)
	assert.Equal(t, "SIMULATED", resp.Status)
	assert.Equal(t, "SIM-fixed-id", resp.OrderID)
}

func TestPositionsAndAccount(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/positions", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"symbol":"TSLA","qty":"3","avg_entry_price":"200.00","current_price":"232.00","unrealized_pl":"96.00","unrealized_plpc":"0.16"}]`))
	})
	mux.HandleFunc("/v2/account", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cash":"5000.5","equity":"10250","buying_power":"10001","last_equity":"10000"}`))
	})
	a := newTestBroker(t, "LIVE", mux)

	pos, err := a.Positions(context.Background())
	require.NoError(t, err)
	require.Len(t, pos, 1)
	assert.Equal(t, 3, pos[0].Qty)
	assert.InDelta(t, 16.0, pos[0].UnrealizedPLPct, 1e-9)

	acct, err := a.Account(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5000.5, acct.Cash)
	assert.Equal(t, 250.0, acct.PLToday())
}

func TestLTP(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/stocks/SPY/trades/latest", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"SPY","trade":{"p":560.12}}`))
	})
	a := newTestBroker(t, "LIVE", mux)
	p, err := a.LTP(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Equal(t, 560.12, p)
}
