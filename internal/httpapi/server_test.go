package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openclaw-agent/internal/analyst"
	"openclaw-agent/internal/backtest"
	"openclaw-agent/internal/performance"
	"openclaw-agent/internal/repository"
	"openclaw-agent/internal/types"
)

type fakeAnalyst struct{}

func (fakeAnalyst) Analyze(ctx context.Context, symbol string) (types.Analysis, error) {
	if symbol == "NONE" {
		return types.Analysis{}, fmt.Errorf("%w %s", analyst.ErrNoData, symbol)
	}
	return types.Analysis{Symbol: symbol, Price: 10, Signal: types.SignalHold, Score: 25}, nil
}

type fakeScanner struct{}

func (fakeScanner) ScanWatchlist(ctx context.Context) ([]types.ScanResult, error) {
	return []types.ScanResult{{Symbol: "A", Score: 80}, {Symbol: "B", Score: 60}, {Symbol: "C", Score: 10}}, nil
}

type fakeBacktester struct {
	store *repository.InMemoryRunRepository
	got   types.BacktestRequest
}

func (f *fakeBacktester) Run(ctx context.Context, req types.BacktestRequest) (*types.BacktestRun, error) {
	f.got = req
	if req.InitialCapital == 1 {
		return nil, fmt.Errorf("wrapped: %w", performance.ErrNoTrades)
	}
	if req.End.Before(req.Start) {
		return nil, backtest.ErrInvalidRange
	}
	run := &types.BacktestRun{
		ID:        "run-1",
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Result:    types.BacktestResult{StartDate: req.Start, EndDate: req.End, FinalValue: 102400.456, TotalTrades: 1},
		Trades:    []types.Trade{{Symbol: "AAA", BuyPrice: 100.004, SellPrice: 116, PLPct: 15.999, Reason: types.ExitTakeProfit}},
	}
	_ = f.store.Save(ctx, run)
	return run, nil
}

func newTestServer() (*Server, *fakeBacktester) {
	store := repository.NewInMemoryRunRepository()
	bt := &fakeBacktester{store: store}
	return NewServer(":0", Deps{Analyst: fakeAnalyst{}, Scanner: fakeScanner{}, Backtester: bt, Results: store}), bt
}

func do(t *testing.T, s *Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func TestHealthAndAnalyze(t *testing.T) {
	s, _ := newTestServer()
	code, body := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, body = do(t, s, http.MethodGet, "/api/analyze/AAPL", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "AAPL", body["data"].(map[string]any)["symbol"])

	code, _ = do(t, s, http.MethodGet, "/api/analyze/NONE", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestScanLimit(t *testing.T) {
	s, _ := newTestServer()
	code, body := do(t, s, http.MethodGet, "/api/scan?limit=2", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["count"])
}

func TestBacktestFlow(t *testing.T) {
	s, bt := newTestServer()
	code, body := do(t, s, http.MethodPost, "/api/backtest", `{"start":"2024-08-01","end":"2025-01-31","initial_capital":50000}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "run-1", body["id"])
	assert.Equal(t, 102400.46, body["result"].(map[string]any)["final_value"])
	trade := body["trades"].([]any)[0].(map[string]any)
	assert.Equal(t, 100.0, trade["buy_price"])
	assert.Equal(t, 50000.0, bt.got.InitialCapital)
	assert.Equal(t, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), bt.got.Start)

	code, body = do(t, s, http.MethodGet, "/api/backtests", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["count"])

	code, body = do(t, s, http.MethodGet, "/api/backtests/run-1", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "run-1", body["id"])

	code, _ = do(t, s, http.MethodGet, "/api/backtests/missing", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestBacktestErrors(t *testing.T) {
	s, _ := newTestServer()
	for _, tc := range []struct {
		body string
		code int
	}{
		{`{"start":"2024-08-01"}`, http.StatusBadRequest},
		{`{"start":"08/01/2024","end":"2025-01-01"}`, http.StatusBadRequest},
		{`{"start":"2024-08-01","end":"2025-01-01","initial_capital":-5}`, http.StatusBadRequest},
		{`{"start":"2025-02-01","end":"2025-01-01"}`, http.StatusBadRequest},
		{`{"start":"2024-08-01","end":"2025-01-01","initial_capital":1}`, http.StatusUnprocessableEntity},
	} {
		code, _ := do(t, s, http.MethodPost, "/api/backtest", tc.body)
		assert.Equal(t, tc.code, code, tc.body)
	}
}

func TestStorageDisabled(t *testing.T) {
	s := NewServer(":0", Deps{})
	code, _ := do(t, s, http.MethodGet, "/api/backtests", "")
	assert.Equal(t, http.StatusNotFound, code)
}
