package trader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openclaw-agent/internal/tradelog"
	"openclaw-agent/internal/types"
)

type fakeBroker struct {
	orders    []types.OrderReq
	orderErr  error
	positions []types.BrokerPosition
	account   types.Account
}

func (f *fakeBroker) Bars(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error) {
	return nil, nil
}
func (f *fakeBroker) LTP(ctx context.Context, symbol string) (float64, error) { return 0, nil }
func (f *fakeBroker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if f.orderErr != nil {
		return types.OrderResp{}, f.orderErr
	}
	f.orders = append(f.orders, req)
	return types.OrderResp{OrderID: "order-123456789", Status: "accepted"}, nil
}
func (f *fakeBroker) Positions(ctx context.Context) ([]types.BrokerPosition, error) {
	return f.positions, nil
}
func (f *fakeBroker) Account(ctx context.Context) (types.Account, error) { return f.account, nil }

type memJournal struct{ entries []tradelog.Entry }

func (m *memJournal) Append(e tradelog.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

type memNotifier struct {
	sent []string
	err  error
}

func (m *memNotifier) Send(ctx context.Context, text string) error {
	m.sent = append(m.sent, text)
	return m.err
}

func TestBuyDefaultsQtyAndJournals(t *testing.T) {
	b, j, n := &fakeBroker{}, &memJournal{}, &memNotifier{}
	tr := New(b, NewExecutor(b, j), n)

	msg, err := tr.Execute(context.Background(), Intent{Action: ActionBuy, Symbol: " aapl "})
	require.NoError(t, err)
	require.Len(t, b.orders, 1)
	assert.Equal(t, types.OrderReq{Symbol: "AAPL", Side: types.SideBuy, Qty: 1, Tag: "MANUAL"}, b.orders[0])
	require.Len(t, j.entries, 1)
	assert.Equal(t, "order-123456789", j.entries[0].OrderID)
	assert.Equal(t, "buy", j.entries[0].Side)
	assert.Contains(t, msg, "Buy order placed")
	assert.Equal(t, []string{msg}, n.sent)
}

func TestUndeliveredReportKeepsOrder(t *testing.T) {
	b, n := &fakeBroker{}, &memNotifier{err: errors.New("telegram down")}
	tr := New(b, NewExecutor(b, nil), n)

	msg, err := tr.Execute(context.Background(), Intent{Action: ActionBuy, Symbol: "AAPL", Qty: 2})
	require.NoError(t, err)
	require.Len(t, b.orders, 1)
	assert.Contains(t, msg, "Buy order placed")
	assert.Equal(t, []string{msg}, n.sent)
}

func TestSellWithQty(t *testing.T) {
	b := &fakeBroker{}
	tr := New(b, NewExecutor(b, nil), nil)
	_, err := tr.Execute(context.Background(), Intent{Action: ActionSell, Symbol: "TSLA", Qty: 3})
	require.NoError(t, err)
	assert.Equal(t, types.SideSell, b.orders[0].Side)
	assert.Equal(t, 3, b.orders[0].Qty)
}

func TestFailuresAreReported(t *testing.T) {
	b, n := &fakeBroker{orderErr: errors.New("market closed")}, &memNotifier{}
	tr := New(b, NewExecutor(b, nil), n)

	msg, err := tr.Execute(context.Background(), Intent{Action: ActionBuy, Symbol: "AAPL"})
	require.Error(t, err)
	assert.Contains(t, msg, "market closed")
	assert.Len(t, n.sent, 1)

	_, err = tr.Execute(context.Background(), Intent{Action: ActionBuy})
	assert.Error(t, err)
	_, err = tr.Execute(context.Background(), Intent{Action: ActionSell, Symbol: "X", Qty: -1})
	assert.Error(t, err)
	_, err = tr.Execute(context.Background(), Intent{Action: "short"})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestPositionsAndPortfolio(t *testing.T) {
	b := &fakeBroker{
		positions: []types.BrokerPosition{{Symbol: "NVDA", Qty: 2, AvgEntryPrice: 100, CurrentPrice: 110, UnrealizedPL: 20, UnrealizedPLPct: 10}},
		account:   types.Account{Equity: 1010, Cash: 500, LastEquity: 1000},
	}
	tr := New(b, NewExecutor(b, nil), nil)

	msg, err := tr.Execute(context.Background(), Intent{Action: ActionPositions})
	require.NoError(t, err)
	assert.Contains(t, msg, "NVDA")

	msg, err = tr.Execute(context.Background(), Intent{Action: ActionPortfolio})
	require.NoError(t, err)
	assert.Contains(t, msg, "P&L today: $10.00")
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" Portfolio ")
	require.NoError(t, err)
	assert.Equal(t, ActionPortfolio, a)
	_, err = ParseAction("cover")
	assert.ErrorIs(t, err, ErrUnknownAction)
}
