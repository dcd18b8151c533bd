package trader

import (
	"context"
	"strings"

	"openclaw-agent/internal/interfaces"
	"openclaw-agent/internal/logger"
	"openclaw-agent/internal/tradelog"
	"openclaw-agent/internal/types"
)

// Journal records placed orders. *tradelog.Journal satisfies it.
type Journal interface {
	Append(e tradelog.Entry) error
}

// Executor places orders and journals them.
type Executor struct {
	broker  interfaces.Broker
	journal Journal
}

func NewExecutor(broker interfaces.Broker, journal Journal) *Executor {
	return &Executor{broker: broker, journal: journal}
}

// Buy places a market BUY. price is informational and only journaled.
func (e *Executor) Buy(ctx context.Context, symbol string, qty int, price float64, reason, tag string) (types.OrderResp, error) {
	return e.place(ctx, types.OrderReq{Symbol: symbol, Side: types.SideBuy, Qty: qty, Tag: tag}, price, reason)
}

// Sell places a market SELL.
func (e *Executor) Sell(ctx context.Context, symbol string, qty int, price float64, reason, tag string) (types.OrderResp, error) {
	return e.place(ctx, types.OrderReq{Symbol: symbol, Side: types.SideSell, Qty: qty, Tag: tag}, price, reason)
}

func (e *Executor) place(ctx context.Context, req types.OrderReq, price float64, reason string) (types.OrderResp, error) {
	req.Symbol = strings.ToUpper(req.Symbol)
	resp, err := e.broker.PlaceOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to place order", err,
			"symbol", req.Symbol,
			"side", req.Side,
			"qty", req.Qty,
			"price", price,
		)
		return types.OrderResp{}, err
	}

	// Trade logged via middleware

	if e.journal != nil {
		if jerr := e.journal.Append(tradelog.Entry{
			Symbol:  req.Symbol,
			Side:    string(req.Side),
			Qty:     req.Qty,
			Price:   price,
			OrderID: resp.OrderID,
			Status:  resp.Status,
			Reason:  reason,
		}); jerr != nil {
			logger.ErrorWithErr(ctx, "Failed to journal order", jerr, "symbol", req.Symbol, "order_id", resp.OrderID)
		}
	}
	return resp, nil
}
