package interfaces

import (
	"context"
	"time"

	"openclaw-agent/internal/types"
)

// MarketData returns daily bars in ascending date order.
type MarketData interface {
	Bars(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error)
}

type Broker interface {
	MarketData
	LTP(ctx context.Context, symbol string) (float64, error)
	PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error)
	Positions(ctx context.Context) ([]types.BrokerPosition, error)
	Account(ctx context.Context) (types.Account, error)
}
