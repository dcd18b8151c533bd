package interfaces

import (
	"context"

	"openclaw-agent/internal/types"
)

type Scanner interface {
	ScanWatchlist(ctx context.Context) ([]types.ScanResult, error)
}

type Analyst interface {
	Analyze(ctx context.Context, symbol string) (types.Analysis, error)
}
