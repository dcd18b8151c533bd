package noop

import (
	"context"

	"openclaw-agent/internal/interfaces"
	"openclaw-agent/internal/logger"
)

// Commentator is the fallback used when no LLM key is configured.
// It returns no commentary and never fails.
type Commentator struct{}

var _ interfaces.Commentator = Commentator{}

func New() Commentator {
	return Commentator{}
}

func (Commentator) Comment(ctx context.Context, system, prompt string) (string, error) {
	logger.Debug(ctx, "Noop commentator called - returns empty commentary")
	return "", nil
}
