package llmobs

import (
	"context"
	"time"

	"openclaw-agent/internal/interfaces"
	"openclaw-agent/internal/logger"
	"openclaw-agent/internal/trace"
)

// observableCommentator wraps a Commentator with observability (logging & tracing)
type observableCommentator struct {
	commentator interfaces.Commentator
}

// Compile-time interface check
var _ interfaces.Commentator = (*observableCommentator)(nil)

// Wrap wraps a commentator with observability middleware
func Wrap(commentator interfaces.Commentator) interfaces.Commentator {
	return &observableCommentator{commentator: commentator}
}

func (oc *observableCommentator) Comment(ctx context.Context, system, prompt string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Comment")
	defer span.End()

	// Use DebugSkip(1) to report the actual caller, not this middleware wrapper
	logger.DebugSkip(ctx, 1, "Requesting commentary", "promptSize", len(prompt))

	start := time.Now()
	text, err := oc.commentator.Comment(ctx, system, prompt)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to get commentary", err, "duration", time.Since(start))
		return "", err
	}

	logger.InfoSkip(ctx, 1, "Commentary received", "chars", len(text), "duration", time.Since(start))
	return text, nil
}
