package notifyobs

import (
	"context"
	"time"

	"openclaw-agent/internal/interfaces"
	"openclaw-agent/internal/logger"
	"openclaw-agent/internal/trace"
)

// observableNotifier wraps a Notifier with observability (logging & tracing)
type observableNotifier struct {
	notifier interfaces.Notifier
}

var _ interfaces.Notifier = (*observableNotifier)(nil)

// Wrap wraps a notifier with observability middleware
func Wrap(notifier interfaces.Notifier) interfaces.Notifier {
	return &observableNotifier{notifier: notifier}
}

func (on *observableNotifier) Send(ctx context.Context, text string) error {
	ctx, span := trace.StartSpan(ctx, "notify.Send")
	defer span.End()

	start := time.Now()
	if err := on.notifier.Send(ctx, text); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to send notification", err, "chars", len(text))
		return err
	}
	logger.DebugSkip(ctx, 1, "Notification sent", "chars", len(text), "duration", time.Since(start))
	return nil
}
