package interfaces

import "context"

// Commentator produces short natural-language commentary for a report.
type Commentator interface {
	Comment(ctx context.Context, system, prompt string) (string, error)
}
