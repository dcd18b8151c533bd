package interfaces

import "context"

type Notifier interface {
	Send(ctx context.Context, text string) error
}
