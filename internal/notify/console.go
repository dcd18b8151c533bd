package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"openclaw-agent/internal/interfaces"
)

// Console writes every message to w, separated by a blank line.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

var _ interfaces.Notifier = (*Console)(nil)

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Send(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "%s\n\n", text)
	return err
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []interfaces.Notifier

func (m Multi) Send(ctx context.Context, text string) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
