package llmobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fixed struct {
	text string
	err  error
}

func (f fixed) Comment(ctx context.Context, system, prompt string) (string, error) {
	return f.text, f.err
}

func TestWrapPassesThrough(t *testing.T) {
	got, err := Wrap(fixed{text: "ok"}).Comment(context.Background(), "s", "p")
	assert.NoError(t, err)
	assert.Equal(t, "ok", got)

	boom := errors.New("boom")
	got, err = Wrap(fixed{text: "ignored", err: boom}).Comment(context.Background(), "s", "p")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, got)
}
