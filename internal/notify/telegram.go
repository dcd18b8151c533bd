// Package notify delivers report text to a human: a Telegram chat or the
// process's own output.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"openclaw-agent/internal/api"
	"openclaw-agent/internal/interfaces"
)

const DefaultTelegramURL = "https://api.telegram.org"

// maxMessage is the Bot API limit per sendMessage call.
const maxMessage = 4096

var ErrMissingChat = errors.New("telegram token and chat id are required")

type TelegramParams struct {
	Token     string
	ChatID    string
	BaseURL   string
	ParseMode string
	Timeout   time.Duration
}

type Telegram struct {
	p      TelegramParams
	client *api.Client
}

var _ interfaces.Notifier = (*Telegram)(nil)

func NewTelegram(p TelegramParams) (*Telegram, error) {
	if p.Token == "" || p.ChatID == "" {
		return nil, ErrMissingChat
	}
	if p.BaseURL == "" {
		p.BaseURL = DefaultTelegramURL
	}
	if p.ParseMode == "" {
		p.ParseMode = "Markdown"
	}
	if p.Timeout <= 0 {
		p.Timeout = 15 * time.Second
	}
	return &Telegram{
		p: p,
		client: api.NewClient(
			api.WithBaseURL(strings.TrimRight(p.BaseURL, "/")+"/bot"+p.Token),
			api.WithTimeout(p.Timeout),
		),
	}, nil
}

type sendMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type botResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts text, split on line boundaries when it exceeds one message.
func (t *Telegram) Send(ctx context.Context, text string) error {
	for _, part := range split(text, maxMessage) {
		resp, err := t.client.POST(ctx, "/sendMessage", sendMessage{ChatID: t.p.ChatID, Text: part, ParseMode: t.p.ParseMode})
		if err != nil {
			return fmt.Errorf("telegram sendMessage: %w", err)
		}
		var r botResponse
		if err := resp.ParseJSON(&r); err != nil {
			return err
		}
		if !r.OK {
			return fmt.Errorf("telegram sendMessage: %s", r.Description)
		}
	}
	return nil
}

// split breaks text into parts of at most limit bytes, on line ends where
// possible and never inside a UTF-8 sequence.
func split(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var parts []string
	var b strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if b.Len() > 0 {
				parts = append(parts, b.String())
				b.Reset()
			}
			cut := runeCut(line, limit)
			parts = append(parts, line[:cut])
			line = line[cut:]
		}
		if b.Len()+len(line) > limit {
			parts = append(parts, b.String())
			b.Reset()
		}
		b.WriteString(line)
	}
	if b.Len() > 0 {
		parts = append(parts, b.String())
	}
	return parts
}

// runeCut is the largest index <= limit that starts a rune in s.
func runeCut(s string, limit int) int {
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		return limit
	}
	return cut
}
