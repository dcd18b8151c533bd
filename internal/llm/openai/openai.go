// Package openai speaks the OpenAI-compatible chat completions protocol.
// Groq serves the same API, which is the default endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"openclaw-agent/internal/api"
	"openclaw-agent/internal/interfaces"
	"openclaw-agent/internal/trace"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"
)

var ErrMissingAPIKey = errors.New("llm api key missing")

type Params struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

type Commentator struct {
	p      Params
	client *api.Client
}

var _ interfaces.Commentator = (*Commentator)(nil)

func New(p Params) (*Commentator, error) {
	if p.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if p.BaseURL == "" {
		p.BaseURL = DefaultBaseURL
	}
	if p.Model == "" {
		p.Model = DefaultModel
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = 300
	}
	if p.Timeout <= 0 {
		p.Timeout = 30 * time.Second
	}
	return &Commentator{
		p: p,
		client: api.NewClient(
			api.WithBaseURL(strings.TrimRight(p.BaseURL, "/")),
			api.WithHeaders(api.BearerHeaders(p.APIKey)),
			api.WithTimeout(p.Timeout),
			api.WithLogging(true),
		),
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

func (c *Commentator) Comment(ctx context.Context, system, prompt string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "chat-completions-call")
	defer span.End()

	body := completionRequest{
		Model:       c.p.Model,
		Messages:    []message{{Role: "system", Content: system}, {Role: "user", Content: prompt}},
		Temperature: c.p.Temperature,
		MaxTokens:   c.p.MaxTokens,
	}
	req := api.NewRequest("POST", "/chat/completions").WithContext(ctx).WithBody(body)
	resp, err := c.client.DoWithRetry(req, &api.RetryConfig{MaxAttempts: 2, InitialWait: time.Second, MaxWait: 2 * time.Second})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	var r completionResponse
	if err := resp.ParseJSON(&r); err != nil {
		return "", err
	}
	if len(r.Choices) == 0 {
		return "", errors.New("no choices")
	}
	return strings.TrimSpace(r.Choices[0].Message.Content), nil
}
