// Package trader carries out explicit user trading intents against the
// broker.
package trader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"openclaw-agent/internal/interfaces"
	"openclaw-agent/internal/logger"
	"openclaw-agent/internal/report"
	"openclaw-agent/internal/types"
)

type Action string

const (
	ActionBuy       Action = "buy"
	ActionSell      Action = "sell"
	ActionPositions Action = "positions"
	ActionPortfolio Action = "portfolio"
)

var ErrUnknownAction = errors.New("unknown trade action")

// Intent is one explicit instruction. Qty defaults to 1 for buy and sell.
type Intent struct {
	Action Action `json:"action"`
	Symbol string `json:"symbol,omitempty"`
	Qty    int    `json:"qty,omitempty"`
}

func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case ActionBuy, ActionSell, ActionPositions, ActionPortfolio:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

type Trader struct {
	broker   interfaces.Broker
	exec     *Executor
	notifier interfaces.Notifier
}

func New(broker interfaces.Broker, exec *Executor, notifier interfaces.Notifier) *Trader {
	return &Trader{broker: broker, exec: exec, notifier: notifier}
}

// Execute runs the intent and returns the report text, which is also sent
// to the notifier when one is set. Notification failures do not fail the
// intent.
func (t *Trader) Execute(ctx context.Context, in Intent) (string, error) {
	msg, err := t.execute(ctx, in)
	if err != nil {
		msg = report.Failure("trade failed", err)
	}
	if t.notifier != nil {
		if nerr := t.notifier.Send(ctx, msg); nerr != nil {
			logger.ErrorWithErr(ctx, "Failed to deliver trade report", nerr, "action", in.Action)
		}
	}
	return msg, err
}

func (t *Trader) execute(ctx context.Context, in Intent) (string, error) {
	switch in.Action {
	case ActionBuy, ActionSell:
		symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
		if symbol == "" {
			return "", errors.New("symbol is required")
		}
		qty := in.Qty
		if qty == 0 {
			qty = 1
		}
		if qty < 0 {
			return "", fmt.Errorf("quantity must be positive, got %d", qty)
		}

		var (
			resp types.OrderResp
			err  error
		)
		if in.Action == ActionBuy {
			resp, err = t.exec.Buy(ctx, symbol, qty, 0, "manual", "MANUAL")
		} else {
			resp, err = t.exec.Sell(ctx, symbol, qty, 0, "manual", "MANUAL")
		}
		if err != nil {
			return "", err
		}
		side := types.SideBuy
		if in.Action == ActionSell {
			side = types.SideSell
		}
		return report.Order(types.OrderReq{Symbol: symbol, Side: side, Qty: qty}, resp), nil

	case ActionPositions:
		positions, err := t.broker.Positions(ctx)
		if err != nil {
			return "", err
		}
		return report.Positions(positions), nil

	case ActionPortfolio:
		acct, err := t.broker.Account(ctx)
		if err != nil {
			return "", err
		}
		return report.Account(acct), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, in.Action)
}
