package digest

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"digestbot/internal/bitrix"
	"digestbot/pkg/logx"
)

// Messenger is the slice of the portal client the dispatcher sends through.
type Messenger interface {
	SendMessage(ctx context.Context, userID, text string) error
	SendNotification(ctx context.Context, userID, text string) error
}

// DeliveryError is a per-user delivery failure through either channel.
type DeliveryError struct {
	UserID   string
	Fallback bool // true when the personal-notification fallback also failed
	Err      error
}

func (e *DeliveryError) Error() string {
	if e.Fallback {
		return fmt.Sprintf("deliver to user %s: fallback notification failed: %v", e.UserID, e.Err)
	}
	return fmt.Sprintf("deliver to user %s: %v", e.UserID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// sendResult classifies the primary attempt explicitly instead of threading
// control flow through error text.
type sendResult int

const (
	delivered sendResult = iota
	fallbackNeeded
	failed
)

// classify maps a primary-send error to its outcome. Only a client-error
// rejection from the chat method itself warrants the fallback; anything
// else (other methods, server errors, transport failures) is terminal.
func classify(err error) sendResult {
	if err == nil {
		return delivered
	}
	var ce *bitrix.CallError
	if errors.As(err, &ce) && ce.Method == bitrix.MethodMessageAdd && ce.Status == http.StatusBadRequest {
		return fallbackNeeded
	}
	return failed
}

// Dispatcher delivers one rendered digest per user: direct chat message
// first, personal notification as the single fallback. Neither channel is
// attempted more than once.
type Dispatcher struct {
	api Messenger
	log logx.Logger
}

func NewDispatcher(api Messenger, log logx.Logger) *Dispatcher {
	return &Dispatcher{api: api, log: log}
}

func (d *Dispatcher) Deliver(ctx context.Context, userID, message string) error {
	err := d.api.SendMessage(ctx, userID, message)
	switch classify(err) {
	case delivered:
		return nil
	case failed:
		return &DeliveryError{UserID: userID, Err: err}
	}

	d.log.Debug("chat message rejected; sending personal notification instead",
		logx.String("user", userID), logx.Err(err))
	if err := d.api.SendNotification(ctx, userID, message); err != nil {
		return &DeliveryError{UserID: userID, Fallback: true, Err: err}
	}
	return nil
}
