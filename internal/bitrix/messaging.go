package bitrix

import (
	"context"
	"net/url"
)

// Messaging method names. The delivery fallback predicate matches on
// MethodMessageAdd, so these are named constants rather than literals.
const (
	MethodMessageAdd  = "im.message.add"
	MethodNotifyAdd   = "im.notify.personal.add"
	MethodUserGet     = "user.get"
	MethodCalendarGet = "calendar.event.get"
	MethodTaskList    = "tasks.task.list"
)

// SendMessage posts a direct chat message. The dialog identifier for a
// one-on-one chat is the recipient's own user ID.
func (c *Client) SendMessage(ctx context.Context, userID, text string) error {
	params := url.Values{}
	params.Set("DIALOG_ID", userID)
	params.Set("MESSAGE", text)
	params.Set("SYSTEM", "N")
	_, err := c.Call(ctx, MethodMessageAdd, params, nil)
	return err
}

// SendNotification raises a personal notification for the user. Used as the
// delivery fallback when the chat channel rejects the message.
func (c *Client) SendNotification(ctx context.Context, userID, text string) error {
	params := url.Values{}
	params.Set("USER_ID", userID)
	params.Set("MESSAGE", text)
	_, err := c.Call(ctx, MethodNotifyAdd, params, nil)
	return err
}
