package digest

import (
	"context"
	"errors"
	"testing"

	"digestbot/internal/bitrix"
	"digestbot/pkg/logx"
)

type fakeMessenger struct {
	messageErr error
	notifyErr  error

	messages      []string
	notifications []string
	lastUser      string
}

func (f *fakeMessenger) SendMessage(_ context.Context, userID, text string) error {
	f.lastUser = userID
	f.messages = append(f.messages, text)
	return f.messageErr
}

func (f *fakeMessenger) SendNotification(_ context.Context, userID, text string) error {
	f.lastUser = userID
	f.notifications = append(f.notifications, text)
	return f.notifyErr
}

func TestDeliverPrimarySucceeds(t *testing.T) {
	t.Parallel()
	m := &fakeMessenger{}
	d := NewDispatcher(m, logx.Nop())

	if err := d.Deliver(context.Background(), "7", "hello"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(m.messages) != 1 || len(m.notifications) != 0 {
		t.Fatalf("messages=%d notifications=%d", len(m.messages), len(m.notifications))
	}
}

func TestDeliverFallbackOn400(t *testing.T) {
	t.Parallel()
	m := &fakeMessenger{
		messageErr: &bitrix.CallError{Method: bitrix.MethodMessageAdd, Status: 400, Description: "no dialog"},
	}
	d := NewDispatcher(m, logx.Nop())

	if err := d.Deliver(context.Background(), "7", "hello"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(m.notifications) != 1 {
		t.Fatalf("want exactly one fallback call, got %d", len(m.notifications))
	}
	if m.notifications[0] != "hello" {
		t.Errorf("fallback carried %q, want the same message", m.notifications[0])
	}
	if m.lastUser != "7" {
		t.Errorf("fallback targeted %q", m.lastUser)
	}
}

func TestDeliverNoFallback(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "server error",
			err:  &bitrix.CallError{Method: bitrix.MethodMessageAdd, Status: 500, Description: "boom"},
		},
		{
			name: "different method",
			err:  &bitrix.CallError{Method: bitrix.MethodUserGet, Status: 400, Description: "bad filter"},
		},
		{
			name: "network failure",
			err:  &bitrix.CallError{Method: bitrix.MethodMessageAdd, Description: "connection refused"},
		},
		{
			name: "untyped error",
			err:  errors.New("something else"),
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := &fakeMessenger{messageErr: tt.err}
			d := NewDispatcher(m, logx.Nop())

			err := d.Deliver(context.Background(), "7", "hello")
			var de *DeliveryError
			if !errors.As(err, &de) {
				t.Fatalf("want *DeliveryError, got %v", err)
			}
			if de.Fallback {
				t.Error("failure wrongly attributed to fallback")
			}
			if len(m.notifications) != 0 {
				t.Fatalf("fallback issued for non-matching failure signature")
			}
		})
	}
}

func TestDeliverFallbackFailureIsTerminal(t *testing.T) {
	t.Parallel()
	m := &fakeMessenger{
		messageErr: &bitrix.CallError{Method: bitrix.MethodMessageAdd, Status: 400, Description: "no dialog"},
		notifyErr:  &bitrix.CallError{Method: bitrix.MethodNotifyAdd, Status: 500, Description: "down"},
	}
	d := NewDispatcher(m, logx.Nop())

	err := d.Deliver(context.Background(), "7", "hello")
	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("want *DeliveryError, got %v", err)
	}
	if !de.Fallback {
		t.Error("error should mark the fallback stage")
	}
	// One attempt per channel, no loop back to primary.
	if len(m.messages) != 1 || len(m.notifications) != 1 {
		t.Fatalf("messages=%d notifications=%d, want 1 and 1", len(m.messages), len(m.notifications))
	}
}
