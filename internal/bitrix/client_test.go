package bitrix

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"digestbot/pkg/logx"
)

const testSecret = "s3cretc0de"

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL: srv.URL + "/rest/1",
		Secret:  testSecret,
		// Keep tests fast; the production default is far lower.
		RatePerSec: 1000,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestCallSuccess(t *testing.T) {
	t.Parallel()
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/rest/1/"+testSecret+"/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"result": {"ok": true}}`))
	}))

	var out struct {
		OK bool `json:"ok"`
	}
	if _, err := c.Call(context.Background(), "user.get", nil, &out); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !out.OK {
		t.Fatal("result not decoded")
	}
}

func TestCallPayloadErrorOn200(t *testing.T) {
	t.Parallel()
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"ACCESS_DENIED","error_description":"Access denied!"}`))
	}))

	_, err := c.Call(context.Background(), "calendar.event.get", nil, nil)
	ce, ok := err.(*CallError)
	if !ok {
		t.Fatalf("want *CallError, got %T (%v)", err, err)
	}
	if ce.Method != "calendar.event.get" {
		t.Errorf("Method = %q", ce.Method)
	}
	if ce.Status != 0 {
		t.Errorf("Status = %d, want 0 for payload-level error", ce.Status)
	}
	if ce.Description != "Access denied!" {
		t.Errorf("Description = %q", ce.Description)
	}
}

func TestCallTransportError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		status   int
		body     string
		wantDesc string
	}{
		{
			name:     "json body with description",
			status:   http.StatusBadRequest,
			body:     `{"error":"DIALOG_ID_EMPTY","error_description":"Dialog ID can't be empty"}`,
			wantDesc: "Dialog ID can't be empty",
		},
		{
			name:     "json body error code only",
			status:   http.StatusBadRequest,
			body:     `{"error":"DIALOG_ID_EMPTY"}`,
			wantDesc: "DIALOG_ID_EMPTY",
		},
		{
			name:     "unparseable body falls back to status text",
			status:   http.StatusBadGateway,
			body:     `<html>bad gateway</html>`,
			wantDesc: "502 Bad Gateway",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			_, err := c.Call(context.Background(), "im.message.add", nil, nil)
			ce, ok := err.(*CallError)
			if !ok {
				t.Fatalf("want *CallError, got %T (%v)", err, err)
			}
			if ce.Status != tt.status {
				t.Errorf("Status = %d, want %d", ce.Status, tt.status)
			}
			if ce.Description != tt.wantDesc {
				t.Errorf("Description = %q, want %q", ce.Description, tt.wantDesc)
			}
		})
	}
}

func TestCallNetworkError(t *testing.T) {
	t.Parallel()
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	// Point at a closed port.
	c.cfg.BaseURL = "http://127.0.0.1:1/rest/1"

	_, err := c.Call(context.Background(), "user.get", nil, nil)
	ce, ok := err.(*CallError)
	if !ok {
		t.Fatalf("want *CallError, got %T (%v)", err, err)
	}
	if ce.Status != 0 {
		t.Errorf("Status = %d, want 0 for network error", ce.Status)
	}
	if strings.Contains(ce.Description, testSecret) {
		t.Errorf("network error leaked the secret: %q", ce.Description)
	}
}

func TestMaskURLHidesSecret(t *testing.T) {
	t.Parallel()
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	masked := c.maskURL("https://portal/rest/1/" + testSecret + "/user.get.json")
	if strings.Contains(masked, testSecret) {
		t.Fatalf("secret not masked: %s", masked)
	}
	if !strings.Contains(masked, secretMask) {
		t.Fatalf("mask marker missing: %s", masked)
	}
}
