package bitrix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"digestbot/pkg/logx"
)

// callTimeout bounds every REST call. A call that exceeds it fails as a
// transport error instead of hanging a pipeline.
const callTimeout = 20 * time.Second

const secretMask = "********"

// CallError is the failure of a single REST method call.
// Status is 0 for network-level failures and payload-level errors
// delivered over HTTP 200.
type CallError struct {
	Method      string
	Status      int
	Description string
}

func (e *CallError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("bitrix: %s failed (status %d): %s", e.Method, e.Status, e.Description)
	}
	return fmt.Sprintf("bitrix: %s failed: %s", e.Method, e.Description)
}

// Config for the REST client.
type Config struct {
	// BaseURL is the portal REST root including the webhook user segment.
	BaseURL string
	// Secret is the webhook code. It appears in every request URL as a path
	// segment and must never reach a log sink.
	Secret string
	// RatePerSec caps the outgoing call rate shared by all pipelines.
	RatePerSec int
}

// Client issues named method calls against a single inbound-webhook
// endpoint. A Client is safe for concurrent use; calls carry no state.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	log     logx.Logger

	// now is swappable in tests so "today" windows are deterministic.
	now func() time.Time
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" || strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("bitrix: base URL and secret are required")
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: callTimeout},
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
		now:     time.Now,
	}, nil
}

// Response is the portal's REST response wrapper. A payload-level failure
// carries error/error_description even when the HTTP status is 200.
type Response struct {
	Result           json.RawMessage `json:"result"`
	Next             *int            `json:"next"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

// Call invokes one method with bracketed query parameters and decodes the
// "result" field into out (which may be nil when the result is ignored).
// It returns the raw response so callers can read pagination cursors.
func (c *Client) Call(ctx context.Context, method string, params url.Values, out any) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &CallError{Method: method, Description: err.Error()}
	}

	u := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + c.cfg.Secret + "/" + method + ".json"
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	c.log.Debug("rest call", logx.String("path", c.maskURL(u)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &CallError{Method: method, Description: err.Error()}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &CallError{Method: method, Description: c.maskURL(err.Error())}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, &CallError{Method: method, Status: resp.StatusCode, Description: err.Error()}
	}

	var env Response
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Prefer the payload's own description when the body parses.
		desc := resp.Status
		if decodeErr == nil && env.ErrorDescription != "" {
			desc = env.ErrorDescription
		} else if decodeErr == nil && env.Error != "" {
			desc = env.Error
		}
		return nil, &CallError{Method: method, Status: resp.StatusCode, Description: desc}
	}
	if decodeErr != nil {
		return nil, &CallError{Method: method, Status: resp.StatusCode, Description: "invalid response body: " + decodeErr.Error()}
	}
	// Payload-level error on a 2xx transport status is still a failure.
	if env.Error != "" || env.ErrorDescription != "" {
		desc := env.ErrorDescription
		if desc == "" {
			desc = env.Error
		}
		return nil, &CallError{Method: method, Description: desc}
	}

	if out != nil && len(env.Result) > 0 && string(env.Result) != "null" {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return nil, &CallError{Method: method, Description: "decode result: " + err.Error()}
		}
	}
	return &env, nil
}

// maskURL hides the webhook code. Errors from net/http repeat the request
// URL, so the mask is applied to anything that may embed it.
func (c *Client) maskURL(s string) string {
	if c.cfg.Secret == "" {
		return s
	}
	return strings.ReplaceAll(s, c.cfg.Secret, secretMask)
}
