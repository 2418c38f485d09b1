// Package api wraps the assistants backend's HTTP endpoints. The thread and
// message endpoints are plain request/response calls; run creation and tool
// output submission stream events and go through the transport package.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/scribelabs/scribe/pkg/transport"
)

// Client talks to the assistants backend. Requests are paced by a shared
// rate limiter so bursts of turns don't trip server-side throttling.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	// streamClient has no timeout: event streams stay open for the whole
	// run and are bounded by context cancellation instead.
	streamClient *http.Client
	limiter      *rate.Limiter
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
}

// NewClient creates a backend client.
func NewClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 10
	}
	return &Client{
		baseURL:      opts.BaseURL,
		apiKey:       opts.APIKey,
		httpClient:   &http.Client{Timeout: opts.Timeout},
		streamClient: &http.Client{},
		limiter:      rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst),
	}
}

// CreateThread creates a new conversation thread.
func (c *Client) CreateThread(ctx context.Context) (*Thread, error) {
	var thread Thread
	if err := c.post(ctx, c.baseURL+"/threads", struct{}{}, &thread); err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}
	return &thread, nil
}

// CreateMessage persists a user message on the thread.
func (c *Client) CreateMessage(ctx context.Context, threadID string, req MessageRequest) (*ThreadMessage, error) {
	var msg ThreadMessage
	url := fmt.Sprintf("%s/threads/%s/messages", c.baseURL, threadID)
	if err := c.post(ctx, url, req, &msg); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return &msg, nil
}

// CancelRun asks the server to cancel a run. Best effort: the response body
// is ignored and callers are expected to ignore errors too.
func (c *Client) CancelRun(ctx context.Context, threadID, runID string) error {
	url := fmt.Sprintf("%s/threads/%s/runs/%s/cancel", c.baseURL, threadID, runID)
	return c.post(ctx, url, struct{}{}, nil)
}

// StreamRun opens the run event stream for the thread and delivers every
// frame to h in arrival order.
func (c *Client) StreamRun(ctx context.Context, threadID string, req RunRequest, h transport.Handler) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	url := fmt.Sprintf("%s/threads/%s/runs", c.baseURL, threadID)
	return transport.Open(ctx, c.streamClient, url, c.header(), req, h)
}

// StreamToolOutputs submits client-resolved tool outputs and continues the
// same run's event stream.
func (c *Client) StreamToolOutputs(ctx context.Context, threadID, runID string, req ToolOutputsRequest, h transport.Handler) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	url := fmt.Sprintf("%s/threads/%s/runs/%s/submit_tool_outputs", c.baseURL, threadID, runID)
	return transport.Open(ctx, c.streamClient, url, c.header(), req, h)
}

func (c *Client) header() http.Header {
	h := http.Header{}
	if c.apiKey != "" {
		h.Set("Authorization", "Bearer "+c.apiKey)
	}
	return h
}

// post sends a JSON request and decodes the response into out when out is
// non-nil.
func (c *Client) post(ctx context.Context, url string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header = c.header()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		var decoded struct {
			Error string `json:"error"`
		}
		msg := string(raw)
		if json.Unmarshal(raw, &decoded) == nil && decoded.Error != "" {
			msg = decoded.Error
		}
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
