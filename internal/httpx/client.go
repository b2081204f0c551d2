// Package httpx provides a small HTTP client wrapper with retries, timeouts,
// and exponential back-off. The Client is safe for concurrent use because its
// fields are immutable after construction.
package httpx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client wraps net/http.Client with retry and timeout behaviour.
type Client struct {
	http       *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseDelay overrides the first back-off delay (doubled per attempt).
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) { c.baseDelay = d }
}

// NewClient creates a Client with the given per-attempt timeout and retry count.
func NewClient(timeout time.Duration, maxRetries int, opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{Timeout: timeout},
		maxRetries: max(maxRetries, 0),
		baseDelay:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do executes a body-less request, retrying on network errors and 5xx
// responses with exponential back-off.  4xx responses are returned as-is.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return nil, fmt.Errorf("httpx: request body cannot be replayed")
	}

	var (
		resp *http.Response
		err  error
	)
	for attempt := range c.maxRetries + 1 {
		r := req.Clone(ctx)
		if req.GetBody != nil {
			if r.Body, err = req.GetBody(); err != nil {
				return nil, fmt.Errorf("httpx: get body: %w", err)
			}
		}

		resp, err = c.http.Do(r)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if attempt == c.maxRetries {
			break
		}

		// Drain body on retry to allow connection reuse.
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.baseDelay * (1 << uint(attempt))):
		}
	}

	if err != nil {
		return nil, fmt.Errorf("httpx: all %d attempts failed: %w", c.maxRetries+1, err)
	}
	return resp, nil
}

// Post sends a body-less POST with the given headers.
func (c *Client) Post(ctx context.Context, url string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpx: new request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return c.Do(ctx, req)
}
