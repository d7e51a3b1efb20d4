package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxBodyBytes = 8 << 20

// PageFetcher returns the HTML of a page.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// Client is the shared HTTP getter for job boards. Every request waits on
// the per-host limiter and carries the configured User-Agent.
type Client struct {
	HTTP      *http.Client
	Limiter   *HostLimiter
	UserAgent string
}

func NewClient(limiter *HostLimiter, userAgent string) *Client {
	return &Client{
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		Limiter:   limiter,
		UserAgent: userAgent,
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
}

// Get fetches url and returns at most 8 MiB of the body.
func (c *Client) Get(ctx context.Context, url string, accept string) ([]byte, error) {
	if err := c.Limiter.WaitURL(ctx, url); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	req.Header.Set("Accept-Language", "sv-SE,sv;q=0.9,en;q=0.8")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// FetchPage implements PageFetcher over plain HTTP.
func (c *Client) FetchPage(ctx context.Context, url string) (string, error) {
	b, err := c.Get(ctx, url, "text/html,application/xhtml+xml")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
