// Package httpfetch is the HTTP client shared by the remote loaders: one
// user agent, one timeout and one rate limiter for every request.
package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/lenscore/internal/logger"
)

// Client defaults.
const (
	DefaultTimeout   = 20 * time.Second
	DefaultUserAgent = "lenscore (+https://github.com/custodia-labs/lenscore)"
	DefaultMaxBytes  = 10 << 20
)

// Response is a successful fetch.
type Response struct {
	// URL is the final URL after redirects.
	URL *url.URL

	// ContentType is the media type without parameters.
	ContentType string

	// Body is the response body, truncated at the client's byte limit.
	Body []byte
}

// Client fetches URLs politely.
type Client struct {
	http      *http.Client
	limiter   *RateLimiter
	userAgent string
	maxBytes  int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimiter shares a rate limiter with other clients.
func WithRateLimiter(l *RateLimiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxBytes bounds the body size read from a response.
func WithMaxBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// New creates a client. Without WithRateLimiter requests are not throttled.
func New(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: DefaultTimeout},
		limiter:   NewRateLimiter(0, 1),
		userAgent: DefaultUserAgent,
		maxBytes:  DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches rawURL. Non-2xx responses are returned as *StatusError; a 429
// also pauses every request sharing the rate limiter.
func (c *Client) Get(ctx context.Context, rawURL, accept string) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	logger.Debug("GET %s", rawURL)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.limiter.RecordRateLimitError(retryAfter(resp.Header.Get("Retry-After")))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return &Response{
		URL:         resp.Request.URL,
		ContentType: strings.ToLower(strings.TrimSpace(contentType)),
		Body:        body,
	}, nil
}

// retryAfter parses a Retry-After header in seconds or HTTP-date form.
func retryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		return time.Until(at)
	}
	return 0
}
