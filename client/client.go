// Package client provides the HTTP client used to talk to package registries,
// with retry, backoff, and rate limiting.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenk/backoff"
)

const defaultUserAgent = "pkgtree"

// HTTPError represents an HTTP error response.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// IsNotFound returns true if the error represents a 404 response.
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == 404
}

// RateLimitError is returned when the registry rate limits requests and
// retries are exhausted.
type RateLimitError struct {
	RetryAfter int // seconds
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %d seconds", e.RetryAfter)
}

// RateLimiter controls request pacing. Implementations block until a request
// may proceed or the context is cancelled.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// Client is an HTTP client with retry logic for registry APIs.
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxRetries int
	limiter    RateLimiter
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithMaxRetries sets the maximum number of retries.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithHTTPClient sets a custom underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimiter sets a rate limiter consulted before each attempt.
func WithRateLimiter(l RateLimiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  defaultUserAgent,
		maxRetries: 5,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultClient returns a client with sensible defaults:
// - 30s timeout
// - 5 retries with exponential backoff
// - Retry on 429 and 5xx responses
func DefaultClient() *Client {
	return NewClient()
}

// WithUserAgent returns a derived client that sends the given User-Agent.
func (c *Client) WithUserAgent(ua string) *Client {
	derived := *c
	derived.userAgent = ua
	return &derived
}

// GetJSON performs a GET request and decodes the JSON response into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.GetBody(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}

// GetBody performs a GET request and returns the full response body.
// Responses with status 429 or 5xx are retried with exponential backoff;
// other non-2xx statuses fail immediately with an *HTTPError.
func (c *Client) GetBody(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	op := func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("requesting %s: %w", url, err))
		}
		defer resp.Body.Close()

		if err := checkStatus(resp, url); err != nil {
			return err
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response from %s: %w", url, err)
		}
		return nil
	}

	// backoff.Retry returns the wrapped error for Permanent failures, so
	// callers can match on *HTTPError and *RateLimitError directly.
	if err := backoff.Retry(op, c.newBackOff(ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

// Head performs a HEAD request and returns the response headers.
func (c *Client) Head(ctx context.Context, url string) (http.Header, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("head %s: %w", url, err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: url}
	}
	return resp.Header, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	bo.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxRetries)), ctx)
}

// checkStatus maps a non-2xx response to an error. Retryable statuses (429,
// 5xx) return plain errors; everything else is permanent.
func checkStatus(resp *http.Response, url string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := 0
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			retryAfter, _ = strconv.Atoi(ra)
		}
		return &RateLimitError{RetryAfter: retryAfter}

	case resp.StatusCode >= 500:
		return &HTTPError{StatusCode: resp.StatusCode, URL: url, Body: string(snippet)}

	default:
		return backoff.Permanent(&HTTPError{StatusCode: resp.StatusCode, URL: url, Body: string(snippet)})
	}
}
