// Package apiclient provides the HTTP plumbing shared by provider adapters:
// authenticated JSON requests with exponential backoff, streaming downloads,
// and a deadline-bounded polling loop. Status codes are mapped onto the
// generator error taxonomy so adapters stay protocol-only.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/generator"
)

// Static errors for provider HTTP operations.
var (
	// ErrBaseURLRequired is returned when the client has no base URL.
	ErrBaseURLRequired = errors.New("apiclient: base URL is required")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("server error")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("rate limited")
	// ErrRequestFailed is returned when the request fails with a non-2xx status code.
	ErrRequestFailed = errors.New("request failed")
)

// maxErrorBody bounds how much of a response body is quoted in errors.
const maxErrorBody = 512

// Client is an authenticated HTTP client for one provider API.
type Client struct {
	provider     string
	baseURL      string
	authHeader   string
	httpClient   *http.Client
	maxRetries   int
	baseBackoff  time.Duration
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBaseURL overrides the provider's API base URL.
func WithBaseURL(url string) Option {
	return func(cl *Client) {
		cl.baseURL = strings.TrimRight(url, "/")
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) Option {
	return func(cl *Client) {
		if n >= 0 {
			cl.maxRetries = n
		}
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) Option {
	return func(cl *Client) {
		cl.baseBackoff = d
	}
}

// WithPollInterval sets the delay between status polls.
func WithPollInterval(d time.Duration) Option {
	return func(cl *Client) {
		cl.pollInterval = d
	}
}

// WithPollTimeout sets how long Poll waits for a generation to finish.
func WithPollTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.pollTimeout = d
	}
}

// New creates a client for provider. authHeader is the full Authorization
// header value, e.g. "Bearer sk-..." or "Key ...".
func New(provider, baseURL, authHeader string, opts ...Option) (*Client, error) {
	c := &Client{
		provider:     provider,
		baseURL:      strings.TrimRight(baseURL, "/"),
		authHeader:   authHeader,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		maxRetries:   3,
		baseBackoff:  1 * time.Second,
		pollInterval: 5 * time.Second,
		pollTimeout:  10 * time.Minute,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.baseURL == "" {
		return nil, ErrBaseURLRequired
	}
	return c, nil
}

// Provider returns the provider name used in errors.
func (c *Client) Provider() string {
	return c.provider
}

// URL joins path onto the base URL. Absolute URLs are returned unchanged.
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// AuthHeader returns the Authorization header value the client sends.
func (c *Client) AuthHeader() string {
	return c.authHeader
}

// DoJSON marshals body (if non-nil), sends it with retry, and decodes the
// response into out (if non-nil).
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", c.provider, err)
		}
		payload = b
	}
	return c.Do(ctx, method, path, "application/json", payload, out)
}

// Do sends a raw payload with the given content type, retrying transient
// failures with exponential backoff.
func (c *Client) Do(ctx context.Context, method, path, contentType string, body []byte, out any) error {
	url := c.URL(path)
	return c.withRetry(ctx, func() error {
		return c.doRequest(ctx, method, url, contentType, body, out)
	})
}

// Stream opens a GET request and returns the response body once a 2xx
// status is received. Opening the stream is retried; reading it is not.
func (c *Client) Stream(ctx context.Context, path string) (io.ReadCloser, error) {
	url := c.URL(path)
	var body io.ReadCloser
	err := c.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("%s: create request: %w", c.provider, err)
		}
		c.authorize(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &generator.TransientError{Provider: c.provider, Err: fmt.Errorf("request failed: %w", err)}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			defer func() { _ = resp.Body.Close() }()
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return c.statusError(resp.StatusCode, respBody)
		}
		body = resp.Body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Poll calls check every poll interval until it reports done, returns an
// error, or the poll timeout elapses. A timeout is a TransientError
// wrapping generator.ErrPollTimeout.
func (c *Client) Poll(ctx context.Context, check func(ctx context.Context) (done bool, err error)) error {
	deadline := time.Now().Add(c.pollTimeout)

	for {
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if !time.Now().Before(deadline) {
			return &generator.TransientError{
				Provider: c.provider,
				Err:      fmt.Errorf("%w after %s", generator.ErrPollTimeout, c.pollTimeout),
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: context cancelled: %w", c.provider, ctx.Err())
		case <-time.After(c.pollInterval):
		}
	}
}

// withRetry runs fn with exponential backoff while it returns a TransientError.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	backoff := c.baseBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: context cancelled: %w", c.provider, ctx.Err())
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if !generator.IsRetryable(err) {
			return err
		}
		lastErr = err
	}

	var te *generator.TransientError
	if errors.As(lastErr, &te) {
		lastErr = te.Err
	}
	return &generator.TransientError{
		Provider: c.provider,
		Err:      fmt.Errorf("max retries exceeded: %w", lastErr),
	}
}

// doRequest performs a single HTTP request.
func (c *Client) doRequest(ctx context.Context, method, url, contentType string, body []byte, out any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.provider, err)
	}
	c.authorize(req)
	if body != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &generator.TransientError{Provider: c.provider, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &generator.TransientError{Provider: c.provider, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%s: unmarshal response: %w", c.provider, err)
		}
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}
}

// statusError maps a non-2xx response onto the generator error taxonomy.
func (c *Client) statusError(code int, body []byte) error {
	text := truncate(string(body))
	switch {
	case code >= 500:
		return &generator.TransientError{Provider: c.provider, Err: fmt.Errorf("%w %d: %s", ErrServerError, code, text)}
	case code == http.StatusTooManyRequests:
		return &generator.TransientError{Provider: c.provider, Err: fmt.Errorf("%w: %s", ErrRateLimited, text)}
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &generator.AuthError{Provider: c.provider, Err: fmt.Errorf("%w with status %d: %s", ErrRequestFailed, code, text)}
	default:
		return &generator.UnsupportedParameterError{Provider: c.provider, Reason: fmt.Sprintf("rejected with status %d: %s", code, text)}
	}
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
