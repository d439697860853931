// Package inventio talks to the Inventio smartapi: it builds endpoint URLs,
// performs requests with retries and decodes the XML answers.
package inventio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/tap-inventio/internal/xmlmap"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultBaseURL is the Inventio cloud host.
const DefaultBaseURL = "https://app.cloud.inventio.it"

// Options configures the client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string // sent only when non-empty
	MaxRetries int
	Logger     *slog.Logger
	// RequestsPerSecond throttles requests across goroutines; 0 disables it.
	RequestsPerSecond float64

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
	// Sleep overrides the wait between retries.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client fetches Inventio endpoints.
type Client struct {
	opts    Options
	http    *http.Client
	sleep   func(ctx context.Context, d time.Duration) error
	limiter *TokenBucket
	logger  *slog.Logger
}

// NewClient creates a client, filling unset options with defaults.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		opts:    opts,
		http:    httpClient,
		sleep:   sleep,
		limiter: NewTokenBucket(opts.RequestsPerSecond, 1),
		logger:  logger,
	}
}

// Request identifies one page: an endpoint for a single company.
type Request struct {
	Stream  string // endpoint type without -GET, e.g. "GLEntry"
	Company string
	Token   string
	Limit   int    // omitted when zero
	OrderBy string // replication key; enables ascending sort when set
}

// URL builds the smartapi URL of a request.
func (c *Client) URL(req Request) (string, error) {
	if req.Stream == "" {
		return "", fmt.Errorf("request has no stream")
	}
	if req.Company == "" {
		return "", fmt.Errorf("request for %s has no company", req.Stream)
	}
	base, err := url.Parse(strings.TrimRight(c.opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", &Error{URL: c.opts.BaseURL, Message: "invalid base URL", Cause: err}
	}

	base.Path = base.Path + "/" + req.Company + "/smartapi/"

	q := url.Values{}
	q.Set("type", req.Stream+"-GET")
	q.Set("token", req.Token)
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.OrderBy != "" {
		q.Set("sort", "asc")
		q.Set("order_by", req.OrderBy)
	}
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// Get fetches and decodes one page. An <error> document becomes an *APIError.
func (c *Client) Get(ctx context.Context, req Request) (map[string]any, error) {
	u, err := c.URL(req)
	if err != nil {
		return nil, err
	}
	doc, err := c.GetURL(ctx, u)
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		apiErr.Stream = req.Stream
		apiErr.Company = req.Company
	}
	return doc, err
}

// GetURL fetches and decodes an arbitrary smartapi URL. When the answer is
// an <error> document it is returned together with an *APIError.
func (c *Client) GetURL(ctx context.Context, rawURL string) (map[string]any, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &Error{URL: RedactURL(rawURL), Message: "invalid URL", Cause: redactError(err)}
	}

	body, err := c.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := xmlmap.DecodeBytes(body)
	if err != nil {
		return nil, &Error{URL: RedactURL(rawURL), Message: "failed to decode response", Cause: err}
	}
	if msg, ok := doc["error"]; ok {
		return doc, &APIError{Message: errorMessage(msg)}
	}
	return doc, nil
}

// fetch performs the request, retrying transport failures and 429/5xx.
func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	redacted := RedactURL(rawURL)

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := Backoff(attempt - 1)
			c.logger.Warn("retrying request",
				"url", redacted,
				"attempt", attempt,
				"delay", delay,
				"error", lastErr)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, &Error{URL: redacted, Message: "request cancelled", Cause: err}
			}
		}

		body, status, err := c.do(ctx, rawURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &Error{URL: redacted, Message: "request cancelled", Cause: ctx.Err()}
			}
			lastErr = &Error{URL: redacted, Message: "HTTP request failed", Cause: err}
			continue
		}
		if status == http.StatusOK {
			return body, nil
		}

		statusErr := &Error{
			URL:        redacted,
			Message:    fmt.Sprintf("HTTP status %d", status),
			StatusCode: status,
		}
		if !retryable(status) {
			return nil, statusErr
		}
		lastErr = statusErr
	}

	return nil, fmt.Errorf("giving up after %d attempts: %w", c.opts.MaxRetries+1, lastErr)
}

func (c *Client) do(ctx context.Context, rawURL string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, redactError(err)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, redactError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// RedactURL masks the token query parameter so URLs can be logged.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	q := u.Query()
	if q.Has("token") {
		q.Set("token", "****")
		u.RawQuery = strings.Replace(q.Encode(), "token=%2A%2A%2A%2A", "token=****", 1)
	}
	return u.String()
}

// redactError masks the token in the URL carried by transport errors.
func redactError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = RedactURL(urlErr.URL)
	}
	return err
}
