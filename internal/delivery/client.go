package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// maxLoggedBody caps how much of a response body is kept for logging.
const maxLoggedBody = 4 << 10

// Logger is the logging surface used by the client.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Outcome describes a single delivery attempt.
type Outcome struct {
	// Delivered is true when the request reached the server, whatever the status.
	Delivered bool

	// StatusCode is the HTTP status, zero when nothing was received.
	StatusCode int

	// Body is the (possibly truncated) response body, kept for logging only.
	Body string

	// Err is set when Delivered is false.
	Err error
}

// Client POSTs serialised alarms to a fixed URL.
type Client struct {
	url    string
	http   Doer
	logger Logger
}

// Options configures a Client.
type Options struct {
	// URL is the alarm server endpoint.
	URL string

	// HTTPClient overrides the transport. Defaults to http.DefaultClient,
	// which keeps the transport's own timeouts.
	HTTPClient Doer

	// Logger is optional.
	Logger Logger
}

// NewClient validates the endpoint and returns a ready Client.
func NewClient(opts Options) (*Client, error) {
	u, err := url.Parse(opts.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, opts.URL)
	}

	doer := opts.HTTPClient
	if doer == nil {
		doer = http.DefaultClient
	}

	return &Client{
		url:    opts.URL,
		http:   doer,
		logger: opts.Logger,
	}, nil
}

// URL returns the configured endpoint.
func (c *Client) URL() string {
	return c.url
}

// Deliver sends body once and reports what happened. It never retries.
func (c *Client) Deliver(ctx context.Context, body []byte) Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return c.fail(fmt.Errorf("%w: building request: %w", ErrSendFailed, err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(fmt.Errorf("%w: %w", ErrSendFailed, err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
	if err != nil {
		// The request was sent and a status received; only the body is lost.
		c.logInfo("alarm server responded, body unreadable", "status", resp.StatusCode, "error", err)
		return Outcome{Delivered: true, StatusCode: resp.StatusCode}
	}

	c.logInfo("response from alarm server", "status", resp.StatusCode, "body", string(respBody))

	return Outcome{
		Delivered:  true,
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
	}
}

func (c *Client) fail(err error) Outcome {
	if c.logger != nil {
		c.logger.Error("alarm delivery failed", "url", c.url, "error", err)
	}
	return Outcome{Err: err}
}

func (c *Client) logInfo(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}
