// Package feature switches on a device-local capability once at startup.
//
// The camera's best-snapshot REST endpoint must be enabled for track
// messages to carry images. Enabling it needs service account credentials
// from the privileged credential service, then a single authenticated PUT.
// Every failure here is logged and swallowed: alarms still flow without
// snapshots.
package feature

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nerrad567/track-alarm-bridge/internal/credentials"
)

// enableBody is the fixed request body that switches the feature on.
const enableBody = `{"data":true}`

// maxLoggedBody caps how much of the response is logged.
const maxLoggedBody = 1 << 10

// ErrToggleFailed is returned when the PUT could not be sent.
var ErrToggleFailed = errors.New("feature: toggle request failed")

// Logger is the logging surface used by the configurator.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Configurator enables one feature using fetched credentials.
type Configurator struct {
	url         string
	account     string
	credentials credentials.Provider
	http        Doer
	logger      Logger
}

// Options configures a Configurator.
type Options struct {
	// URL is the feature endpoint, e.g. .../best-snapshot/v1/enabled.
	URL string

	// Account is the logical service account name passed to Credentials.
	Account string

	// Credentials supplies the "id:secret" string. Required.
	Credentials credentials.Provider

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient Doer

	// Logger is optional.
	Logger Logger
}

// New creates a Configurator.
func New(opts Options) (*Configurator, error) {
	if opts.Credentials == nil {
		return nil, fmt.Errorf("credentials provider is required")
	}
	if opts.URL == "" {
		return nil, fmt.Errorf("feature url is required")
	}

	doer := opts.HTTPClient
	if doer == nil {
		doer = http.DefaultClient
	}

	return &Configurator{
		url:         opts.URL,
		account:     opts.Account,
		credentials: opts.Credentials,
		http:        doer,
		logger:      opts.Logger,
	}, nil
}

// Configure runs the toggle once: fetch credentials, parse them, PUT the
// enabling body. It only logs; the returned error is for callers and tests
// that want to know, and must never stop the bridge.
func (c *Configurator) Configure(ctx context.Context) error {
	cred, err := credentials.Fetch(ctx, c.credentials, c.account)
	if err != nil {
		c.logError("failed to obtain feature credentials", "account", c.account, "error", err)
		return err
	}

	status, body, err := c.put(ctx, cred)
	if err != nil {
		c.logError("failed to enable feature", "url", c.url, "error", err)
		return err
	}

	if c.logger != nil {
		c.logger.Info("feature toggle responded", "url", c.url, "status", status, "body", body)
	}
	return nil
}

// put sends the authenticated PUT and returns status and body.
func (c *Configurator) put(ctx context.Context, cred credentials.Credential) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.url, bytes.NewReader([]byte(enableBody)))
	if err != nil {
		return 0, "", fmt.Errorf("%w: building request: %w", ErrToggleFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(cred.ID, cred.Secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %w", ErrToggleFailed, err)
	}
	defer resp.Body.Close()

	// The body is only logged, so a short read is not an error.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
	return resp.StatusCode, string(body), nil
}

func (c *Configurator) logError(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Error(msg, args...)
	}
}
