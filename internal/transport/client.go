// Package transport provides the shared HTTP client used by media server
// and request service clients, with pluggable authentication and bounded
// timeouts on every outbound call.
package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/seerrsync/seerrsync/pkg/errors"
)

// Default timeouts mirror the probe/fetch split: health probes stay short
// so an unreachable server does not stall the run.
const (
	DefaultTimeout = 10 * time.Second
	ProbeTimeout   = 5 * time.Second
)

// Client provides HTTP client functionality with authentication.
type Client struct {
	http  *http.Client
	auth  Authenticator
	token string
}

// New creates a new transport client with the specified authenticator
// and token.
func New(auth Authenticator, token string) *Client {
	return NewWithTimeout(auth, token, DefaultTimeout)
}

// NewWithTimeout creates a transport client with an explicit timeout.
func NewWithTimeout(auth Authenticator, token string, timeout time.Duration) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:  &http.Client{Timeout: timeout},
		auth:  auth,
		token: token,
	}
}

// Do performs an HTTP request with authentication applied.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.token != "" {
		c.auth.Apply(req, c.token)
	}

	// Set common headers
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.http.Do(req)
}

// Get performs a GET request against url.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapIO("create", "GET "+url, err)
	}
	return c.Do(req)
}
