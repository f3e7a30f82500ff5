// Package jellyfin provides a media server client for Jellyfin.
package jellyfin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/seerrsync/seerrsync/internal/mediaservers"
	"github.com/seerrsync/seerrsync/internal/transport"
	"github.com/seerrsync/seerrsync/pkg/errors"
	"github.com/seerrsync/seerrsync/pkg/roster"
)

// Client implements the mediaservers.Client interface for Jellyfin.
type Client struct {
	cfg   *mediaservers.Config
	http  *transport.Client
	probe *transport.Client
}

// NewClient creates a new Jellyfin client.
func NewClient(cfg *mediaservers.Config) *Client {
	auth := &transport.MediaBrowserAuth{
		Client:   "seerrsync",
		Device:   "sync",
		DeviceID: "seerrsync",
	}
	return &Client{
		cfg:   cfg,
		http:  transport.New(auth, cfg.Token),
		probe: transport.NewWithTimeout(auth, cfg.Token, transport.ProbeTimeout),
	}
}

// Name returns the configured server name.
func (c *Client) Name() string { return c.cfg.Name }

// Type returns the Jellyfin type tag.
func (c *Client) Type() mediaservers.Type { return mediaservers.TypeJellyfin }

// HealthCheck reports whether the server answers /System/Info.
func (c *Client) HealthCheck(ctx context.Context) bool {
	resp, err := c.probe.Get(ctx, c.url("/System/Info"))
	if err != nil {
		return false
	}
	defer drain(resp)

	return resp.StatusCode < http.StatusBadRequest
}

// jellyfinUser is one entry of the /Users response.
type jellyfinUser struct {
	Name          string `json:"Name"`
	Configuration struct {
		Email string `json:"Email"`
	} `json:"Configuration"`
}

// ListUsers fetches all users from the server.
func (c *Client) ListUsers(ctx context.Context) ([]roster.SourceUser, error) {
	endpoint := c.url("/Users")

	resp, err := c.http.Get(ctx, endpoint)
	if err != nil {
		return nil, errors.NewFetchError(c.cfg.Name, endpoint, 0, "request failed", err)
	}
	defer drain(resp)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, errors.NewFetchError(c.cfg.Name, endpoint, resp.StatusCode, "unexpected status", nil)
	}

	var parsed []jellyfinUser
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.NewFetchError(c.cfg.Name, endpoint, resp.StatusCode, "failed to parse response", err)
	}

	users := make([]roster.SourceUser, 0, len(parsed))
	for _, u := range parsed {
		if u.Name == "" {
			continue
		}
		users = append(users, c.cfg.SourceUser(u.Name, u.Configuration.Email))
	}
	return users, nil
}

// url joins a path onto the configured base URL.
func (c *Client) url(path string) string {
	return strings.TrimRight(c.cfg.URL, "/") + path
}

// drain discards any remaining body to allow connection reuse.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
