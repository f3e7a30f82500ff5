// Package emby provides a media server client for Emby.
package emby

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/seerrsync/seerrsync/internal/mediaservers"
	"github.com/seerrsync/seerrsync/internal/transport"
	"github.com/seerrsync/seerrsync/pkg/errors"
	"github.com/seerrsync/seerrsync/pkg/roster"
)

// Client implements the mediaservers.Client interface for Emby. Emby
// authenticates with an api_key query parameter rather than a header.
type Client struct {
	cfg   *mediaservers.Config
	http  *transport.Client
	probe *transport.Client
}

// NewClient creates a new Emby client.
func NewClient(cfg *mediaservers.Config) *Client {
	auth := &transport.QueryAuth{Param: "api_key"}
	return &Client{
		cfg:   cfg,
		http:  transport.New(auth, cfg.Token),
		probe: transport.NewWithTimeout(auth, cfg.Token, transport.ProbeTimeout),
	}
}

// Name returns the configured server name.
func (c *Client) Name() string { return c.cfg.Name }

// Type returns the Emby type tag.
func (c *Client) Type() mediaservers.Type { return mediaservers.TypeEmby }

// HealthCheck reports whether the server answers /System/Info.
func (c *Client) HealthCheck(ctx context.Context) bool {
	resp, err := c.probe.Get(ctx, c.url("/System/Info", nil))
	if err != nil {
		return false
	}
	defer drain(resp)

	return resp.StatusCode < http.StatusBadRequest
}

// usersQueryResponse is the QueryResult_UserDto envelope of /Users/Query.
type usersQueryResponse struct {
	Items []embyUser `json:"Items"`
}

// embyUser is one entry of the /Users/Query response.
type embyUser struct {
	Name          string `json:"Name"`
	Configuration struct {
		Email string `json:"Email"`
	} `json:"Configuration"`
}

// ListUsers fetches all enabled users from the server. Hidden users are
// excluded unless the owner is included, since Emby marks the admin
// account hidden by default.
func (c *Client) ListUsers(ctx context.Context) ([]roster.SourceUser, error) {
	params := url.Values{"IsDisabled": []string{"false"}}
	if !c.cfg.IncludeOwner {
		params.Set("IsHidden", "false")
	}
	endpoint := c.url("/Users/Query", params)

	resp, err := c.http.Get(ctx, endpoint)
	if err != nil {
		return nil, errors.NewFetchError(c.cfg.Name, endpoint, 0, "request failed", err)
	}
	defer drain(resp)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, errors.NewFetchError(c.cfg.Name, endpoint, resp.StatusCode, "unexpected status", nil)
	}

	var parsed usersQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.NewFetchError(c.cfg.Name, endpoint, resp.StatusCode, "failed to parse response", err)
	}

	users := make([]roster.SourceUser, 0, len(parsed.Items))
	for _, u := range parsed.Items {
		if u.Name == "" {
			continue
		}
		users = append(users, c.cfg.SourceUser(u.Name, u.Configuration.Email))
	}
	return users, nil
}

// url joins a path and query onto the configured base URL.
func (c *Client) url(path string, params url.Values) string {
	u := strings.TrimRight(c.cfg.URL, "/") + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// drain discards any remaining body to allow connection reuse.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
