// Package plex provides a media server client backed by the plex.tv API.
package plex

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/seerrsync/seerrsync/internal/mediaservers"
	"github.com/seerrsync/seerrsync/internal/transport"
	"github.com/seerrsync/seerrsync/pkg/errors"
	"github.com/seerrsync/seerrsync/pkg/roster"
)

const defaultBaseURL = "https://plex.tv"

// Client implements the mediaservers.Client interface for Plex. Users are
// enumerated through the plex.tv account API, not the local server, so the
// configured URL is not used.
type Client struct {
	cfg     *mediaservers.Config
	http    *transport.Client
	probe   *transport.Client
	baseURL string
}

// NewClient creates a new Plex client.
func NewClient(cfg *mediaservers.Config) *Client {
	auth := &transport.HeaderAuth{Header: "X-Plex-Token"}
	return &Client{
		cfg:     cfg,
		http:    transport.New(auth, cfg.Token),
		probe:   transport.NewWithTimeout(auth, cfg.Token, transport.ProbeTimeout),
		baseURL: defaultBaseURL,
	}
}

// Name returns the configured server name.
func (c *Client) Name() string { return c.cfg.Name }

// Type returns the Plex type tag.
func (c *Client) Type() mediaservers.Type { return mediaservers.TypePlex }

// HealthCheck reports whether the plex.tv API answers for this token.
func (c *Client) HealthCheck(ctx context.Context) bool {
	req, err := c.newRequest(ctx, c.baseURL+"/api/users")
	if err != nil {
		return false
	}

	resp, err := c.probe.Do(req)
	if err != nil {
		return false
	}
	defer drain(resp)

	return resp.StatusCode < http.StatusBadRequest
}

// ListUsers fetches all users the account shares with. When a machine
// identifier is configured, only users shared with that specific server
// are returned.
func (c *Client) ListUsers(ctx context.Context) ([]roster.SourceUser, error) {
	if c.cfg.MachineIdentifier != "" {
		return c.sharedServerUsers(ctx)
	}
	return c.accountUsers(ctx)
}

// accountUsers lists all friends of the account via /api/users.
func (c *Client) accountUsers(ctx context.Context) ([]roster.SourceUser, error) {
	endpoint := c.baseURL + "/api/users"

	parsed, err := c.fetch(ctx, endpoint, "User")
	if err != nil {
		return nil, err
	}

	users := make([]roster.SourceUser, 0, len(parsed))
	for _, u := range parsed {
		if u.Username == "" {
			continue
		}
		users = append(users, c.cfg.SourceUser(u.Username, u.Email))
	}
	return users, nil
}

// sharedServerUsers lists users shared with one specific server. The
// account owner is prepended when include_owner is configured; an owner
// lookup failure is soft and only drops the owner from the roster.
func (c *Client) sharedServerUsers(ctx context.Context) ([]roster.SourceUser, error) {
	var users []roster.SourceUser

	if c.cfg.IncludeOwner {
		if owner := c.accountOwner(ctx); owner != nil {
			users = append(users, *owner)
		}
	}

	endpoint := c.baseURL + "/api/servers/" + c.cfg.MachineIdentifier + "/shared_servers"

	parsed, err := c.fetch(ctx, endpoint, "SharedServer")
	if err != nil {
		return nil, err
	}

	for _, u := range parsed {
		if u.Username == "" {
			continue
		}
		users = append(users, c.cfg.SourceUser(u.Username, u.Email))
	}
	return users, nil
}

// accountOwner fetches the token's own account from /api/v2/user.
// Returns nil on any failure.
func (c *Client) accountOwner(ctx context.Context) *roster.SourceUser {
	req, err := c.newRequest(ctx, c.baseURL+"/api/v2/user")
	if err != nil {
		return nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil
	}
	defer drain(resp)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil
	}

	var owner plexUser
	if err := json.NewDecoder(resp.Body).Decode(&owner); err != nil {
		return nil
	}
	if owner.Username == "" {
		return nil
	}

	user := c.cfg.SourceUser(owner.Username, owner.Email)
	return &user
}

// fetch performs a GET against endpoint and parses the user list found
// under element, handling both XML and JSON response shapes.
func (c *Client) fetch(ctx context.Context, endpoint, element string) ([]plexUser, error) {
	req, err := c.newRequest(ctx, endpoint)
	if err != nil {
		return nil, errors.NewFetchError(c.cfg.Name, endpoint, 0, "failed to create request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.NewFetchError(c.cfg.Name, endpoint, 0, "request failed", err)
	}
	defer drain(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewFetchError(c.cfg.Name, endpoint, resp.StatusCode, "failed to read response", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, errors.NewFetchError(c.cfg.Name, endpoint, resp.StatusCode, "unexpected status", nil)
	}

	parsed, err := parseUsers(body, resp.Header.Get("Content-Type"), element)
	if err != nil {
		return nil, errors.NewFetchError(c.cfg.Name, endpoint, resp.StatusCode, "failed to parse response", err)
	}
	return parsed, nil
}

// newRequest builds a plex.tv request with the per-request client
// identifier the API requires.
func (c *Client) newRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Plex-Client-Identifier", uuid.NewString())
	req.Header.Set("Accept", "application/json, application/xml")
	return req, nil
}

// drain discards any remaining body to allow connection reuse.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// plexUser is one user entry in either response format.
type plexUser struct {
	Username string `json:"username" xml:"username,attr"`
	Email    string `json:"email" xml:"email,attr"`
}

// plexUserList accepts both a JSON array and a single object, since the
// API converts single-element XML lists to bare objects.
type plexUserList []plexUser

// UnmarshalJSON implements json.Unmarshaler.
func (l *plexUserList) UnmarshalJSON(data []byte) error {
	var list []plexUser
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single plexUser
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*l = plexUserList{single}
	return nil
}

// mediaContainerXML is the XML response envelope.
type mediaContainerXML struct {
	XMLName       xml.Name   `xml:"MediaContainer"`
	Users         []plexUser `xml:"User"`
	SharedServers []plexUser `xml:"SharedServer"`
}

// usersEnvelope covers the JSON response shapes the API produces.
type usersEnvelope struct {
	MediaContainer *struct {
		User         plexUserList `json:"User"`
		SharedServer plexUserList `json:"SharedServer"`
	} `json:"MediaContainer"`
	Users        []plexUser   `json:"users"`
	SharedServer plexUserList `json:"SharedServer"`
}

// parseUsers handles the XML and JSON variants the plex.tv API returns.
// element selects which entry list to read ("User" or "SharedServer").
func parseUsers(body []byte, contentType, element string) ([]plexUser, error) {
	trimmed := strings.TrimSpace(string(body))

	if strings.Contains(strings.ToLower(contentType), "xml") || strings.HasPrefix(trimmed, "<") {
		var container mediaContainerXML
		if err := xml.Unmarshal(body, &container); err != nil {
			return nil, err
		}
		if element == "SharedServer" {
			return container.SharedServers, nil
		}
		return container.Users, nil
	}

	// A bare JSON array of users.
	if strings.HasPrefix(trimmed, "[") {
		var list []plexUser
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var envelope usersEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}

	if envelope.MediaContainer != nil {
		if element == "SharedServer" {
			return envelope.MediaContainer.SharedServer, nil
		}
		return envelope.MediaContainer.User, nil
	}
	if element == "SharedServer" && len(envelope.SharedServer) > 0 {
		return envelope.SharedServer, nil
	}
	return envelope.Users, nil
}
