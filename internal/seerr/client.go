// Package seerr provides the client for the Overseerr/Jellyseerr API, the
// request service that sync runs keep aligned with the media server rosters.
package seerr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/seerrsync/seerrsync/internal/transport"
	"github.com/seerrsync/seerrsync/pkg/errors"
)

// pageSize is the take parameter used for paginated listings.
const pageSize = 20

// Config holds the connection settings for the request service.
type Config struct {
	URL    string `yaml:"url" mapstructure:"url"`
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
}

// Validate checks that the configuration is complete.
func (c *Config) Validate() error {
	if c.URL == "" || c.APIKey == "" {
		return errors.NewConfigError("seerr", "url and api_key are required", nil)
	}
	return nil
}

// User is an account as it exists in the request service.
type User struct {
	ID          int    `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Permissions int    `json:"permissions"`
	CreatedAt   string `json:"createdAt"`
}

// Client talks to the Overseerr/Jellyseerr v1 API.
type Client struct {
	http    *transport.Client
	baseURL string
}

// NewClient creates a new request service client.
func NewClient(cfg Config) *Client {
	return &Client{
		http:    transport.New(&transport.HeaderAuth{Header: "X-Api-Key"}, cfg.APIKey),
		baseURL: strings.TrimRight(cfg.URL, "/") + "/api/v1",
	}
}

// userPage is one page of the paginated /user listing.
type userPage struct {
	PageInfo struct {
		Page  int `json:"page"`
		Pages int `json:"pages"`
	} `json:"pageInfo"`
	Results []User `json:"results"`
}

// ListUsers fetches all accounts, following skip/take pagination.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User

	for skip := 0; ; skip += pageSize {
		endpoint := c.baseURL + "/user?take=" + strconv.Itoa(pageSize) + "&skip=" + strconv.Itoa(skip)

		resp, err := c.http.Get(ctx, endpoint)
		if err != nil {
			return nil, errors.NewGatewayError("list", "", 0, "request failed", err)
		}

		var page userPage
		if err := decode(resp, &page); err != nil {
			return nil, errors.NewGatewayError("list", "", resp.StatusCode, "failed to list users", err)
		}

		users = append(users, page.Results...)

		// Short page means the last one; the pageInfo check covers
		// servers that pad pages to the full take.
		if len(page.Results) < pageSize {
			break
		}
		if page.PageInfo.Page >= page.PageInfo.Pages {
			break
		}
	}

	return users, nil
}

// CreateUser creates a local account. The password is included in the
// creation payload so the service does not require a configured email
// agent. A 409 maps to errors.ErrAlreadyExists.
func (c *Client) CreateUser(ctx context.Context, username, password string, permissions int) (*User, error) {
	payload := map[string]any{
		"username":    username,
		"permissions": permissions,
	}
	if password != "" {
		payload["password"] = password
	}

	resp, err := c.do(ctx, http.MethodPost, "/user", payload)
	if err != nil {
		return nil, errors.NewGatewayError("create", username, 0, "request failed", err)
	}

	if resp.StatusCode == http.StatusConflict {
		drain(resp)
		return nil, errors.NewGatewayError("create", username, resp.StatusCode, "user already exists", errors.ErrAlreadyExists)
	}

	var user User
	if err := decode(resp, &user); err != nil {
		return nil, errors.NewGatewayError("create", username, resp.StatusCode, "failed to create user", err)
	}
	return &user, nil
}

// DeleteUser removes an account by ID.
func (c *Client) DeleteUser(ctx context.Context, id int) error {
	resp, err := c.do(ctx, http.MethodDelete, "/user/"+strconv.Itoa(id), nil)
	if err != nil {
		return errors.NewGatewayError("delete", "", 0, "request failed", err)
	}
	defer drain(resp)

	if resp.StatusCode >= http.StatusBadRequest {
		return errors.NewGatewayError("delete", "", resp.StatusCode, "failed to delete user "+strconv.Itoa(id), nil)
	}
	return nil
}

// SetPassword sets an account's password.
func (c *Client) SetPassword(ctx context.Context, id int, password string) error {
	payload := map[string]string{
		"currentPassword": "",
		"newPassword":     password,
		"confirmPassword": password,
	}

	resp, err := c.do(ctx, http.MethodPost, "/user/"+strconv.Itoa(id)+"/settings/password", payload)
	if err != nil {
		return errors.NewGatewayError("set_password", "", 0, "request failed", err)
	}
	defer drain(resp)

	if resp.StatusCode >= http.StatusBadRequest {
		return errors.NewGatewayError("set_password", "", resp.StatusCode, "failed to set password for user "+strconv.Itoa(id), nil)
	}
	return nil
}

// SetRequestLimit sets an account's movie and tv request quotas. Older
// service versions lack the quota settings endpoint, so a 404 falls back
// to updating the user resource directly.
func (c *Client) SetRequestLimit(ctx context.Context, id int, movieLimit, tvLimit *int) error {
	payload := map[string]any{}
	if movieLimit != nil {
		payload["movie"] = map[string]int{"limit": *movieLimit}
	}
	if tvLimit != nil {
		payload["tv"] = map[string]int{"limit": *tvLimit}
	}
	if len(payload) == 0 {
		return nil
	}

	resp, err := c.do(ctx, http.MethodPost, "/user/"+strconv.Itoa(id)+"/settings/quota", payload)
	if err != nil {
		return errors.NewGatewayError("set_request_limit", "", 0, "request failed", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		drain(resp)
		resp, err = c.do(ctx, http.MethodPut, "/user/"+strconv.Itoa(id), payload)
		if err != nil {
			return errors.NewGatewayError("set_request_limit", "", 0, "request failed", err)
		}
	}
	defer drain(resp)

	if resp.StatusCode >= http.StatusBadRequest {
		return errors.NewGatewayError("set_request_limit", "", resp.StatusCode, "failed to set request limit for user "+strconv.Itoa(id), nil)
	}
	return nil
}

// About fetches the service's /settings/about payload.
func (c *Client) About(ctx context.Context) (map[string]any, error) {
	resp, err := c.http.Get(ctx, c.baseURL+"/settings/about")
	if err != nil {
		return nil, errors.NewGatewayError("about", "", 0, "request failed", err)
	}

	var about map[string]any
	if err := decode(resp, &about); err != nil {
		return nil, errors.NewGatewayError("about", "", resp.StatusCode, "failed to fetch stats", err)
	}
	return about, nil
}

// do performs a request with a JSON payload against the API base.
func (c *Client) do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	return c.http.Do(req)
}

// decode reads a JSON response body, treating error statuses as failures.
func decode(resp *http.Response, v any) error {
	defer drain(resp)

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

// drain discards any remaining body to allow connection reuse.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
