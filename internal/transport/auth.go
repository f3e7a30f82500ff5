package transport

import (
	"fmt"
	"net/http"
)

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request, token string)
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request, _ string) {
	// No authentication applied
}

// HeaderAuth implements custom header authentication, e.g. X-Plex-Token
// for Plex and X-Api-Key for Overseerr/Jellyseerr.
type HeaderAuth struct {
	Header string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(req *http.Request, token string) {
	req.Header.Set(a.Header, token)
}

// QueryAuth implements token-as-query-parameter authentication, used by
// the Emby API (api_key parameter).
type QueryAuth struct {
	Param string
}

// Apply implements the Authenticator interface for QueryAuth.
func (a *QueryAuth) Apply(req *http.Request, token string) {
	if req.URL == nil {
		return
	}

	query := req.URL.Query()
	query.Set(a.Param, token)
	req.URL.RawQuery = query.Encode()
}

// MediaBrowserAuth implements the X-Emby-Authorization header scheme used
// by Jellyfin.
type MediaBrowserAuth struct {
	Client   string
	Device   string
	DeviceID string
}

// Apply implements the Authenticator interface for MediaBrowserAuth.
func (a *MediaBrowserAuth) Apply(req *http.Request, token string) {
	client := a.Client
	if client == "" {
		client = "seerrsync"
	}
	device := a.Device
	if device == "" {
		device = "seerrsync"
	}
	deviceID := a.DeviceID
	if deviceID == "" {
		deviceID = "seerrsync"
	}

	req.Header.Set("X-Emby-Authorization", fmt.Sprintf(
		`MediaBrowser Client=%q, Device=%q, DeviceId=%q, Token=%q`,
		client, device, deviceID, token,
	))
}
