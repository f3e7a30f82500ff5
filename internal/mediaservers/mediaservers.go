// Package mediaservers defines the client interface and configuration for
// the media servers that act as user directories. One client implementation
// exists per server type; a registry selects the implementation from the
// configured type tag.
package mediaservers

import (
	"context"
	"fmt"

	"github.com/seerrsync/seerrsync/pkg/roster"
)

// Type identifies a media server implementation.
type Type string

// Supported media server types.
const (
	TypePlex     Type = "plex"
	TypeJellyfin Type = "jellyfin"
	TypeEmby     Type = "emby"
)

// String returns the string representation of the type.
func (t Type) String() string {
	return string(t)
}

// Types returns all supported media server types.
func Types() []Type {
	return []Type{TypePlex, TypeJellyfin, TypeEmby}
}

// ParseType parses a type tag. Unknown tags are an error so that a typo in
// configuration fails loudly instead of silently defaulting.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypePlex, TypeJellyfin, TypeEmby:
		return Type(s), nil
	default:
		return "", fmt.Errorf("unsupported media server type: %q", s)
	}
}

// Config holds the configuration for one media server.
type Config struct {
	// Name is the unique, human-chosen server name. It is the identity
	// recorded in override records for outage protection.
	Name string `yaml:"name" mapstructure:"name"`

	// Type selects the client implementation.
	Type Type `yaml:"type" mapstructure:"type"`

	// URL is the server base URL. Unused for Plex, which is reached
	// through the plex.tv API.
	URL string `yaml:"url" mapstructure:"url"`

	// Token authenticates against the server API.
	Token string `yaml:"token" mapstructure:"token"`

	// Enabled excludes the server from sync runs when false.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// PasswordSuffix is appended to the username to derive the password
	// for accounts created from this server's users.
	PasswordSuffix string `yaml:"password_suffix,omitempty" mapstructure:"password_suffix"`

	// RequestLimit applies to accounts created from this server's users,
	// nil meaning the service default.
	RequestLimit *int `yaml:"request_limit,omitempty" mapstructure:"request_limit"`

	// MachineIdentifier restricts a Plex client to users shared with one
	// specific server rather than the whole account.
	MachineIdentifier string `yaml:"machine_identifier,omitempty" mapstructure:"machine_identifier"`

	// IncludeOwner includes the server owner/admin account in the roster.
	IncludeOwner bool `yaml:"include_owner" mapstructure:"include_owner"`
}

// SourceUser builds a roster record for username/email attributed to this
// server's configuration.
func (c *Config) SourceUser(username, email string) roster.SourceUser {
	return roster.SourceUser{
		Username:       username,
		Email:          email,
		SourceServer:   c.Name,
		SourceType:     string(c.Type),
		PasswordSuffix: c.PasswordSuffix,
		RequestLimit:   c.RequestLimit,
	}
}

// Client is the capability set every media server implementation provides.
type Client interface {
	// Name returns the configured server name.
	Name() string

	// Type returns the server type tag.
	Type() Type

	// HealthCheck reports whether the server is reachable. A failed
	// probe returns false; it never returns an error.
	HealthCheck(ctx context.Context) bool

	// ListUsers fetches the full roster. Any network or parse failure
	// returns a *errors.FetchError carrying the server name.
	ListUsers(ctx context.Context) ([]roster.SourceUser, error)
}
