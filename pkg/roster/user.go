// Package roster provides the user types reported by media servers and the
// merge logic that folds per-server rosters into one canonical user set.
// The package is pure data transformation: no network access, no side
// effects, no failure modes.
package roster

import "strings"

// SourceUser is one user record as reported by a single media server.
// Records are created fresh on every fetch and never mutated.
type SourceUser struct {
	// Username is free text, compared case-insensitively.
	Username string

	// Email is optional.
	Email string

	// SourceServer is the configured name of the reporting server.
	SourceServer string

	// SourceType is the server type tag ("plex", "jellyfin", "emby").
	SourceType string

	// PasswordSuffix is the per-server suffix appended to the username
	// to derive a newly created account's password.
	PasswordSuffix string

	// RequestLimit is the per-server request limit, nil when unset.
	RequestLimit *int
}

// CanonicalUser is the merged view of one identity across all media servers
// that reported it. Built once per sync run and discarded at run end.
type CanonicalUser struct {
	// Username preserves the first-seen casing.
	Username string

	// Email is the first non-empty email encountered.
	Email string

	// SourceServers is the ordered set of unique server names that
	// reported this user.
	SourceServers []string

	// SourceTypes is the ordered set of unique server type tags.
	SourceTypes []string

	// PasswordSuffix is the first non-empty suffix encountered.
	PasswordSuffix string

	// RequestLimit is the first non-nil limit encountered.
	RequestLimit *int
}

// Key returns the case-normalized merge key for the user.
func (u *CanonicalUser) Key() string {
	return Key(u.Username)
}

// Password derives the initial account password: username concatenated
// with the resolved suffix. An empty suffix means the plain username.
func (u *CanonicalUser) Password() string {
	return u.Username + u.PasswordSuffix
}

// HasSource reports whether the given server name reported this user.
func (u *CanonicalUser) HasSource(server string) bool {
	for _, s := range u.SourceServers {
		if s == server {
			return true
		}
	}
	return false
}

// Key normalizes a username for case-insensitive comparison.
func Key(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
