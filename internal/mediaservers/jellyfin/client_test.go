package jellyfin

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seerrsync/seerrsync/internal/mediaservers"
	"github.com/seerrsync/seerrsync/pkg/errors"
)

func jellyfinConfig(url string) *mediaservers.Config {
	return &mediaservers.Config{
		Name:    "Jellyfin",
		Type:    mediaservers.TypeJellyfin,
		URL:     url,
		Token:   "token",
		Enabled: true,
	}
}

func TestListUsers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/Users", r.URL.Path)
		assert.Contains(t, r.Header.Get("X-Emby-Authorization"), `Token="token"`)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"Name":"Alice","Configuration":{"Email":"alice@example.com"}},
			{"Name":"bob","Configuration":{}},
			{"Name":""}
		]`))
	}))
	defer srv.Close()

	c := NewClient(jellyfinConfig(srv.URL))
	users, err := c.ListUsers(t.Context())
	require.NoError(t, err)

	require.Len(t, users, 2)
	assert.Equal(t, "Alice", users[0].Username)
	assert.Equal(t, "alice@example.com", users[0].Email)
	assert.Equal(t, "jellyfin", users[0].SourceType)
	assert.Empty(t, users[1].Email)
}

func TestListUsersTrailingSlashURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/Users", r.URL.Path)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(jellyfinConfig(srv.URL + "/"))
	users, err := c.ListUsers(t.Context())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestListUsersErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(jellyfinConfig(srv.URL))
	_, err := c.ListUsers(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsFetch(err))
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/System/Info", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(jellyfinConfig(srv.URL))
	assert.True(t, c.HealthCheck(t.Context()))

	srv.Close()
	assert.False(t, c.HealthCheck(t.Context()))
}
