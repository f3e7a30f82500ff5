package plex

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seerrsync/seerrsync/internal/mediaservers"
	"github.com/seerrsync/seerrsync/pkg/errors"
)

func testClient(cfg *mediaservers.Config, baseURL string) *Client {
	c := NewClient(cfg)
	c.baseURL = baseURL
	return c
}

func plexConfig() *mediaservers.Config {
	return &mediaservers.Config{
		Name:           "Plex Main",
		Type:           mediaservers.TypePlex,
		Token:          "token",
		Enabled:        true,
		PasswordSuffix: "2025",
	}
}

func TestListUsersXML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/users", r.URL.Path)
		assert.Equal(t, "token", r.Header.Get("X-Plex-Token"))
		assert.NotEmpty(t, r.Header.Get("X-Plex-Client-Identifier"))

		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(`<?xml version="1.0"?>
<MediaContainer size="2">
  <User id="1" username="Alice" email="alice@example.com"/>
  <User id="2" username="bob" email=""/>
</MediaContainer>`))
	}))
	defer srv.Close()

	c := testClient(plexConfig(), srv.URL)
	users, err := c.ListUsers(t.Context())
	require.NoError(t, err)

	require.Len(t, users, 2)
	assert.Equal(t, "Alice", users[0].Username)
	assert.Equal(t, "alice@example.com", users[0].Email)
	assert.Equal(t, "Plex Main", users[0].SourceServer)
	assert.Equal(t, "plex", users[0].SourceType)
	assert.Equal(t, "2025", users[0].PasswordSuffix)
}

func TestListUsersJSONMediaContainer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"MediaContainer":{"User":[{"username":"alice"},{"username":"bob","email":"bob@example.com"}]}}`))
	}))
	defer srv.Close()

	c := testClient(plexConfig(), srv.URL)
	users, err := c.ListUsers(t.Context())
	require.NoError(t, err)

	require.Len(t, users, 2)
	assert.Equal(t, "bob@example.com", users[1].Email)
}

func TestListUsersJSONSingleObjectList(t *testing.T) {
	// The API collapses single-element lists into bare objects.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"MediaContainer":{"User":{"username":"alice"}}}`))
	}))
	defer srv.Close()

	c := testClient(plexConfig(), srv.URL)
	users, err := c.ListUsers(t.Context())
	require.NoError(t, err)

	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
}

func TestListUsersBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"username":"alice"},{"username":"bob"}]`))
	}))
	defer srv.Close()

	c := testClient(plexConfig(), srv.URL)
	users, err := c.ListUsers(t.Context())
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestSharedServerUsersWithOwner(t *testing.T) {
	cfg := plexConfig()
	cfg.MachineIdentifier = "abc123"
	cfg.IncludeOwner = true

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/user":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"username":"owner","email":"owner@example.com"}`))
		case "/api/servers/abc123/shared_servers":
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(`<MediaContainer><SharedServer username="friend" email=""/></MediaContainer>`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := testClient(cfg, srv.URL)
	users, err := c.ListUsers(t.Context())
	require.NoError(t, err)

	require.Len(t, users, 2)
	assert.Equal(t, "owner", users[0].Username)
	assert.Equal(t, "friend", users[1].Username)
}

func TestSharedServerUsersOwnerFailureIsSoft(t *testing.T) {
	cfg := plexConfig()
	cfg.MachineIdentifier = "abc123"
	cfg.IncludeOwner = true

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/user":
			w.WriteHeader(http.StatusInternalServerError)
		case "/api/servers/abc123/shared_servers":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"MediaContainer":{"SharedServer":[{"username":"friend"}]}}`))
		}
	}))
	defer srv.Close()

	c := testClient(cfg, srv.URL)
	users, err := c.ListUsers(t.Context())
	require.NoError(t, err)

	require.Len(t, users, 1)
	assert.Equal(t, "friend", users[0].Username)
}

func TestListUsersErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(plexConfig(), srv.URL)
	_, err := c.ListUsers(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsFetch(err))
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(plexConfig(), srv.URL)
	assert.True(t, c.HealthCheck(t.Context()))

	srv.Close()
	assert.False(t, c.HealthCheck(t.Context()))
}
