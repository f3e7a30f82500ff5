package syncer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seerrsync/seerrsync/pkg/errors"
	"github.com/seerrsync/seerrsync/pkg/overrides"
	"github.com/seerrsync/seerrsync/pkg/roster"
)

type fakeDirectory struct {
	name    string
	healthy bool
	users   []roster.SourceUser
	err     error
}

func (d *fakeDirectory) Name() string                        { return d.name }
func (d *fakeDirectory) HealthCheck(context.Context) bool    { return d.healthy }
func (d *fakeDirectory) ListUsers(context.Context) ([]roster.SourceUser, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.users, nil
}

type fakeGateway struct {
	accounts []Account
	nextID   int

	listErr   error
	createErr error
	deleteErr error

	created   []string
	passwords map[string]string
	deleted   []string
	limits    map[int][2]*int
}

func newFakeGateway(usernames ...string) *fakeGateway {
	g := &fakeGateway{
		nextID:    100,
		passwords: make(map[string]string),
		limits:    make(map[int][2]*int),
	}
	for _, name := range usernames {
		g.nextID++
		g.accounts = append(g.accounts, Account{ID: g.nextID, Username: name})
	}
	return g
}

func (g *fakeGateway) ListAccounts(context.Context) ([]Account, error) {
	if g.listErr != nil {
		return nil, g.listErr
	}
	out := make([]Account, len(g.accounts))
	copy(out, g.accounts)
	return out, nil
}

func (g *fakeGateway) CreateAccount(_ context.Context, username, password string, _ int) (Account, error) {
	if g.createErr != nil {
		return Account{}, g.createErr
	}
	g.nextID++
	account := Account{ID: g.nextID, Username: username}
	g.accounts = append(g.accounts, account)
	g.created = append(g.created, username)
	g.passwords[username] = password
	return account, nil
}

func (g *fakeGateway) DeleteAccount(_ context.Context, id int) error {
	if g.deleteErr != nil {
		return g.deleteErr
	}
	for i, a := range g.accounts {
		if a.ID == id {
			g.deleted = append(g.deleted, a.Username)
			g.accounts = append(g.accounts[:i], g.accounts[i+1:]...)
			return nil
		}
	}
	return errors.NewGatewayError("delete user", "", 404, "not found", errors.ErrNotFound)
}

func (g *fakeGateway) SetPassword(_ context.Context, id int, password string) error {
	for _, a := range g.accounts {
		if a.ID == id {
			g.passwords[a.Username] = password
		}
	}
	return nil
}

func (g *fakeGateway) SetRequestLimit(_ context.Context, id int, movieLimit, tvLimit *int) error {
	g.limits[id] = [2]*int{movieLimit, tvLimit}
	return nil
}

func newStore(t *testing.T) *overrides.Store {
	t.Helper()
	store, err := overrides.Load(filepath.Join(t.TempDir(), "overrides.yaml"))
	require.NoError(t, err)
	return store
}

func sourceUser(name, server, serverType string) roster.SourceUser {
	return roster.SourceUser{Username: name, SourceServer: server, SourceType: serverType}
}

func intPtr(v int) *int { return &v }

func TestRunCreatesMissingUsers(t *testing.T) {
	gateway := newFakeGateway("dave")
	s := New(gateway, newStore(t))

	result, err := s.Run(t.Context(), []Directory{
		&fakeDirectory{name: "A", healthy: true, users: []roster.SourceUser{
			sourceUser("bob", "A", "plex"),
			sourceUser("dave", "A", "plex"),
		}},
		&fakeDirectory{name: "B", healthy: true, users: []roster.SourceUser{
			sourceUser("Bob", "B", "jellyfin"),
			sourceUser("eve", "B", "jellyfin"),
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.SkippedExisting)
	assert.Equal(t, 3, result.TotalUsers)
	assert.ElementsMatch(t, []string{"bob", "eve"}, gateway.created)
	assert.Empty(t, gateway.deleted)
	assert.True(t, result.Success())
}

func TestRunCaseInsensitiveExistingMatch(t *testing.T) {
	gateway := newFakeGateway("Bob")
	s := New(gateway, newStore(t))

	result, err := s.Run(t.Context(), []Directory{
		&fakeDirectory{name: "A", healthy: true, users: []roster.SourceUser{
			sourceUser("bob", "A", "plex"),
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.SkippedExisting)
	assert.Empty(t, gateway.created)
	assert.Empty(t, gateway.deleted)
}

func TestRunBlockedUserNeverCreatedAndAlwaysRemoved(t *testing.T) {
	gateway := newFakeGateway("carol")
	store := newStore(t)
	store.SetBlocked("carol", true)
	s := New(gateway, store)

	// Carol is present on a server and on the gateway. Blocking wins on
	// both sides.
	result, err := s.Run(t.Context(), []Directory{
		&fakeDirectory{name: "A", healthy: true, users: []roster.SourceUser{
			sourceUser("carol", "A", "plex"),
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.SkippedBlocked)
	assert.Equal(t, 1, result.RemovedBlocked)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, []string{"carol"}, gateway.deleted)
}

func TestRunImmuneUserNeverRemoved(t *testing.T) {
	gateway := newFakeGateway("admin")
	store := newStore(t)
	store.SetImmune("admin", true)
	s := New(gateway, store)

	result, err := s.Run(t.Context(), []Directory{
		&fakeDirectory{name: "A", healthy: true, users: []roster.SourceUser{
			sourceUser("bob", "A", "plex"),
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.SkippedImmune)
	assert.Equal(t, 0, result.Removed)
	assert.Empty(t, gateway.deleted)
}

func TestRunImmuneBeatsBlocked(t *testing.T) {
	gateway := newFakeGateway("admin")
	store := newStore(t)
	store.SetImmune("admin", true)
	store.SetBlocked("admin", true)
	s := New(gateway, store)

	result, err := s.Run(t.Context(), []Directory{
		&fakeDirectory{name: "A", healthy: true, users: []roster.SourceUser{
			sourceUser("bob", "A", "plex"),
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.SkippedImmune)
	assert.Equal(t, 0, result.RemovedBlocked)
	assert.Empty(t, gateway.deleted)
}

func TestRunOutageProtectsUsersOfUnavailableServer(t *testing.T) {
	gateway := newFakeGateway("dave")
	store := newStore(t)
	store.SetSourceServers("dave", []string{"B"})
	s := New(gateway, store)

	// Dave came from server B, which is down this run. His absence from
	// the merged roster is not evidence he left.
	result, err := s.Run(t.Context(), []Directory{
		&fakeDirectory{name: "A", healthy: true, users: []roster.SourceUser{
			sourceUser("bob", "A", "plex"),
		}},
		&fakeDirectory{name: "B", healthy: false},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.SkippedUnavailable)
	assert.Equal(t, 0, result.Removed)
	assert.Empty(t, gateway.deleted)
	assert.Equal(t, []string{"A"}, result.AvailableServers)
	assert.Equal(t, []string{"B"}, result.UnavailableServers)
}

func TestRunRemovesUserAbsentFromAllServers(t *testing.T) {
	gateway := newFakeGateway("ghost")
	store := newStore(t)
	store.SetSourceServers("ghost", []string{"A"})
	s := New(gateway, store)

	result, err := s.Run(t.Context(), []Directory{
		&fakeDirectory{name: "A", healthy: true, users: []roster.SourceUser{
			sourceUser("bob", "A", "plex"),
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Removed)
	assert.Equal(t, []string{"ghost"}, gateway.deleted)
	// Removal also clears the stale source record.
	assert.Empty(t, store.Get("ghost").SourceServers)
}

func TestRunRemoveMissingDisabled(t *testing.T) {
	gateway := newFakeGateway("ghost")
	s := New(gateway, newStore(t), WithRemoveMissing(false))

	result, err := s.Run(t.Context(), []Directory{
		&fakeDirectory{name: "A", healthy: true, users: []roster.SourceUser{
			sourceUser("bob", "A", "plex"),
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Removed)
	assert.Empty(t, gateway.deleted)
}

func TestRunNoServersAvailable(t *testing.T) {
	gateway := newFakeGateway()
	s := New(gateway, newStore(t))

	_, err := s.Run(t.Context(), []Directory{
		&fakeDirectory{name: "A", healthy: false},
		&fakeDirectory{name: "B", healthy: false},
	})
	require.ErrorIs(t, err, errors.ErrNoServersAvailable)
	assert.Empty(t, gateway.created)
	assert.Empty(t, gateway.deleted)
}

func TestRunFetchFailureAbortsWholeRun(t *testing.T) {
	gateway := newFakeGateway("ghost")
	fetchErr := errors.NewFetchError("B", "/Users", 500, "boom", nil)
	s := New(gateway, newStore(t))

	_, err := s.Run(t.Context(), []Directory{
		&fakeDirectory{name: "A", healthy: true, users: []roster.SourceUser{
			sourceUser("bob", "A", "plex"),
		}},
		&fakeDirectory{name: "B", healthy: true, err: fetchErr},
	})
	require.Error(t, err)
	assert.True(t, errors.IsFetch(err))
	// Nothing was created or removed on a partial roster.
	assert.Empty(t, gateway.created)
	assert.Empty(t, gateway.deleted)
}

func TestRunListAccountsFailureAborts(t *testing.T) {
	gateway := newFakeGateway()
	gateway.listErr = errors.NewGatewayError("list users", "", 502, "bad gateway", nil)
	s := New(gateway, newStore(t))

	_, err := s.Run(t.Context(), []Directory{
		&fakeDirectory{name: "A", healthy: true, users: []roster.SourceUser{
			sourceUser("bob", "A", "plex"),
		}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsGateway(err))
	assert.Empty(t, gateway.created)
}

func TestRunCreateConflictCountsAsExisting(t *testing.T) {
	gateway := newFakeGateway()
	gateway.createErr = errors.NewGatewayError("create user", "bob", 409, "exists", errors.ErrAlreadyExists)
	s := New(gateway, newStore(t))

	result, err := s.Run(t.Context(), []Directory{
		&fakeDirectory{name: "A", healthy: true, users: []roster.SourceUser{
			sourceUser("bob", "A", "plex"),
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.SkippedExisting)
	assert.True(t, result.Success())
}

func TestRunCreateFailureCountedAndContinues(t *testing.T) {
	gateway := newFakeGateway()
	gateway.createErr = errors.NewGatewayError("create user", "bob", 500, "boom", nil)
	s := New(gateway, newStore(t))

	result, err := s.Run(t.Context(), []Directory{
		&fakeDirectory{name: "A", healthy: true, users: []roster.SourceUser{
			sourceUser("bob", "A", "plex"),
			sourceUser("eve", "A", "plex"),
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Created)
	assert.Len(t, result.Errors, 2)
	assert.False(t, result.Success())
}

func TestRunDeleteFailureCountedAndContinues(t *testing.T) {
	gateway := newFakeGateway("ghost1", "ghost2")
	gateway.deleteErr = errors.NewGatewayError("delete user", "", 500, "boom", nil)
	s := New(gateway, newStore(t))

	result, err := s.Run(t.Context(), []Directory{
		&fakeDirectory{name: "A", healthy: true, users: []roster.SourceUser{
			sourceUser("bob", "A", "plex"),
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Removed)
	assert.Len(t, result.Errors, 2)
}

func TestRunPasswordIsUsernamePlusSuffix(t *testing.T) {
	gateway := newFakeGateway()
	s := New(gateway, newStore(t))

	_, err := s.Run(t.Context(), []Directory{
		&fakeDirectory{name: "A", healthy: true, users: []roster.SourceUser{
			{Username: "Bob", SourceServer: "A", SourceType: "plex", PasswordSuffix: "2025!"},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bob2025!", gateway.passwords["Bob"])
}

func TestRunAppliesRequestLimit(t *testing.T) {
	gateway := newFakeGateway()
	s := New(gateway, newStore(t))

	_, err := s.Run(t.Context(), []Directory{
		&fakeDirectory{name: "A", healthy: true, users: []roster.SourceUser{
			{Username: "bob", SourceServer: "A", SourceType: "plex", RequestLimit: intPtr(20)},
		}},
	})
	require.NoError(t, err)

	require.Len(t, gateway.created, 1)
	var id int
	for _, a := range gateway.accounts {
		if a.Username == "bob" {
			id = a.ID
		}
	}
	limits, ok := gateway.limits[id]
	require.True(t, ok)
	require.NotNil(t, limits[0])
	require.NotNil(t, limits[1])
	assert.Equal(t, 20, *limits[0])
	assert.Equal(t, 20, *limits[1])
}

func TestRunPersistsSourceServers(t *testing.T) {
	gateway := newFakeGateway()
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	store, err := overrides.Load(path)
	require.NoError(t, err)
	s := New(gateway, store)

	_, err = s.Run(t.Context(), []Directory{
		&fakeDirectory{name: "A", healthy: true, users: []roster.SourceUser{
			sourceUser("bob", "A", "plex"),
		}},
		&fakeDirectory{name: "B", healthy: true, users: []roster.SourceUser{
			sourceUser("bob", "B", "jellyfin"),
		}},
	})
	require.NoError(t, err)

	reloaded, err := overrides.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, reloaded.Get("bob").SourceServers)
}

func TestRunSaveFailureIsWarningOnly(t *testing.T) {
	gateway := newFakeGateway()
	store, err := overrides.Load(filepath.Join(t.TempDir(), "missing", "nested", "overrides.yaml"))
	require.NoError(t, err)
	s := New(gateway, store)

	result, err := s.Run(t.Context(), []Directory{
		&fakeDirectory{name: "A", healthy: true, users: []roster.SourceUser{
			sourceUser("bob", "A", "plex"),
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.NotEmpty(t, result.Warnings)
}

func TestProvisionCreatesNewAccount(t *testing.T) {
	gateway := newFakeGateway()
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	store, err := overrides.Load(path)
	require.NoError(t, err)
	s := New(gateway, store)

	account, err := s.Provision(t.Context(), ProvisionRequest{
		Username:     "Frank",
		Password:     "hunter2",
		RequestLimit: intPtr(5),
		Immune:       true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Frank", account.Username)
	assert.Equal(t, "hunter2", gateway.passwords["Frank"])
	limits := gateway.limits[account.ID]
	require.NotNil(t, limits[0])
	assert.Equal(t, 5, *limits[0])

	reloaded, err := overrides.Load(path)
	require.NoError(t, err)
	assert.True(t, reloaded.Get("frank").Immune)
	assert.False(t, reloaded.Get("frank").Blocked)
}

func TestProvisionAdoptsExistingAccount(t *testing.T) {
	gateway := newFakeGateway("Frank")
	store := newStore(t)
	s := New(gateway, store)

	account, err := s.Provision(t.Context(), ProvisionRequest{Username: "frank", Blocked: true})
	require.NoError(t, err)

	assert.Equal(t, "Frank", account.Username)
	assert.Empty(t, gateway.created)
	assert.True(t, store.Get("frank").Blocked)
}

func TestProvisionRequiresPasswordForNewAccount(t *testing.T) {
	gateway := newFakeGateway()
	s := New(gateway, newStore(t))

	_, err := s.Provision(t.Context(), ProvisionRequest{Username: "frank"})
	require.ErrorIs(t, err, errors.ErrInvalidInput)
	assert.Empty(t, gateway.created)
}

func TestProvisionRejectsEmptyUsername(t *testing.T) {
	s := New(newFakeGateway(), newStore(t))

	_, err := s.Provision(t.Context(), ProvisionRequest{Username: "   "})
	require.ErrorIs(t, err, errors.ErrInvalidInput)
}
