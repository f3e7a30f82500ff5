package overrides

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "user_settings.yaml")
	s, err := Load(path)
	require.NoError(t, err)
	return s
}

func TestLoadMissingFileYieldsEmptyStore(t *testing.T) {
	s := tempStore(t)
	assert.Empty(t, s.Usernames())
	assert.False(t, s.Changed())
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("::: not yaml :::"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestGetDefaultsToZeroRecord(t *testing.T) {
	s := tempStore(t)
	r := s.Get("nobody")
	assert.False(t, r.Blocked)
	assert.False(t, r.Immune)
	assert.Empty(t, r.SourceServers)
}

func TestSetBlockedIsCaseInsensitive(t *testing.T) {
	s := tempStore(t)
	s.SetBlocked("Alice", true)

	assert.True(t, s.Get("alice").Blocked)
	assert.True(t, s.Get("ALICE").Blocked)
	assert.True(t, s.Changed())
}

func TestUnsettingOnlyFlagDropsRecord(t *testing.T) {
	s := tempStore(t)
	s.SetBlocked("alice", true)
	s.SetBlocked("alice", false)

	assert.Empty(t, s.Usernames())
}

func TestSetSourceServersOnlyMarksChangedOnDifference(t *testing.T) {
	s := tempStore(t)
	s.SetSourceServers("alice", []string{"A", "B"})
	require.NoError(t, s.Save())
	assert.False(t, s.Changed())

	// Same set in a different order is not a change.
	s.SetSourceServers("alice", []string{"B", "A"})
	assert.False(t, s.Changed())

	s.SetSourceServers("alice", []string{"A"})
	assert.True(t, s.Changed())
}

func TestClearSourceServersDropsEmptyRecord(t *testing.T) {
	s := tempStore(t)
	s.SetSourceServers("alice", []string{"A"})
	s.ClearSourceServers("alice")

	assert.Empty(t, s.Usernames())
}

func TestClearSourceServersKeepsBlockedFlag(t *testing.T) {
	s := tempStore(t)
	s.SetBlocked("alice", true)
	s.SetSourceServers("alice", []string{"A"})
	s.ClearSourceServers("alice")

	r := s.Get("alice")
	assert.True(t, r.Blocked)
	assert.Empty(t, r.SourceServers)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_settings.yaml")
	s, err := Load(path)
	require.NoError(t, err)

	s.SetBlocked("alice", true)
	s.SetImmune("bob", true)
	s.SetSourceServers("carol", []string{"Plex Main", "Jellyfin"})
	require.NoError(t, s.Save())

	reloaded, err := Load(path)
	require.NoError(t, err)

	assert.True(t, reloaded.Get("alice").Blocked)
	assert.True(t, reloaded.Get("bob").Immune)
	assert.ElementsMatch(t, []string{"Plex Main", "Jellyfin"}, reloaded.Get("carol").SourceServers)
	assert.False(t, reloaded.Changed())
}

func TestSaveIsNoOpWhenUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_settings.yaml")
	s, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, s.Save())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "unchanged store should not write a file")
}
