package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seerrsync/seerrsync/internal/mediaservers"
	"github.com/seerrsync/seerrsync/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seerrsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validConfig = `
seerr:
  url: http://localhost:5055
  api_key: secret
media_servers:
  - name: plex-main
    type: plex
    token: plextoken
    enabled: true
    password_suffix: "2025"
  - name: jellyfin-main
    type: jellyfin
    url: http://localhost:8096
    token: jftoken
    enabled: false
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5055", cfg.Seerr.URL)
	assert.Equal(t, "secret", cfg.Seerr.APIKey)
	require.Len(t, cfg.MediaServers, 2)
	assert.Equal(t, mediaservers.TypePlex, cfg.MediaServers[0].Type)
	assert.Equal(t, "2025", cfg.MediaServers[0].PasswordSuffix)

	// Defaults fill in the rest.
	assert.Equal(t, 60, cfg.Sync.IntervalMinutes)
	assert.True(t, cfg.Sync.RemoveMissing)
	assert.Equal(t, 5, cfg.Sync.Workers)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "overrides.yaml", cfg.OverridesPath)
}

func TestLoadEnabledFiltersDisabledServers(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	enabled := cfg.Enabled()
	require.Len(t, enabled, 1)
	assert.Equal(t, "plex-main", enabled[0].Name)
}

func TestLoadMissingSeerrCredentials(t *testing.T) {
	_, err := Load(writeConfig(t, `
seerr:
  url: http://localhost:5055
`))
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestLoadUnknownServerType(t *testing.T) {
	_, err := Load(writeConfig(t, `
seerr:
  url: http://localhost:5055
  api_key: secret
media_servers:
  - name: broken
    type: kodi
    url: http://localhost:9999
    token: x
    enabled: true
`))
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestLoadDuplicateServerNames(t *testing.T) {
	_, err := Load(writeConfig(t, `
seerr:
  url: http://localhost:5055
  api_key: secret
media_servers:
  - name: same
    type: jellyfin
    url: http://a:8096
    token: x
    enabled: true
  - name: same
    type: emby
    url: http://b:8920
    token: y
    enabled: true
`))
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestLoadNonPlexRequiresURL(t *testing.T) {
	_, err := Load(writeConfig(t, `
seerr:
  url: http://localhost:5055
  api_key: secret
media_servers:
  - name: jf
    type: jellyfin
    token: x
    enabled: true
`))
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestLoadAdminAPIRequiresCredentials(t *testing.T) {
	_, err := Load(writeConfig(t, validConfig+`
server:
  enabled: true
`))
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SEERRSYNC_SEERR_API_KEY", "from-env")

	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Seerr.APIKey)
}

func TestWriteExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seerrsync.yaml")
	require.NoError(t, WriteExample(path))

	// The example must fail validation only for its empty credentials,
	// not for structural reasons.
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))

	// A second write refuses to clobber.
	err = WriteExample(path)
	require.Error(t, err)
	assert.True(t, errors.IsAlreadyExists(err))
}
