// Package config loads and validates the application configuration from a
// YAML file, environment variables, and defaults, in that order of
// increasing precedence for the environment.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/viper"

	"github.com/seerrsync/seerrsync/internal/mediaservers"
	"github.com/seerrsync/seerrsync/internal/seerr"
	"github.com/seerrsync/seerrsync/pkg/errors"
)

// EnvPrefix namespaces the environment variables honored by Load,
// e.g. SEERRSYNC_SEERR_API_KEY.
const EnvPrefix = "SEERRSYNC"

// DefaultFileName is the config file name searched for when no explicit
// path is given.
const DefaultFileName = "seerrsync.yaml"

// Config is the complete application configuration.
type Config struct {
	Seerr        seerr.Config          `yaml:"seerr" mapstructure:"seerr"`
	MediaServers []mediaservers.Config `yaml:"media_servers" mapstructure:"media_servers"`
	Sync         SyncConfig            `yaml:"sync" mapstructure:"sync"`
	Server       ServerConfig          `yaml:"server" mapstructure:"server"`
	Log          LogConfig             `yaml:"log" mapstructure:"log"`

	// OverridesPath locates the per-user override store.
	OverridesPath string `yaml:"overrides_path" mapstructure:"overrides_path"`

	// Path is the file the configuration was loaded from, empty for an
	// environment-only setup.
	Path string `yaml:"-" mapstructure:"-"`
}

// SyncConfig controls reconciliation behavior.
type SyncConfig struct {
	// IntervalMinutes is the daemon-mode pause between runs.
	IntervalMinutes int `yaml:"interval_minutes" mapstructure:"interval_minutes"`

	// RemoveMissing enables the removal phase.
	RemoveMissing bool `yaml:"remove_missing" mapstructure:"remove_missing"`

	// Permissions are the permission bits for newly created accounts.
	Permissions int `yaml:"permissions" mapstructure:"permissions"`

	// Workers bounds probe and fetch parallelism.
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// ServerConfig controls the admin HTTP API.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr    string `yaml:"addr" mapstructure:"addr"`

	// Username and Password guard the admin session login.
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`

	// SessionTTLMinutes bounds how long a login token stays valid.
	SessionTTLMinutes int `yaml:"session_ttl_minutes" mapstructure:"session_ttl_minutes"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from path. An empty path searches the working
// directory and /etc/seerrsync for DefaultFileName; a missing file is not
// an error so that an environment-only setup works.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "reading "+path, err)
		}
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFileName, filepath.Ext(DefaultFileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/seerrsync")
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, errors.NewConfigError("config", "reading config file", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.NewConfigError("config", "parsing configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Path = v.ConfigFileUsed()
	return cfg, nil
}

// Save writes the configuration back to the file it was loaded from.
// Changes made through the admin API survive a restart this way.
func (c *Config) Save() error {
	if c.Path == "" {
		return errors.NewConfigError("config", "no config file to save to", nil)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.NewConfigError("config", "rendering configuration", err)
	}
	if err := os.WriteFile(c.Path, data, 0o600); err != nil {
		return errors.WrapIO("writing config", c.Path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sync.interval_minutes", 60)
	v.SetDefault("sync.remove_missing", true)
	v.SetDefault("sync.permissions", 0)
	v.SetDefault("sync.workers", 5)
	v.SetDefault("server.addr", ":8787")
	v.SetDefault("server.session_ttl_minutes", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.SetDefault("overrides_path", "overrides.yaml")
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if err := c.Seerr.Validate(); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.MediaServers))
	for i := range c.MediaServers {
		ms := &c.MediaServers[i]
		if ms.Name == "" {
			return errors.NewConfigError("media_servers", "every server needs a name", nil)
		}
		if _, dup := seen[ms.Name]; dup {
			return errors.NewConfigError("media_servers", "duplicate server name "+ms.Name, nil)
		}
		seen[ms.Name] = struct{}{}
		if _, err := mediaservers.ParseType(string(ms.Type)); err != nil {
			return errors.NewConfigError("media_servers", ms.Name, err)
		}
		if ms.Type != mediaservers.TypePlex && ms.URL == "" {
			return errors.NewConfigError("media_servers", ms.Name+": url is required", nil)
		}
		if ms.Token == "" {
			return errors.NewConfigError("media_servers", ms.Name+": token is required", nil)
		}
	}
	if c.Sync.IntervalMinutes <= 0 {
		return errors.NewConfigError("sync", "interval_minutes must be positive", nil)
	}
	if c.Server.Enabled && (c.Server.Username == "" || c.Server.Password == "") {
		return errors.NewConfigError("server", "username and password are required when the admin API is enabled", nil)
	}
	return nil
}

// Enabled returns the enabled media server configurations in file order.
func (c *Config) Enabled() []mediaservers.Config {
	var out []mediaservers.Config
	for _, ms := range c.MediaServers {
		if ms.Enabled {
			out = append(out, ms)
		}
	}
	return out
}

// exampleConfig is written by WriteExample as a starting point.
const exampleConfig = `# seerrsync configuration
seerr:
  url: http://localhost:5055
  api_key: ""

media_servers:
  - name: plex-main
    type: plex
    token: ""
    enabled: true
    password_suffix: ""
    include_owner: false
    # machine_identifier: ""
  - name: jellyfin-main
    type: jellyfin
    url: http://localhost:8096
    token: ""
    enabled: false
  - name: emby-main
    type: emby
    url: http://localhost:8920
    token: ""
    enabled: false

sync:
  interval_minutes: 60
  remove_missing: true
  permissions: 0
  workers: 5

server:
  enabled: false
  addr: ":8787"
  username: ""
  password: ""
  session_ttl_minutes: 60

log:
  level: info
  format: auto

overrides_path: overrides.yaml
`

// WriteExample writes a commented example configuration to path,
// refusing to overwrite an existing file.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.NewConfigError("config", path+" already exists", errors.ErrAlreadyExists)
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0o600); err != nil {
		return errors.WrapIO("writing example config", path, err)
	}
	return nil
}
