// Package registry maps media server types to their client constructors.
// This package is separate from the client implementations to avoid
// circular dependencies.
package registry

import (
	"github.com/seerrsync/seerrsync/internal/mediaservers"
	"github.com/seerrsync/seerrsync/internal/mediaservers/emby"
	"github.com/seerrsync/seerrsync/internal/mediaservers/jellyfin"
	"github.com/seerrsync/seerrsync/internal/mediaservers/plex"
	"github.com/seerrsync/seerrsync/pkg/errors"
)

// registry maps server types to their client constructors.
var registry = map[mediaservers.Type]func(*mediaservers.Config) mediaservers.Client{
	mediaservers.TypePlex:     func(c *mediaservers.Config) mediaservers.Client { return plex.NewClient(c) },
	mediaservers.TypeJellyfin: func(c *mediaservers.Config) mediaservers.Client { return jellyfin.NewClient(c) },
	mediaservers.TypeEmby:     func(c *mediaservers.Config) mediaservers.Client { return emby.NewClient(c) },
}

// New creates a client for the given server configuration. An unrecognized
// type tag is a configuration error rather than a silent default.
func New(cfg *mediaservers.Config) (mediaservers.Client, error) {
	newClient, ok := registry[cfg.Type]
	if !ok {
		return nil, errors.NewConfigError(
			"media_servers",
			"unsupported media server type: "+string(cfg.Type),
			nil,
		)
	}
	return newClient(cfg), nil
}

// Has checks if a server type has a client implementation.
func Has(t mediaservers.Type) bool {
	_, ok := registry[t]
	return ok
}
