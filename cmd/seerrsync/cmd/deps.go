package cmd

import (
	"github.com/seerrsync/seerrsync/internal/config"
	"github.com/seerrsync/seerrsync/internal/mediaservers/registry"
	"github.com/seerrsync/seerrsync/internal/seerr"
	"github.com/seerrsync/seerrsync/pkg/overrides"
	"github.com/seerrsync/seerrsync/pkg/syncer"
)

// runtime bundles the wired-up collaborators every command needs.
type runtime struct {
	cfg         *config.Config
	store       *overrides.Store
	gateway     syncer.Gateway
	syncer      *syncer.Syncer
	directories []syncer.Directory
}

// newRuntime wires the override store, request service gateway, media
// server clients, and syncer from a validated configuration.
func newRuntime(cfg *config.Config) (*runtime, error) {
	store, err := overrides.Load(cfg.OverridesPath)
	if err != nil {
		return nil, err
	}

	gateway := seerr.NewGateway(seerr.NewClient(cfg.Seerr))

	var directories []syncer.Directory
	for _, ms := range cfg.Enabled() {
		client, err := registry.New(&ms)
		if err != nil {
			return nil, err
		}
		directories = append(directories, client)
	}

	return &runtime{
		cfg:     cfg,
		store:   store,
		gateway: gateway,
		syncer: syncer.New(gateway, store,
			syncer.WithRemoveMissing(cfg.Sync.RemoveMissing),
			syncer.WithPermissions(cfg.Sync.Permissions),
			syncer.WithWorkers(cfg.Sync.Workers),
		),
		directories: directories,
	}, nil
}
