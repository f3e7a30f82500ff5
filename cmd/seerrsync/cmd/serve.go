package cmd

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/seerrsync/seerrsync/internal/server"
	seerrsyncerrors "github.com/seerrsync/seerrsync/pkg/errors"
	"github.com/seerrsync/seerrsync/pkg/logging"
	"github.com/seerrsync/seerrsync/pkg/syncer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync daemon with the admin HTTP API",
	Long: `Serve runs scheduled sync passes and exposes the admin HTTP API for
triggering runs, inspecting results, and managing per-user overrides.
API credentials come from the server section of the configuration.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Server.Username == "" || cfg.Server.Password == "" {
		return seerrsyncerrors.NewConfigError("server", "username and password are required to serve the admin API", nil)
	}

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}

	ctx := logging.WithLogger(cmd.Context(), logging.Default())

	interval := time.Duration(cfg.Sync.IntervalMinutes) * time.Minute
	scheduler := syncer.NewScheduler(interval, func(ctx context.Context) (*syncer.Result, error) {
		return rt.syncer.Run(ctx, rt.directories)
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := scheduler.Start(ctx); !errors.Is(err, context.Canceled) {
			logging.Default().Error().Err(err).Msg("scheduler exited")
		}
	}()

	srv := server.New(cfg, scheduler, rt.syncer, rt.gateway, rt.store, logging.Default())
	err = srv.Run(ctx)

	// The scheduler lets an in-progress run finish before returning.
	wg.Wait()
	return err
}
