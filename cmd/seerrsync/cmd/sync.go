package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/seerrsync/seerrsync/pkg/logging"
	"github.com/seerrsync/seerrsync/pkg/syncer"
)

var (
	syncDaemon      bool
	syncInterval    int
	syncKeepMissing bool
	syncPermissions int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass, or loop forever with --daemon",
	Long: `Sync merges the user rosters of every enabled media server and
reconciles them against the request service: missing accounts are
created, and accounts no longer backed by any server are removed.

A server that fails its health probe is skipped for the run; its users
are protected from removal. A roster fetch failure aborts the whole run
so that a partial roster never causes removals.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncDaemon, "daemon", false, "keep running, syncing on an interval")
	syncCmd.Flags().IntVar(&syncInterval, "interval", 0, "minutes between runs in daemon mode (overrides config)")
	syncCmd.Flags().BoolVar(&syncKeepMissing, "keep-missing", false, "never remove accounts, only create")
	syncCmd.Flags().IntVar(&syncPermissions, "permissions", 0, "permission bits for newly created accounts (overrides config)")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if syncKeepMissing {
		cfg.Sync.RemoveMissing = false
	}
	if cmd.Flags().Changed("permissions") {
		cfg.Sync.Permissions = syncPermissions
	}
	if cmd.Flags().Changed("interval") {
		cfg.Sync.IntervalMinutes = syncInterval
	}

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}

	ctx := logging.WithLogger(cmd.Context(), logging.Default())

	if syncDaemon {
		interval := time.Duration(cfg.Sync.IntervalMinutes) * time.Minute
		scheduler := syncer.NewScheduler(interval, func(ctx context.Context) (*syncer.Result, error) {
			return rt.syncer.Run(ctx, rt.directories)
		})
		if err := scheduler.Start(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	result, err := rt.syncer.Run(ctx, rt.directories)
	if err != nil {
		return err
	}
	fmt.Println(result.Summary())
	if !result.Success() {
		return fmt.Errorf("sync finished with %d errors", len(result.Errors))
	}
	return nil
}
