// Package cmd implements the seerrsync command tree.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/seerrsync/seerrsync/internal/config"
	"github.com/seerrsync/seerrsync/pkg/logging"
)

var (
	configFile string
	logLevel   string
	logFormat  string

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "seerrsync",
	Short: "Sync media server users into Overseerr/Jellyseerr",
	Long: `Seerrsync keeps the user list of an Overseerr or Jellyseerr instance
aligned with the users of one or more Plex, Jellyfin, or Emby servers.

Each run merges the rosters of every reachable media server, creates
missing request accounts, and removes accounts no longer backed by any
server. Per-user overrides can block or protect individual accounts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree with signal-driven cancellation.
func Execute(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.Default().Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initEnv)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./seerrsync.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, console, auto)")
}

// initEnv loads a .env file when present so tokens can live outside the
// config file.
func initEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
}

// loadConfig builds the validated configuration and configures logging
// from it, with command-line flags taking precedence.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	format := cfg.Log.Format
	if logFormat != "" {
		format = logFormat
	}
	logging.Configure(&logging.Config{Level: level, Format: format})

	return cfg, nil
}
