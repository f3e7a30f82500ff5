package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seerrsync/seerrsync/pkg/logging"
	"github.com/seerrsync/seerrsync/pkg/syncer"
)

var (
	addUserPassword     string
	addUserRequestLimit int
	addUserBlocked      bool
	addUserImmune       bool
)

var addUserCmd = &cobra.Command{
	Use:   "add-user <username>",
	Short: "Provision a single account outside of a sync run",
	Long: `Add-user creates one request service account directly, or adopts an
existing one, and records its override flags. An immune account is never
removed by sync runs; a blocked account is always removed.`,
	Args: cobra.ExactArgs(1),
	RunE: runAddUser,
}

func init() {
	addUserCmd.Flags().StringVar(&addUserPassword, "password", "", "password for the new account (required unless the account exists)")
	addUserCmd.Flags().IntVar(&addUserRequestLimit, "request-limit", 0, "movie and TV request limit for the account")
	addUserCmd.Flags().BoolVar(&addUserBlocked, "blocked", false, "block this username from sync-created accounts")
	addUserCmd.Flags().BoolVar(&addUserImmune, "immune", false, "protect this account from sync removal")
	rootCmd.AddCommand(addUserCmd)
}

func runAddUser(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}

	req := syncer.ProvisionRequest{
		Username: args[0],
		Password: addUserPassword,
		Blocked:  addUserBlocked,
		Immune:   addUserImmune,
	}
	if cmd.Flags().Changed("request-limit") {
		req.RequestLimit = &addUserRequestLimit
	}

	ctx := logging.WithLogger(cmd.Context(), logging.Default())
	account, err := rt.syncer.Provision(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("account %q ready (id %d)\n", account.Username, account.ID)
	return nil
}
