package cmd

import (
	"fmt"
	goruntime "runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("seerrsync %s (commit %s, built %s, %s)\n",
			Version, Commit, Date, goruntime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
