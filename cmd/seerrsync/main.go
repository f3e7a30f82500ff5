// Package main provides the entry point for the seerrsync CLI.
package main

import (
	"github.com/seerrsync/seerrsync/cmd/seerrsync/cmd"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
