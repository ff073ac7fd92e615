// Package main is the entry point for the effmap-pack CLI.
//
// This binary packages the MotorEffMAP Python application with PyInstaller.
// It delegates all functionality to the internal/cli package, which
// defines cobra commands.
//
// Build-time variables (version, commit, date) are injected via ldflags,
// e.g. -X main.version=v1.2.0. During development, they default to "dev",
// "none", and "unknown" respectively.
package main

import (
	"github.com/shinji-kodama/effmap-pack/internal/cli"
)

// version, commit, and date are overridden at link time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
