// Package main is the entry point for stowctl, the offline plan checker.
package main

import (
	"os"

	"github.com/artpar/stowage/internal/cli"
)

// Set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	os.Exit(cli.Execute(cli.NewRootCommand()))
}
