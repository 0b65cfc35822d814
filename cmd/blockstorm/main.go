// Package main is the entry point for the blockstorm CLI.
package main

import (
	"os"

	"github.com/dshills/blockstorm/cmd/blockstorm/commands"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	root := commands.NewRootCommand(commands.VersionInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	})

	// Errors are printed by the printer package before they reach here.
	if err := commands.Execute(root); err != nil {
		os.Exit(1)
	}
}
