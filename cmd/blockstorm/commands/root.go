// Package commands implements the blockstorm command tree.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// VersionInfo describes the build.
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

func (v VersionInfo) String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", v.Version, v.Commit, v.Date)
}

// NewRootCommand builds the blockstorm command tree.
func NewRootCommand(info VersionInfo) *cobra.Command {
	root := &cobra.Command{
		Use:   "blockstorm",
		Short: "Blockstorm - block document engine with transactional undo",
		Long: `Blockstorm drives a block document through atomic, undoable
transactions. Edit scripts describe the mutations; the resulting document is
written as a JSON or YAML snapshot.`,
		Version: info.String(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
		SilenceErrors:      true,
		SilenceUsage:       true,
	}

	root.AddCommand(newReplayCommand())
	root.AddCommand(newVersionCommand(info))
	return root
}

// Execute runs root until it finishes or the process is interrupted.
func Execute(root *cobra.Command) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return root.ExecuteContext(ctx)
}
