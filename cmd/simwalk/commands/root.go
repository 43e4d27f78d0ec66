package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "simwalk",
		Short: "simwalk - composable exploration for program state graphs",
		Long: `simwalk steers populations of execution states through a program's
control-flow graph using composable exploration techniques.

Features:
  - Goal-directed search with find/avoid conditions (addresses or Starlark)
  - Depth-bounded and step-count-limited stepping
  - Working-set eviction of states to SQLite
  - Parallel stepping with deterministic merges`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newValidateCommand())

	return rootCmd
}
