package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simwalk/simwalk/pkg/cfg"
	"github.com/simwalk/simwalk/pkg/config"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config>",
		Short: "Validate a run configuration and its program description",
		Long: `Validate checks a run configuration without exploring anything.

It loads the configuration, validates every field, parses the referenced
program description, and checks that the graph is well formed: the entry
block exists, no block address repeats, and every edge resolves.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			prog, err := cfg.LoadProgram(runCfg.Program)
			if err != nil {
				return err
			}

			if runCfg.Goals.FindScript != "" {
				if _, err := config.CompilePredicate(runCfg.Goals.FindScript); err != nil {
					return fmt.Errorf("find script: %w", err)
				}
			}
			if runCfg.Goals.AvoidScript != "" {
				if _, err := config.CompilePredicate(runCfg.Goals.AvoidScript); err != nil {
					return fmt.Errorf("avoid script: %w", err)
				}
			}

			fmt.Printf("Configuration valid: program %q, %d blocks, entry %#x\n",
				prog.Name, len(prog.Blocks), prog.Entry)
			return nil
		},
	}
	return cmd
}
