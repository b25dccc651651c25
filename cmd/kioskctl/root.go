package main

import (
	"os"

	"github.com/spf13/cobra"
)

// exitFunc is swapped out in tests so runners that end the process can
// still be exercised.
var exitFunc = os.Exit

type rootFlags struct {
	verbose    bool
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "kioskctl",
		Short:         "kioskctl locks a macOS machine into kiosk duty from a declarative profile",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to the tool settings file (default ~/.config/kioskctl/config.toml)")

	cmd.AddCommand(newVerifyCmd(flags))
	cmd.AddCommand(newApplyCmd(flags))
	cmd.AddCommand(newScriptCmd(flags))
	cmd.AddCommand(newAgentCmd(flags))
	cmd.AddCommand(newStatusCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
