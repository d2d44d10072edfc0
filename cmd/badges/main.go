package main

import (
	"os"

	cmd "github.com/peerbadge/badges/cmd/badges/commands"
)

func main() {
	rootCmd := cmd.RootCmd

	rootCmd.AddCommand(
		cmd.VersionCmd,
		cmd.NewKeygenCmd(),
		cmd.NewRunCmd(),
		cmd.NewRouterCmd(),
		cmd.NewClassCmd(),
		cmd.NewClaimCmd(),
		cmd.NewAssertCmd(),
		cmd.NewClassesCmd(),
		cmd.NewGetCmd(),
	)

	//Do not print usage when error occurs
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
