package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const programName = "assignctl"

var globalFlags = struct {
	store string
	db    string
	debug bool
}{}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Generate, review and promote weekly meeting assignments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().
		StringVar(&globalFlags.store, "store", "sqlite", "store backend: sqlite or memory")
	rootCmd.PersistentFlags().
		StringVar(&globalFlags.db, "db", "", "path to the sqlite database (default from SQLITE_PATH)")
	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")

	rootCmd.AddCommand(generateCommand())
	rootCmd.AddCommand(pendingCommand())
	rootCmd.AddCommand(weekCommand())
	rootCmd.AddCommand(actCommand())
	rootCmd.AddCommand(promoteCommand())
	rootCmd.AddCommand(importHistoryCommand())
	rootCmd.AddCommand(statsCommand())
	rootCmd.AddCommand(tokenCommand())
	return rootCmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}
