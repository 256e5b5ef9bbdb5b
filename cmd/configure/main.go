package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/taskpilot/api/cmd/configure/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "taskpilot-configure",
		Short: "Configuration tool for the TaskPilot API",
		Long:  "CLI tool for managing CORS settings, embedding reindexing, and configuration checks",
	}

	rootCmd.AddCommand(commands.NewCorsCmd())
	rootCmd.AddCommand(commands.NewReembedCmd())
	rootCmd.AddCommand(commands.NewTestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
