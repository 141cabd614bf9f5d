package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tandem",
	Short: "Conversational multi-agent task orchestrator",
	Long: `Tandem turns a conversational request into a plan of dependent
tasks, dispatches each task to a named agent, and streams the combined
output back over Server-Sent Events.

Core capabilities:
- Decomposes requests into tasks with dependencies
- Dispatches runnable tasks concurrently, each at most once
- Streams partial agent output as it arrives
- Persists task state and resumes recurring tasks after a restart`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}
