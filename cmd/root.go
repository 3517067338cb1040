// Package cmd implements the reqnotify command-line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "reqnotify",
	Short: "Workflow request notification service",
	Long: "reqnotify watches workflow requests and emails stakeholders when requests\n" +
		"reach configured states, deduplicating against a durable notification log\n" +
		"and re-notifying when a request stays pending past a waiting period.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(NewUpdateCmd())
}
