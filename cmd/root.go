// Package cmd provides the minuteman command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "minuteman",
	Short: "Meeting notetaker scheduling and transcript service",
	Long: `minuteman schedules AI notetaker bots into calendar meetings and
tracks their recordings until a transcript is available.

It exposes an HTTP API for scheduling bots, listing calendar events,
and retrieving transcripts. Recording sessions are polled in the
background until the meeting media is processed.

COMMON WORKFLOWS:
  Run the service:   minuteman serve
  Store API key:     minuteman auth login
  Check credentials: minuteman auth status
  Inspect config:    minuteman config show`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
