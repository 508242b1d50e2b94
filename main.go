// Package main is the minuteman entry point.
// minuteman schedules AI notetaker bots into meetings and serves their
// transcripts over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/otherjamesbrown/minuteman/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
