// Command coursebot is the entry point for the course materials assistant.
// It provides a CLI interface (via Cobra) and an HTTP API for the web UI.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/coursebot-go/cmd/coursebot/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
