// Package cmd implements the CLI commands for deckpipe using Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=x.y.z".
var Version = "dev"

var flagLogLevel string

var rootCmd = &cobra.Command{
	Use:   "deckpipe",
	Short: "deckpipe: turn conference presentations into structured analyses",
	Long: `deckpipe extracts the text of a slide deck (PDF or PPTX), gathers
supporting web resources, and asks a language model for a structured
analysis written from a chosen perspective. Results are saved as
Markdown and PDF.

Settings are read from the environment and from a .env file.

Usage:
  deckpipe serve
  deckpipe analyze --title <t> --presenters <p> --notes <n> [--deck file] [--url <u>...]
  deckpipe prompts`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
