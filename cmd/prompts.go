package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/gaurav-prasanna/deckpipe/config"
	"github.com/spf13/cobra"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "List the available analysis templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := cfg.Templates()
		if err != nil {
			return fmt.Errorf("loading prompt templates: %w", err)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
		for _, p := range store.List() {
			marker := ""
			if p.ID == store.DefaultID() {
				marker = " (default)"
			}
			fmt.Fprintf(tw, "%s%s\t%s\t%s\n", p.ID, marker, p.Name, p.Description)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(promptsCmd)
}
