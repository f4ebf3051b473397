package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/gaurav-prasanna/deckpipe/core"
	"github.com/gaurav-prasanna/deckpipe/core/extract"
	"github.com/spf13/cobra"
)

// Flag variables.
var (
	flagTitle      string
	flagPresenters string
	flagNotes      string
	flagDeck       string
	flagDeckURL    string
	flagURLs       []string
	flagGitHub     string
	flagTemplate   string
	flagPDF        bool
	flagJSON       bool
	flagOutputDir  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a presentation and its resources without the web server",
	Long: `Analyze runs one analysis and writes the Markdown (and optionally PDF)
document to the output directory.

Examples:
  deckpipe analyze --title "Operators 101" --presenters "Dana Lee" --notes "day-2 ops" --deck talk.pptx
  deckpipe analyze --title "Operators 101" --presenters "Dana Lee" --notes "x" \
      --url https://kubernetes.io/docs/concepts/extend-kubernetes/operator/ --template solutions_architect --pdf`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&flagTitle, "title", "", "Session title (required)")
	analyzeCmd.Flags().StringVar(&flagPresenters, "presenters", "", "Presenter names (required)")
	analyzeCmd.Flags().StringVar(&flagNotes, "notes", "", "Your notes on the session (required)")

	// Deck source (mutually exclusive).
	analyzeCmd.Flags().StringVar(&flagDeck, "deck", "", "Path to a PDF or PPTX deck")
	analyzeCmd.Flags().StringVar(&flagDeckURL, "deck-url", "", "URL of a PDF or PPTX deck to download")
	analyzeCmd.MarkFlagsMutuallyExclusive("deck", "deck-url")

	analyzeCmd.Flags().StringArrayVar(&flagURLs, "url", nil, "Supporting resource URL (repeatable)")
	analyzeCmd.Flags().StringVar(&flagGitHub, "github", "", "GitHub repository URL")
	analyzeCmd.Flags().StringVar(&flagTemplate, "template", "", "Prompt template id (default: DEFAULT_PROMPT_TEMPLATE)")
	analyzeCmd.Flags().BoolVar(&flagPDF, "pdf", false, "Also render a PDF")
	analyzeCmd.Flags().BoolVar(&flagJSON, "json", false, "Print the result as JSON")
	analyzeCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: OUTPUT_DIR)")

	for _, name := range []string{"title", "presenters", "notes"} {
		_ = analyzeCmd.MarkFlagRequired(name)
	}
}

type analyzeOutput struct {
	Markdown string        `json:"markdown"`
	PDF      string        `json:"pdf,omitempty"`
	Metadata core.Metadata `json:"metadata"`
	Missing  []string      `json:"missing_sections,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	req := core.AnalysisRequest{
		Title:        flagTitle,
		Presenters:   flagPresenters,
		Notes:        flagNotes,
		GitHubURL:    flagGitHub,
		ResourceURLs: flagURLs,
		DeckURL:      flagDeckURL,
		TemplateID:   flagTemplate,
	}
	if flagDeck != "" {
		kind, err := extract.ParseKind(flagDeck)
		if err != nil {
			return err
		}
		req.Deck = &core.DeckSource{Path: flagDeck, Name: filepath.Base(flagDeck), Kind: kind}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg, log, flagOutputDir, flagPDF)
	if err != nil {
		return err
	}

	report, err := a.analyzer.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("%s failed: %s", core.StageOf(err), core.UserMessage(err))
	}

	out := analyzeOutput{
		Markdown: filepath.Join(a.writer.OutputDir, report.MarkdownFile),
		Metadata: report.Result.Metadata,
		Missing:  report.Result.MissingSections,
		Warnings: report.Warnings,
	}
	if report.PDFFile != "" {
		out.PDF = filepath.Join(a.writer.OutputDir, report.PDFFile)
	}

	w := cmd.OutOrStdout()
	if flagJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(w, "Markdown: %s\n", out.Markdown)
	if out.PDF != "" {
		fmt.Fprintf(w, "PDF:      %s\n", out.PDF)
	}
	fmt.Fprintf(w, "Template: %s, model %s (%s), %d resources fetched\n",
		out.Metadata.Template, out.Metadata.Model, out.Metadata.Provider, out.Metadata.ResourcesFetched)
	for _, u := range out.Metadata.FailedURLs {
		fmt.Fprintf(w, "Failed:   %s\n", u)
	}
	for _, warning := range out.Warnings {
		fmt.Fprintf(w, "Warning:  %s\n", warning)
	}
	return nil
}
