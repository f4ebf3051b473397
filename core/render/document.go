// Package render produces the downloadable analysis documents.
// Markdown is the canonical format; HTML and PDF are derived from it.
package render

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/deckpipe/core"
)

// Attribution closes every generated document.
const Attribution = "*Generated by deckpipe. AI analysis may contain errors; verify important details against the original material.*"

const (
	presentersLabel = "- **Presenters:** "
	separator       = "---"
)

// Document lays out an analysis as Markdown: metadata header, separator,
// the model response verbatim, separator, attribution footer.
func Document(result *core.AnalysisResult) []byte {
	m := result.Metadata

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", m.Title)
	b.WriteString(presentersLabel + m.Presenters + "\n")
	fmt.Fprintf(&b, "- **Date:** %s at %s\n", m.Date(), m.Time())
	if m.GitHubURL != "" {
		fmt.Fprintf(&b, "- **GitHub Repository:** %s\n", m.GitHubURL)
	}
	if m.Template != "" {
		fmt.Fprintf(&b, "- **Analysis Template:** %s\n", m.Template)
	}
	if m.Provider != "" {
		fmt.Fprintf(&b, "- **Model:** %s (%s)\n", m.Model, m.Provider)
	}
	fmt.Fprintf(&b, "- **Resources Fetched:** %d\n", m.ResourcesFetched)
	if len(m.FailedURLs) > 0 {
		fmt.Fprintf(&b, "- **Failed URLs:** %s\n", strings.Join(m.FailedURLs, ", "))
	}

	b.WriteString("\n" + separator + "\n\n")
	b.WriteString(result.Response)
	b.WriteString("\n\n" + separator + "\n\n")
	b.WriteString(Attribution + "\n")
	return []byte(b.String())
}

// Header is the metadata recoverable from a generated document.
type Header struct {
	Title      string
	Presenters string
}

// ParseHeader reads the title and presenters back out of a document
// produced by Document.
func ParseHeader(doc []byte) (Header, error) {
	var h Header
	var haveTitle, havePresenters bool

	sc := bufio.NewScanner(strings.NewReader(string(doc)))
	sc.Buffer(make([]byte, 0, 64*1024), len(doc)+1)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == separator:
			if !haveTitle || !havePresenters {
				return h, fmt.Errorf("document header incomplete")
			}
			return h, nil
		case !haveTitle && strings.HasPrefix(line, "# "):
			h.Title = strings.TrimPrefix(line, "# ")
			haveTitle = true
		case !havePresenters && strings.HasPrefix(line, presentersLabel):
			h.Presenters = strings.TrimPrefix(line, presentersLabel)
			havePresenters = true
		}
	}
	if err := sc.Err(); err != nil {
		return h, fmt.Errorf("scanning document: %w", err)
	}
	return h, fmt.Errorf("document header not terminated")
}

// MarkdownRenderer writes Markdown as-is. It's the simplest renderer
// since Markdown is already the canonical format.
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render returns the Markdown unchanged.
func (r *MarkdownRenderer) Render(markdown []byte) ([]byte, error) {
	return markdown, nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}
