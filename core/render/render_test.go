package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gaurav-prasanna/deckpipe/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = "## EXECUTIVE SUMMARY\nThe talk covers **eBPF** tooling.\n\n" +
	"## KEY TECHNICAL INSIGHTS\n- Kernel probes\n- `bpftrace` one-liners\n  1. nested\n\n" +
	"## PRACTICAL APPLICATIONS\n### Use Cases\n> Quoted advice\n\n" +
	"| Tool | Use |\n|------|-----|\n| bcc | tracing |\n\n" +
	"```go\nfunc main() {}\n```\n\n" +
	"## FOLLOW-UP QUESTIONS\n1. What about Windows? See [docs](https://ebpf.io).\n"

func sampleResult() *core.AnalysisResult {
	return &core.AnalysisResult{
		Response: sampleResponse,
		Metadata: core.Metadata{
			Title:            "eBPF in Production",
			Presenters:       "Brendan Gregg, Liz Rice",
			GitHubURL:        "https://github.com/example/ebpf-labs",
			Template:         "presales_engineer",
			Provider:         "anthropic",
			Model:            "claude-sonnet-4-20250514",
			GeneratedAt:      time.Date(2024, time.March, 5, 14, 7, 0, 0, time.UTC),
			ResourcesFetched: 2,
			FailedURLs:       []string{"https://dead.example/b"},
		},
	}
}

func TestDocumentLayout(t *testing.T) {
	doc := string(Document(sampleResult()))

	assert.True(t, strings.HasPrefix(doc, "# eBPF in Production\n\n- **Presenters:** Brendan Gregg, Liz Rice\n"))
	assert.Contains(t, doc, "- **Date:** March 05, 2024 at 02:07 PM\n")
	assert.Contains(t, doc, "- **GitHub Repository:** https://github.com/example/ebpf-labs\n")
	assert.Contains(t, doc, "- **Failed URLs:** https://dead.example/b\n")

	header := strings.Index(doc, "- **Resources Fetched:** 2")
	response := strings.Index(doc, sampleResponse)
	footer := strings.Index(doc, Attribution)
	require.True(t, header > 0 && response > header && footer > response)
	assert.Contains(t, doc, "\n---\n\n"+sampleResponse+"\n\n---\n\n"+Attribution)
}

func TestDocumentRoundTrip(t *testing.T) {
	for _, meta := range []core.Metadata{
		{Title: "Plain", Presenters: "Ada"},
		{Title: "Symbols: #1 *bold* | pipes", Presenters: "O'Brien & Sons"},
		{Title: "Unicode — 日本語", Presenters: "Zoë"},
	} {
		doc := Document(&core.AnalysisResult{Response: "# not the title\n- **Presenters:** nobody", Metadata: meta})

		h, err := ParseHeader(doc)
		require.NoError(t, err)
		assert.Equal(t, meta.Title, h.Title)
		assert.Equal(t, meta.Presenters, h.Presenters)
	}
}

func TestParseHeaderRejectsForeignDocuments(t *testing.T) {
	_, err := ParseHeader([]byte("just some notes\n"))
	assert.Error(t, err)

	_, err = ParseHeader([]byte("# Title\n\n---\n"))
	assert.Error(t, err)
}

func TestHTMLRenderer(t *testing.T) {
	out, err := NewHTMLRenderer().Render([]byte(sampleResponse + "\n<script>alert(1)</script>\n"))
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "<h2>EXECUTIVE SUMMARY</h2>")
	assert.Contains(t, html, "<strong>eBPF</strong>")
	assert.Contains(t, html, "<table>")
	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, "alert(1)")
	assert.Contains(t, html, "raw HTML omitted")
}

func TestPDFRenderer(t *testing.T) {
	r := NewPDFRenderer()
	out, err := r.Render(Document(sampleResult()))
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Equal(t, ".pdf", r.Extension())
}

func TestFoldCP1252(t *testing.T) {
	out, lost := foldCP1252("a → b ✅ 日本 café – “ok”")
	assert.Equal(t, "a -> b [x] ?? café – “ok”", out)
	assert.Equal(t, 2, lost)

	out, lost = foldCP1252("plain text")
	assert.Equal(t, "plain text", out)
	assert.Zero(t, lost)
}

func TestPDFRendererNotesUnprintableCharacters(t *testing.T) {
	r := &PDFRenderer{html: NewHTMLRenderer()}

	out, err := r.Render([]byte("# Results\n\nLatency → lower ✅ in 東京 🚀\n\n| Region | Status |\n|---|---|\n| 大阪 | ok |\n"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "5 characters could not be shown in this PDF")

	out, err = r.Render(Document(sampleResult()))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "could not be shown in this PDF")
}

func TestPDFRendererHandlesLongDocuments(t *testing.T) {
	md := strings.Repeat("Paragraph with enough words to wrap across the page width several times over.\n\n", 300)

	out, err := NewPDFRenderer().Render([]byte(md))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRenderErrorStage(t *testing.T) {
	err := error(&core.RenderError{Format: "pdf", Err: errors.New("boom")})
	assert.Equal(t, core.StageRendering, core.StageOf(err))
}

func TestSplitAndMissing(t *testing.T) {
	sections := Split(sampleResponse)
	require.Len(t, sections, 5)
	assert.Equal(t, "EXECUTIVE SUMMARY", sections[0].Heading)
	assert.Equal(t, "The talk covers **eBPF** tooling.", sections[0].Text)
	assert.Equal(t, 3, sections[3].Level)
	assert.NotContains(t, Headings(sampleResponse), Heading{Level: 1, Text: "func main() {}"})

	missing := Missing("## **Executive Summary:**\n## 2. Key Technical Insights\n", []string{
		"EXECUTIVE SUMMARY", "KEY TECHNICAL INSIGHTS", "DEEP DIVE TOPICS",
	})
	assert.Equal(t, []string{"DEEP DIVE TOPICS"}, missing)
}

func TestSplitIgnoresHeadingsInsideFences(t *testing.T) {
	md := "## Real\n```\n# comment in code\n```\n"

	sections := Split(md)
	require.Len(t, sections, 1)
	assert.Contains(t, sections[0].Text, "# comment in code")
}

func TestMarkdownRendererPassthrough(t *testing.T) {
	in := []byte("# x\n")
	out, err := NewMarkdownRenderer().Render(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, ".md", NewMarkdownRenderer().Extension())
}
