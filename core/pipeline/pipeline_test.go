package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gaurav-prasanna/deckpipe/core"
	"github.com/gaurav-prasanna/deckpipe/core/extract"
	"github.com/gaurav-prasanna/deckpipe/core/extract/decktest"
	"github.com/gaurav-prasanna/deckpipe/core/output"
	"github.com/gaurav-prasanna/deckpipe/core/prompt"
	"github.com/gaurav-prasanna/deckpipe/core/provider"
	"github.com/gaurav-prasanna/deckpipe/core/render"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoProvider answers with every heading requested in the prompt.
type echoProvider struct {
	prompts []string
	err     error
}

func (p *echoProvider) Name() string  { return "echo" }
func (p *echoProvider) Model() string { return "echo-1" }

func (p *echoProvider) Send(_ context.Context, req provider.Request) (string, error) {
	p.prompts = append(p.prompts, req.Prompt)
	if p.err != nil {
		return "", p.err
	}
	var b strings.Builder
	for _, line := range strings.Split(req.Prompt, "\n") {
		if strings.HasPrefix(line, "#") {
			b.WriteString(line + "\nAnalysis text.\n\n")
		}
	}
	return b.String(), nil
}

type stubFetcher struct {
	report core.FetchReport
	calls  int
}

func (f *stubFetcher) FetchAll(context.Context, []string) core.FetchReport {
	f.calls++
	return f.report
}

type failingRenderer struct{}

func (failingRenderer) Render([]byte) ([]byte, error) {
	return nil, &core.RenderError{Format: "pdf", Err: errors.New("no fonts")}
}
func (failingRenderer) Extension() string { return ".pdf" }

type fixture struct {
	analyzer *Analyzer
	provider *echoProvider
	fetcher  *stubFetcher
	writer   *output.Writer
	dir      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	store, err := prompt.LoadStore(prompt.Embedded(), prompt.DefaultTemplateID)
	require.NoError(t, err)
	writer, err := output.New(filepath.Join(dir, "outputs"))
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	f := &fixture{provider: &echoProvider{}, fetcher: &stubFetcher{}, writer: writer, dir: dir}
	f.analyzer = New(Deps{
		Extractor: extract.New(),
		Fetcher:   f.fetcher,
		Templates: store,
		Provider:  f.provider,
		Writer:    writer,
		Markdown:  render.NewMarkdownRenderer(),
		PDF:       render.NewPDFRenderer(),
		Log:       log,
	}, Options{MaxTokens: 4096, Temperature: 0.7, UploadDir: filepath.Join(dir, "uploads"), RenderPDF: true})
	return f
}

func (f *fixture) deck(t *testing.T) *core.DeckSource {
	t.Helper()
	path := decktest.WritePPTX(t, f.dir, "workshop.pptx", []decktest.Slide{
		{Body: []string{"Workshop agenda", "Hands-on labs"}, Notes: "Welcome everyone"},
		{Body: []string{"Deploying to Kubernetes"}},
	})
	return &core.DeckSource{Path: path, Name: "workshop.pptx", Kind: core.KindPPTX, Temporary: true}
}

func TestRunDeckOnly(t *testing.T) {
	f := newFixture(t)
	deck := f.deck(t)

	report, err := f.analyzer.Run(context.Background(), core.AnalysisRequest{
		Title:      "Workshop",
		Presenters: "A. Smith",
		Notes:      "notes",
		Deck:       deck,
	})
	require.NoError(t, err)

	result := report.Result
	assert.Equal(t, 0, result.Metadata.ResourcesFetched)
	assert.Equal(t, prompt.DefaultTemplateID, result.Metadata.Template)
	assert.Equal(t, "echo", result.Metadata.Provider)
	assert.Empty(t, result.MissingSections)
	for _, section := range []string{"EXECUTIVE SUMMARY", "KEY TECHNICAL INSIGHTS", "PRACTICAL APPLICATIONS", "DEEP DIVE TOPICS", "FOLLOW-UP QUESTIONS"} {
		assert.Contains(t, result.Sections, section)
	}
	assert.Zero(t, f.fetcher.calls, "no resource URLs means no fetch")

	require.Len(t, f.provider.prompts, 1)
	assert.Contains(t, f.provider.prompts[0], "SLIDE CONTENT EXTRACTED:\n--- Slide 1 ---\nWorkshop agenda")
	assert.Contains(t, f.provider.prompts[0], "Notes for Slide 1: Welcome everyone")

	assert.NoFileExists(t, deck.Path, "temporary deck removed")
	assert.NotEmpty(t, report.PDFFile)
	assert.Empty(t, report.Warnings)

	md, err := os.ReadFile(filepath.Join(f.writer.OutputDir, report.MarkdownFile))
	require.NoError(t, err)
	header, err := render.ParseHeader(md)
	require.NoError(t, err)
	assert.Equal(t, "Workshop", header.Title)
	assert.Equal(t, "A. Smith", header.Presenters)
}

func TestRunAllResourcesFailWithoutDeck(t *testing.T) {
	f := newFixture(t)
	f.fetcher.report = core.FetchReport{Failed: []core.FetchFailure{
		{URL: "https://dead.example/a", Err: errors.New("timeout")},
		{URL: "https://dead.example/b", Err: errors.New("404")},
	}}

	report, err := f.analyzer.Run(context.Background(), core.AnalysisRequest{
		Title:        "Talk",
		Presenters:   "B",
		Notes:        "n",
		ResourceURLs: []string{"https://dead.example/a", "https://dead.example/b"},
	})

	assert.Nil(t, report)
	var contentErr *core.ContentError
	require.ErrorAs(t, err, &contentErr)
	assert.Equal(t, []string{"https://dead.example/a", "https://dead.example/b"}, contentErr.Failed)
	assert.Equal(t, core.StageFetch, core.StageOf(err))
	assert.Empty(t, f.provider.prompts, "provider never called")
}

func TestRunPartialResourcesWarn(t *testing.T) {
	f := newFixture(t)
	f.fetcher.report = core.FetchReport{
		Fetched: []core.Resource{{URL: "https://valid.example/a", Title: "A", Text: "alpha"}},
		Failed:  []core.FetchFailure{{URL: "https://dead.example/b", Err: errors.New("404")}},
	}

	report, err := f.analyzer.Run(context.Background(), core.AnalysisRequest{
		Title:        "Talk",
		Presenters:   "B",
		Notes:        "n",
		ResourceURLs: []string{"https://valid.example/a", "https://dead.example/b"},
		TemplateID:   "does_not_exist",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Result.Metadata.ResourcesFetched)
	assert.Equal(t, []string{"https://dead.example/b"}, report.Result.Metadata.FailedURLs)
	assert.Equal(t, prompt.DefaultTemplateID, report.Result.Metadata.Template, "unknown template falls back")
	assert.Equal(t, []string{"Could not fetch 1 of 2 resource URLs"}, report.Warnings)
	assert.Contains(t, f.provider.prompts[0], "and the provided resources")
	assert.Contains(t, f.provider.prompts[0], "- Authors/Sources: B")
}

func TestRunRepeatedResourceCountedPerInputButPromptedOnce(t *testing.T) {
	f := newFixture(t)
	f.fetcher.report = core.FetchReport{
		Fetched: []core.Resource{
			{URL: "https://valid.example/a", Title: "A", Text: "alpha"},
			{URL: "https://valid.example/a/", Title: "A", Text: "alpha"},
		},
	}

	report, err := f.analyzer.Run(context.Background(), core.AnalysisRequest{
		Title:        "Talk",
		Presenters:   "B",
		Notes:        "n",
		ResourceURLs: []string{"https://valid.example/a", "https://valid.example/a/"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Result.Metadata.ResourcesFetched)
	assert.Equal(t, 1, strings.Count(f.provider.prompts[0], "--- Resource "))
}

func TestRunPDFFailureKeepsMarkdown(t *testing.T) {
	f := newFixture(t)
	f.analyzer.deps.PDF = failingRenderer{}

	report, err := f.analyzer.Run(context.Background(), core.AnalysisRequest{
		Title: "Talk", Presenters: "B", Notes: "n", Deck: f.deck(t),
	})
	require.NoError(t, err)

	assert.Empty(t, report.PDFFile)
	assert.FileExists(t, filepath.Join(f.writer.OutputDir, report.MarkdownFile))
	assert.Equal(t, []string{"PDF generation failed; the Markdown report is still available"}, report.Warnings)
}

func TestRunProviderErrorIsFatal(t *testing.T) {
	f := newFixture(t)
	f.provider.err = &core.ProviderError{Provider: "echo", Kind: core.ProviderRateLimit, Err: errors.New("429")}

	_, err := f.analyzer.Run(context.Background(), core.AnalysisRequest{
		Title: "Talk", Presenters: "B", Notes: "n", Deck: f.deck(t),
	})

	assert.Equal(t, core.StageAnalysis, core.StageOf(err))
	entries, _ := os.ReadDir(f.writer.OutputDir)
	assert.Empty(t, entries, "nothing written for a failed analysis")
}

func TestRunCorruptDeck(t *testing.T) {
	f := newFixture(t)
	path := decktest.WriteGarbage(t, f.dir, "broken.pdf")

	_, err := f.analyzer.Run(context.Background(), core.AnalysisRequest{
		Title: "Talk", Presenters: "B", Notes: "n",
		Deck: &core.DeckSource{Path: path, Name: "broken.pdf", Kind: core.KindPDF, Temporary: true},
	})

	assert.Equal(t, core.StageExtraction, core.StageOf(err))
	assert.NoFileExists(t, path)
}

func TestValidate(t *testing.T) {
	valid := func() core.AnalysisRequest {
		return core.AnalysisRequest{Title: " T ", Presenters: "P", Notes: "N", ResourceURLs: []string{" https://a.example ", ""}}
	}

	req := valid()
	require.NoError(t, Validate(&req))
	assert.Equal(t, "T", req.Title)
	assert.Equal(t, []string{"https://a.example"}, req.ResourceURLs)

	tests := []struct {
		name   string
		mutate func(*core.AnalysisRequest)
		want   string
	}{
		{"missing title", func(r *core.AnalysisRequest) { r.Title = "  " }, "Missing required field: title"},
		{"missing presenters", func(r *core.AnalysisRequest) { r.Presenters = "" }, "Missing required field: presenters"},
		{"missing notes", func(r *core.AnalysisRequest) { r.Notes = "" }, "Missing required field: notes"},
		{"long title", func(r *core.AnalysisRequest) { r.Title = strings.Repeat("x", MaxTitleLen+1) }, "Field title must be at most 200 characters"},
		{"multiline title", func(r *core.AnalysisRequest) { r.Title = "a\nb" }, "Field title must be a single line"},
		{"bad github", func(r *core.AnalysisRequest) { r.GitHubURL = "not a url" }, "Invalid URL in github_url: not a url"},
		{"no content", func(r *core.AnalysisRequest) { r.ResourceURLs = nil }, "Please provide either a slide deck or additional resource URLs to analyze."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)

			err := Validate(&req)
			var validationErr *core.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.want, validationErr.Msg)
		})
	}
}
