// Package pipeline runs one analysis end to end:
// validate, resolve the deck, extract, fetch resources, build the prompt,
// call the provider, then write Markdown and (optionally) PDF.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gaurav-prasanna/deckpipe/core"
	"github.com/gaurav-prasanna/deckpipe/core/fetch"
	"github.com/gaurav-prasanna/deckpipe/core/output"
	"github.com/gaurav-prasanna/deckpipe/core/prompt"
	"github.com/gaurav-prasanna/deckpipe/core/provider"
	"github.com/gaurav-prasanna/deckpipe/core/render"
	"github.com/sirupsen/logrus"
)

// Field limits, in characters.
const (
	MaxTitleLen      = 200
	MaxPresentersLen = 300
	MaxNotesLen      = 2000
)

// DeckDownloader imports a deck from a URL.
type DeckDownloader interface {
	Download(ctx context.Context, rawURL, dir string) (*core.DeckSource, error)
}

// Deps are the collaborators of an Analyzer. All are shared across requests
// and must be safe for concurrent use.
type Deps struct {
	Extractor  core.DeckExtractor
	Fetcher    core.ResourceFetcher
	Downloader DeckDownloader
	Templates  *prompt.Store
	Provider   provider.Client
	Writer     *output.Writer
	Markdown   core.Renderer
	PDF        core.Renderer
	Log        logrus.FieldLogger
}

// Options tune a single run.
type Options struct {
	MaxTokens       int
	Temperature     float64
	ProviderTimeout time.Duration
	UploadDir       string
	RenderPDF       bool
}

// Report is the outcome of a successful run.
type Report struct {
	Result       *core.AnalysisResult
	Document     []byte
	MarkdownFile string
	PDFFile      string
	Warnings     []string
}

// Analyzer runs analyses. It holds no per-request state.
type Analyzer struct {
	deps Deps
	opts Options
	now  func() time.Time
}

// New creates an Analyzer.
func New(deps Deps, opts Options) *Analyzer {
	return &Analyzer{deps: deps, opts: opts, now: time.Now}
}

// Validate trims and checks req in place.
func Validate(req *core.AnalysisRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	req.Presenters = strings.TrimSpace(req.Presenters)
	req.Notes = strings.TrimSpace(req.Notes)
	req.GitHubURL = strings.TrimSpace(req.GitHubURL)
	req.DeckURL = strings.TrimSpace(req.DeckURL)
	req.TemplateID = strings.TrimSpace(req.TemplateID)

	for _, f := range []struct {
		name, value string
		max         int
	}{
		{"title", req.Title, MaxTitleLen},
		{"presenters", req.Presenters, MaxPresentersLen},
		{"notes", req.Notes, MaxNotesLen},
	} {
		if f.value == "" {
			return core.MissingField(f.name)
		}
		if utf8.RuneCountInString(f.value) > f.max {
			return &core.ValidationError{Field: f.name, Msg: fmt.Sprintf("Field %s must be at most %d characters", f.name, f.max)}
		}
	}

	// Title and presenters are single header lines in the generated document.
	if strings.ContainsAny(req.Title, "\r\n") {
		return &core.ValidationError{Field: "title", Msg: "Field title must be a single line"}
	}
	if strings.ContainsAny(req.Presenters, "\r\n") {
		return &core.ValidationError{Field: "presenters", Msg: "Field presenters must be a single line"}
	}

	if req.GitHubURL != "" {
		if err := fetch.ValidateURL("github_url", req.GitHubURL); err != nil {
			return err
		}
	}
	if req.DeckURL != "" {
		if err := fetch.ValidateURL("slides_url", req.DeckURL); err != nil {
			return err
		}
	}

	urls := req.ResourceURLs[:0:0]
	for _, u := range req.ResourceURLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	req.ResourceURLs = urls

	if !req.HasDeck() && len(req.ResourceURLs) == 0 {
		return &core.ValidationError{
			Field: "resource_urls",
			Msg:   "Please provide either a slide deck or additional resource URLs to analyze.",
		}
	}
	return nil
}

// Run performs one analysis. Temporary deck files are removed before it returns.
func (a *Analyzer) Run(ctx context.Context, req core.AnalysisRequest) (*Report, error) {
	if req.Deck != nil && req.Deck.Temporary {
		defer a.removeTemp(req.Deck)
	}
	if err := Validate(&req); err != nil {
		return nil, err
	}

	log := a.deps.Log.WithFields(logrus.Fields{"title": req.Title, "template": req.TemplateID})
	started := a.now()

	deck := req.Deck
	if deck == nil && req.DeckURL != "" {
		log.WithField("url", req.DeckURL).Info("downloading presentation")
		downloaded, err := a.deps.Downloader.Download(ctx, req.DeckURL, a.opts.UploadDir)
		if err != nil {
			return nil, err
		}
		defer a.removeTemp(downloaded)
		deck = downloaded
	}

	var deckText string
	if deck != nil {
		content, err := a.deps.Extractor.Extract(deck.Path, deck.Kind)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(content.Text) == "" {
			log.WithFields(logrus.Fields{"pages": content.Pages, "has_images": content.HasImages}).Warn("no text extracted")
			return nil, &core.ExtractionError{
				Source: deck.Name,
				Reason: "no text could be extracted; the file may be image-based (scanned slides) or empty",
			}
		}
		deckText = content.Text
		log.WithFields(logrus.Fields{"pages": content.Pages, "chars": utf8.RuneCountInString(deckText)}).Info("presentation extracted")
	}

	var fetched core.FetchReport
	if len(req.ResourceURLs) > 0 {
		fetched = a.deps.Fetcher.FetchAll(ctx, req.ResourceURLs)
	}
	if deck == nil && len(fetched.Fetched) == 0 {
		return nil, &core.ContentError{Failed: fetched.FailedURLs()}
	}

	var warnings []string
	if n := len(fetched.Failed); n > 0 {
		warnings = append(warnings, fmt.Sprintf("Could not fetch %d of %d resource URLs", n, n+len(fetched.Fetched)))
	}

	tpl, found := a.deps.Templates.Get(req.TemplateID)
	if !found {
		log.WithField("fallback", tpl.ID).Warn("unknown template requested")
	}

	text := prompt.Build(tpl, prompt.Input{
		Title:      req.Title,
		Presenters: req.Presenters,
		Notes:      req.Notes,
		GitHubURL:  req.GitHubURL,
		DeckText:   deckText,
		Resources:  fetch.Distinct(fetched.Fetched),
	})

	response, err := a.send(ctx, text)
	if err != nil {
		log.WithError(err).Error("analysis failed")
		return nil, err
	}

	result := &core.AnalysisResult{
		Response: response,
		Metadata: core.Metadata{
			Title:            req.Title,
			Presenters:       req.Presenters,
			GitHubURL:        req.GitHubURL,
			Template:         tpl.ID,
			Provider:         a.deps.Provider.Name(),
			Model:            a.deps.Provider.Model(),
			GeneratedAt:      a.now(),
			ResourcesFetched: len(fetched.Fetched),
			FailedURLs:       fetched.FailedURLs(),
		},
	}
	for _, h := range render.Headings(response) {
		result.Sections = append(result.Sections, h.Text)
	}
	result.MissingSections = render.Missing(response, tpl.SectionTitles())
	if len(result.MissingSections) > 0 {
		log.WithField("missing", result.MissingSections).Warn("response lacks template sections")
	}

	report := &Report{Result: result, Warnings: warnings}
	if err := a.write(report, log); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"markdown": report.MarkdownFile,
		"pdf":      report.PDFFile,
		"elapsed":  a.now().Sub(started).Round(time.Millisecond),
	}).Info("analysis complete")
	return report, nil
}

func (a *Analyzer) send(ctx context.Context, text string) (string, error) {
	if a.opts.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.ProviderTimeout)
		defer cancel()
	}
	return a.deps.Provider.Send(ctx, provider.Request{
		Prompt:      text,
		MaxTokens:   a.opts.MaxTokens,
		Temperature: a.opts.Temperature,
	})
}

// write stores Markdown first; a PDF failure only adds a warning.
func (a *Analyzer) write(report *Report, log logrus.FieldLogger) error {
	doc, err := a.deps.Markdown.Render(render.Document(report.Result))
	if err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}
	report.Document = doc

	base := output.BaseName(report.Result.Metadata.GeneratedAt)
	mdPath, err := a.deps.Writer.Write(base, doc, a.deps.Markdown.Extension())
	if err != nil {
		return fmt.Errorf("saving markdown: %w", err)
	}
	report.MarkdownFile = filepath.Base(mdPath)

	if !a.opts.RenderPDF || a.deps.PDF == nil {
		return nil
	}

	pdf, err := a.deps.PDF.Render(doc)
	if err == nil {
		var pdfPath string
		if pdfPath, err = a.deps.Writer.Write(base, pdf, a.deps.PDF.Extension()); err == nil {
			report.PDFFile = filepath.Base(pdfPath)
			return nil
		}
		err = &core.RenderError{Format: "pdf", Err: err}
	}

	log.WithError(err).Warn("pdf generation failed")
	report.Warnings = append(report.Warnings, core.UserMessage(err))
	return nil
}

func (a *Analyzer) removeTemp(src *core.DeckSource) {
	if err := os.Remove(src.Path); err != nil && !os.IsNotExist(err) {
		a.deps.Log.WithError(err).WithField("path", src.Path).Warn("could not remove temporary deck")
	}
}
