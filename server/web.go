package server

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gaurav-prasanna/deckpipe/core"
	"github.com/gaurav-prasanna/deckpipe/core/extract"
	"github.com/gaurav-prasanna/deckpipe/core/fetch"
	"github.com/gaurav-prasanna/deckpipe/core/output"
	"github.com/gaurav-prasanna/deckpipe/core/pipeline"
	"github.com/gaurav-prasanna/deckpipe/core/prompt"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/uuid"
)

const (
	// multipartMemory is how much of a form is kept in memory before
	// parts spill to disk.
	multipartMemory = 8 << 20
	// formOverhead covers the non-file fields of a multipart body.
	formOverhead = 1 << 20
)

// Deck sources offered by the upload form.
const (
	deckUpload = "upload"
	deckURL    = "url"
	deckNone   = "none"
)

// formState echoes submitted values back into the form after an error.
type formState struct {
	Title          string
	Presenters     string
	Notes          string
	GitHubURL      string
	ResourceURLs   string
	DeckSource     string
	DeckURL        string
	PromptTemplate string
}

type indexPage struct {
	Templates     []prompt.Summary
	Token         string
	MaxFileSizeMB int64
	Error         string
	Form          formState
}

type resultsPage struct {
	Analysis        template.HTML
	Title           string
	Presenters      string
	Date            string
	Time            string
	GitHubURL       string
	Template        string
	Provider        string
	Model           string
	Resources       int
	FailedURLs      []string
	MissingSections []string
	Warnings        []string
	MarkdownFile    string
	PDFFile         string
}

func (s *Server) index(ctx khttp.Context) error {
	return s.renderIndex(ctx.Response(), http.StatusOK, formState{
		DeckSource:     deckUpload,
		PromptTemplate: s.templates.DefaultID(),
	}, "")
}

// analyzeForm handles the upload form. Errors re-render the form with the
// submitted values and an inline message.
func (s *Server) analyzeForm(ctx khttp.Context) error {
	w, r := ctx.Response(), ctx.Request()

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return s.renderIndex(w, http.StatusRequestEntityTooLarge, formState{DeckSource: deckUpload}, s.tooLargeMessage())
		}
		return s.renderIndex(w, http.StatusBadRequest, formState{DeckSource: deckUpload}, "Could not read the submitted form.")
	}
	defer r.MultipartForm.RemoveAll()

	form := readForm(r)
	if err := s.tokens.Verify(r.FormValue("form_token")); err != nil {
		s.log.WithError(err).Warn("form token rejected")
		return s.renderIndex(w, http.StatusBadRequest, form, "The form has expired. Please submit it again.")
	}

	req, err := s.formRequest(r, form)
	if err != nil {
		return s.renderIndex(w, statusFor(err), form, core.UserMessage(err))
	}

	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	report, err := s.analyzer.Run(runCtx, req)
	if err != nil {
		s.log.WithError(err).WithField("stage", core.StageOf(err)).Warn("form analysis failed")
		return s.renderIndex(w, statusFor(err), form, core.UserMessage(err))
	}

	body, err := s.html.Render([]byte(report.Result.Response))
	if err != nil {
		s.log.WithError(err).Warn("could not render analysis as HTML")
		body = []byte("<pre>" + template.HTMLEscapeString(report.Result.Response) + "</pre>")
	}

	meta := report.Result.Metadata
	return s.renderPage(w, http.StatusOK, "results.html", resultsPage{
		Analysis:        template.HTML(body),
		Title:           meta.Title,
		Presenters:      meta.Presenters,
		Date:            meta.Date(),
		Time:            meta.Time(),
		GitHubURL:       meta.GitHubURL,
		Template:        meta.Template,
		Provider:        meta.Provider,
		Model:           meta.Model,
		Resources:       meta.ResourcesFetched,
		FailedURLs:      meta.FailedURLs,
		MissingSections: report.Result.MissingSections,
		Warnings:        report.Warnings,
		MarkdownFile:    report.MarkdownFile,
		PDFFile:         report.PDFFile,
	})
}

func readForm(r *http.Request) formState {
	form := formState{
		Title:          r.FormValue("title"),
		Presenters:     r.FormValue("presenters"),
		Notes:          r.FormValue("notes"),
		GitHubURL:      r.FormValue("github_url"),
		ResourceURLs:   r.FormValue("resource_urls"),
		DeckSource:     strings.TrimSpace(r.FormValue("deck_source")),
		DeckURL:        r.FormValue("deck_url"),
		PromptTemplate: r.FormValue("prompt_template"),
	}
	if form.DeckSource == "" {
		form.DeckSource = deckUpload
	}
	return form
}

// formRequest turns the form into a pipeline request. An uploaded deck is
// saved last, after the cheap checks, so rejected forms leave no files.
func (s *Server) formRequest(r *http.Request, form formState) (core.AnalysisRequest, error) {
	req := core.AnalysisRequest{
		Title:        form.Title,
		Presenters:   form.Presenters,
		Notes:        form.Notes,
		GitHubURL:    form.GitHubURL,
		ResourceURLs: fetch.ParseURLList(form.ResourceURLs),
		TemplateID:   form.PromptTemplate,
	}

	switch form.DeckSource {
	case deckNone:
	case deckURL:
		req.DeckURL = strings.TrimSpace(form.DeckURL)
		if req.DeckURL == "" {
			return req, &core.ValidationError{Field: "deck_url", Msg: "Please provide a URL to the presentation file."}
		}
	case deckUpload:
		file, header, err := r.FormFile("deck")
		if errors.Is(err, http.ErrMissingFile) || (err == nil && header.Filename == "") {
			if err == nil {
				file.Close()
			}
			// A form with resource URLs can still be analyzed without a deck.
			if len(req.ResourceURLs) == 0 {
				return req, &core.ValidationError{Field: "deck", Msg: "No file uploaded."}
			}
			return req, pipeline.Validate(&req)
		}
		if err != nil {
			return req, &core.ValidationError{Field: "deck", Msg: "Could not read the uploaded file."}
		}
		defer file.Close()

		if header.Size > s.opts.MaxUploadBytes {
			return req, &core.ValidationError{Field: "deck", Msg: s.tooLargeMessage()}
		}
		if err := pipeline.Validate(&req); err != nil {
			return req, err
		}
		deck, err := s.saveUpload(file, header.Filename)
		if err != nil {
			return req, err
		}
		req.Deck = deck
		return req, nil
	default:
		return req, &core.ValidationError{Field: "deck_source", Msg: "Unknown deck source: " + form.DeckSource}
	}

	return req, pipeline.Validate(&req)
}

// saveUpload stores an uploaded deck under a unique name in the upload dir.
func (s *Server) saveUpload(src io.Reader, filename string) (*core.DeckSource, error) {
	name := filepath.Base(filename)
	kind, err := extract.ParseKind(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.opts.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	path := filepath.Join(s.opts.UploadDir, uuid.NewString()+"_"+safeName(name))
	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("saving upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return nil, fmt.Errorf("saving upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("saving upload: %w", err)
	}

	s.log.WithField("file", name).Info("upload saved")
	return &core.DeckSource{Path: path, Name: name, Kind: kind, Temporary: true}, nil
}

// safeName keeps letters, digits, dot, dash and underscore.
func safeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

func (s *Server) download(ctx khttp.Context) error {
	w, r := ctx.Response(), ctx.Request()
	vars := ctx.Vars()
	kind, name := vars.Get("kind"), vars.Get("filename")

	f, err := s.writer.Open(kind, name)
	switch {
	case errors.Is(err, output.ErrInvalidName):
		return ctx.String(http.StatusBadRequest, "invalid file name")
	case errors.Is(err, output.ErrNotFound):
		return ctx.String(http.StatusNotFound, "file not found")
	case err != nil:
		s.log.WithError(err).WithField("file", name).Error("download failed")
		return ctx.String(http.StatusInternalServerError, "error downloading file")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return ctx.String(http.StatusInternalServerError, "error downloading file")
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModTime(), f)
	return nil
}

func (s *Server) renderIndex(w http.ResponseWriter, status int, form formState, msg string) error {
	return s.renderPage(w, status, "index.html", indexPage{
		Templates:     s.templates.List(),
		Token:         s.tokens.Issue(),
		MaxFileSizeMB: s.opts.MaxUploadBytes >> 20,
		Error:         msg,
		Form:          form,
	})
}

func (s *Server) renderPage(w http.ResponseWriter, status int, name string, data any) error {
	var buf strings.Builder
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("rendering %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := io.WriteString(w, buf.String())
	return err
}

func (s *Server) tooLargeMessage() string {
	return fmt.Sprintf("File too large. Maximum size is %d MB.", s.opts.MaxUploadBytes>>20)
}

func joinLines(items []string) string {
	return strings.Join(items, "\n")
}
