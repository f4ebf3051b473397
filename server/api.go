package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gaurav-prasanna/deckpipe/core"
	"github.com/gaurav-prasanna/deckpipe/core/pipeline"
	"github.com/gaurav-prasanna/deckpipe/core/prompt"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/sirupsen/logrus"
)

type analyzeRequest struct {
	Title          string   `json:"title"`
	Presenters     string   `json:"presenters"`
	Notes          string   `json:"notes"`
	ResourceURLs   []string `json:"resource_urls"`
	GitHubURL      string   `json:"github_url"`
	PromptTemplate string   `json:"prompt_template"`
}

type responseMetadata struct {
	Title            string `json:"title"`
	Presenters       string `json:"presenters"`
	Date             string `json:"date"`
	Time             string `json:"time"`
	GitHubURL        string `json:"github_url"`
	PromptTemplate   string `json:"prompt_template"`
	ResourcesFetched int    `json:"resources_fetched"`
	Provider         string `json:"provider"`
	Model            string `json:"model"`
}

type responseFiles struct {
	Markdown string `json:"markdown"`
	PDF      string `json:"pdf,omitempty"`
}

type responseWarnings struct {
	FailedURLs []string `json:"failed_urls"`
	Message    string   `json:"message"`
}

type analyzeResponse struct {
	Success  bool              `json:"success"`
	Analysis string            `json:"analysis"`
	Metadata responseMetadata  `json:"metadata"`
	Files    responseFiles     `json:"files"`
	Warnings *responseWarnings `json:"warnings,omitempty"`
}

type errorResponse struct {
	Success bool       `json:"success"`
	Error   string     `json:"error"`
	Stage   core.Stage `json:"stage,omitempty"`
}

type promptsResponse struct {
	Success bool             `json:"success"`
	Prompts []prompt.Summary `json:"prompts"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) health(ctx khttp.Context) error {
	return ctx.JSON(http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: s.now().Format("2006-01-02T15:04:05.000000"),
	})
}

func (s *Server) prompts(ctx khttp.Context) error {
	return ctx.JSON(http.StatusOK, promptsResponse{Success: true, Prompts: s.templates.List()})
}

// analyzeAPI runs an analysis of resource URLs. Decks cannot be uploaded
// through the API, so at least one resource URL is required.
func (s *Server) analyzeAPI(ctx khttp.Context) error {
	var in analyzeRequest
	if err := ctx.Bind(&in); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "Request body must be a JSON object", Stage: core.StageValidation})
	}

	req := core.AnalysisRequest{
		Title:        in.Title,
		Presenters:   in.Presenters,
		Notes:        in.Notes,
		GitHubURL:    in.GitHubURL,
		ResourceURLs: in.ResourceURLs,
		TemplateID:   in.PromptTemplate,
	}
	if err := validateAPIRequest(&req); err != nil {
		return s.apiError(ctx, err)
	}

	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	report, err := s.analyzer.Run(runCtx, req)
	if err != nil {
		return s.apiError(ctx, err)
	}

	res := report.Result
	out := analyzeResponse{
		Success:  true,
		Analysis: res.Response,
		Metadata: responseMetadata{
			Title:            res.Metadata.Title,
			Presenters:       res.Metadata.Presenters,
			Date:             res.Metadata.Date(),
			Time:             res.Metadata.Time(),
			GitHubURL:        res.Metadata.GitHubURL,
			PromptTemplate:   res.Metadata.Template,
			ResourcesFetched: res.Metadata.ResourcesFetched,
			Provider:         res.Metadata.Provider,
			Model:            res.Metadata.Model,
		},
		Files: responseFiles{Markdown: report.MarkdownFile, PDF: report.PDFFile},
	}
	if len(res.Metadata.FailedURLs) > 0 || len(report.Warnings) > 0 {
		out.Warnings = &responseWarnings{
			FailedURLs: append([]string{}, res.Metadata.FailedURLs...),
			Message:    strings.Join(report.Warnings, "; "),
		}
	}
	return ctx.JSON(http.StatusOK, out)
}

// validateAPIRequest applies the shared field rules, then the API-only
// requirement that every request names resource URLs. Malformed resource
// URLs are not rejected here; they are reported in failed_urls.
func validateAPIRequest(req *core.AnalysisRequest) error {
	err := pipeline.Validate(req)

	var validationErr *core.ValidationError
	if errors.As(err, &validationErr) && validationErr.Field == "resource_urls" && len(req.ResourceURLs) == 0 {
		return core.MissingField("resource_urls")
	}
	return err
}

func (s *Server) apiError(ctx khttp.Context, err error) error {
	status := statusFor(err)
	entry := s.log.WithError(err).WithFields(logrus.Fields{"status": status, "stage": core.StageOf(err)})
	if status >= http.StatusInternalServerError {
		entry.Error("api analysis failed")
	} else {
		entry.Warn("api analysis rejected")
	}
	return ctx.JSON(status, errorResponse{Error: core.UserMessage(err), Stage: core.StageOf(err)})
}
