package core

import (
	"errors"
	"fmt"
	"strings"
)

// Stage names the part of the pipeline an error came from.
type Stage string

const (
	StageValidation Stage = "validation"
	StageExtraction Stage = "extraction"
	StageFetch      Stage = "fetch"
	StageAnalysis   Stage = "analysis"
	StageRendering  Stage = "rendering"
	StageOutput     Stage = "output"
)

// ValidationError reports a malformed or missing request field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// MissingField builds the ValidationError for an absent required field.
func MissingField(field string) *ValidationError {
	return &ValidationError{Field: field, Msg: "Missing required field: " + field}
}

// ExtractionError reports a deck that could not be read.
type ExtractionError struct {
	Source string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extracting %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("extracting %s: %s", e.Source, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// FetchError reports one resource URL that could not be used.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ContentError is returned when a request ends up with nothing to analyze:
// no deck and no resource that could be fetched.
type ContentError struct {
	Failed []string
}

func (e *ContentError) Error() string {
	if len(e.Failed) == 0 {
		return "no content to analyze: provide a slide deck or at least one resource URL"
	}
	return fmt.Sprintf("no content to analyze: none of the %d resource URLs could be fetched (%s)",
		len(e.Failed), strings.Join(e.Failed, ", "))
}

// ProviderErrorKind is the vendor-neutral class of a provider failure.
type ProviderErrorKind string

const (
	ProviderAuth        ProviderErrorKind = "auth"
	ProviderRateLimit   ProviderErrorKind = "rate_limit"
	ProviderNetwork     ProviderErrorKind = "network"
	ProviderBadResponse ProviderErrorKind = "bad_response"
	ProviderUnavailable ProviderErrorKind = "unavailable"
)

// ProviderError wraps a failed model call.
type ProviderError struct {
	Provider string
	Kind     ProviderErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// RenderError reports a failed conversion to a derived format such as PDF.
type RenderError struct {
	Format string
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering %s: %v", e.Format, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// StageOf maps err onto the stage that produced it. Unknown errors are
// attributed to output handling.
func StageOf(err error) Stage {
	var (
		validationErr *ValidationError
		extractionErr *ExtractionError
		fetchErr      *FetchError
		contentErr    *ContentError
		providerErr   *ProviderError
		renderErr     *RenderError
	)

	switch {
	case errors.As(err, &validationErr):
		return StageValidation
	case errors.As(err, &extractionErr):
		return StageExtraction
	case errors.As(err, &fetchErr), errors.As(err, &contentErr):
		return StageFetch
	case errors.As(err, &providerErr):
		return StageAnalysis
	case errors.As(err, &renderErr):
		return StageRendering
	default:
		return StageOutput
	}
}

// UserMessage turns err into a message that names the failing stage.
func UserMessage(err error) string {
	var (
		validationErr *ValidationError
		extractionErr *ExtractionError
		contentErr    *ContentError
		providerErr   *ProviderError
		renderErr     *RenderError
	)

	switch {
	case errors.As(err, &validationErr):
		return validationErr.Msg
	case errors.As(err, &extractionErr):
		return "Could not extract content from the presentation: " + extractionErr.Reason
	case errors.As(err, &contentErr):
		return "Could not fetch any content to analyze: " + contentErr.Error()
	case errors.As(err, &providerErr):
		return fmt.Sprintf("Analysis service unavailable (%s, %s); please try again later", providerErr.Provider, providerErr.Kind)
	case errors.As(err, &renderErr):
		return "PDF generation failed; the Markdown report is still available"
	default:
		return "Failed to save the analysis output: " + err.Error()
	}
}
