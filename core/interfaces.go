// Package core defines the pipeline types and interfaces for deckpipe.
// Each stage of the pipeline is a clean, testable interface.
package core

import (
	"context"
	"time"
)

// DeckKind identifies the format of an uploaded or imported deck.
type DeckKind string

const (
	KindPDF  DeckKind = "pdf"
	KindPPTX DeckKind = "pptx"
)

// DeckSource points at a deck file on local disk.
type DeckSource struct {
	Path string
	Name string // original file name, shown to users
	Kind DeckKind
	// Temporary decks (uploads, downloads) are removed once the request ends.
	Temporary bool
}

// AnalysisRequest is the validated input of a single analysis.
type AnalysisRequest struct {
	Title        string
	Presenters   string
	Notes        string
	GitHubURL    string
	ResourceURLs []string
	Deck         *DeckSource
	DeckURL      string
	TemplateID   string
}

// HasDeck reports whether the request carries a deck in any form.
func (r *AnalysisRequest) HasDeck() bool {
	return r.Deck != nil || r.DeckURL != ""
}

// DeckContent is the text pulled out of a deck.
type DeckContent struct {
	Kind      DeckKind
	Text      string
	Pages     int    // pages for PDF, slides for PPTX
	Notes     string // speaker notes, already appended to Text
	HasImages bool
}

// FetchResult holds the raw body and response metadata from a fetch.
type FetchResult struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Resource is a supplementary web page reduced to text.
type Resource struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// FetchFailure records one resource URL that produced no usable content.
type FetchFailure struct {
	URL string
	Err error
}

// FetchReport splits a batch of resource URLs into disjoint successes and failures.
type FetchReport struct {
	Fetched []Resource
	Failed  []FetchFailure
}

// FailedURLs returns the failed URLs in report order.
func (r FetchReport) FailedURLs() []string {
	urls := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		urls = append(urls, f.URL)
	}
	return urls
}

// Metadata describes an analysis for display and for the generated documents.
type Metadata struct {
	Title            string    `json:"title"`
	Presenters       string    `json:"presenters"`
	GitHubURL        string    `json:"github_url"`
	Template         string    `json:"prompt_template"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	GeneratedAt      time.Time `json:"generated_at"`
	ResourcesFetched int       `json:"resources_fetched"`
	FailedURLs       []string  `json:"failed_urls,omitempty"`
}

// Date formats GeneratedAt the way it is shown to users ("January 02, 2006").
func (m Metadata) Date() string {
	return m.GeneratedAt.Format("January 02, 2006")
}

// Time formats GeneratedAt as a 12-hour clock ("03:04 PM").
func (m Metadata) Time() string {
	return m.GeneratedAt.Format("03:04 PM")
}

// AnalysisResult is the model response plus the request metadata.
type AnalysisResult struct {
	Response        string
	Metadata        Metadata
	Sections        []string // headings found in Response
	MissingSections []string // template sections absent from Response
}

// DeckExtractor pulls plain text out of a deck file.
type DeckExtractor interface {
	Extract(path string, kind DeckKind) (*DeckContent, error)
}

// Fetcher retrieves a single URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// ResourceFetcher fetches a set of URLs independently of each other.
type ResourceFetcher interface {
	FetchAll(ctx context.Context, urls []string) FetchReport
}

// Renderer converts the Markdown document into a final output format.
type Renderer interface {
	Render(markdown []byte) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".md", ".pdf").
	Extension() string
}
