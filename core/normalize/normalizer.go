// Package normalize reduces a fetched web page to the text handed to the model.
// It isolates the readable content of a page by:
//  1. Running readability to find the main article
//  2. Falling back to noise stripping (nav, footer, scripts, etc.) on <main>, <article> or <body>
//  3. Optionally converting the readable HTML to Markdown
package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// Format selects how readable HTML is turned into text.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// ErrNoText is returned when a page has no readable text left after cleaning.
var ErrNoText = errors.New("no readable text")

// noiseSelectors are HTML elements removed before the fallback extraction.
var noiseSelectors = []string{
	"script", "style", "noscript",
	"nav", "footer", "header", "aside",
	"img", "picture", "figure", "figcaption",
	"iframe", "video", "audio",
	"svg", "canvas",
	"form", "button", "input", "select", "textarea",
	".sidebar", ".menu", ".navigation", ".ads", ".advertisement", ".cookie-banner",
}

// Page is the readable part of a fetched document.
type Page struct {
	Title string
	Text  string
}

// Normalizer turns raw response bodies into capped, line-trimmed text.
type Normalizer struct {
	format   Format
	maxChars int
}

// New creates a Normalizer. maxChars <= 0 disables the cap.
func New(format Format, maxChars int) *Normalizer {
	if format != FormatMarkdown {
		format = FormatText
	}
	return &Normalizer{format: format, maxChars: maxChars}
}

// Normalize extracts the readable text of body. Plain text and Markdown
// bodies are used as they are; everything else is parsed as HTML.
func (n *Normalizer) Normalize(body []byte, contentType string, pageURL *url.URL) (*Page, error) {
	var page *Page
	var err error

	if isPlainText(contentType) {
		page = &Page{Text: string(body)}
	} else {
		page, err = n.fromHTML(body, pageURL)
		if err != nil {
			return nil, err
		}
	}

	page.Text = Truncate(CleanLines(page.Text), n.maxChars)
	if page.Text == "" {
		return nil, ErrNoText
	}
	if page.Title == "" && pageURL != nil {
		page.Title = pageURL.String()
	}
	return page, nil
}

func (n *Normalizer) fromHTML(body []byte, pageURL *url.URL) (*Page, error) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		page := &Page{Title: strings.TrimSpace(article.Title), Text: article.TextContent}
		if n.format == FormatMarkdown {
			if md, err := htmltomarkdown.ConvertString(article.Content); err == nil && strings.TrimSpace(md) != "" {
				page.Text = md
			}
		}
		return page, nil
	}

	return n.stripNoise(body)
}

// stripNoise is the fallback for pages readability cannot score.
func (n *Normalizer) stripNoise(body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	// <main> is the most semantically correct, then <article>, then <body>.
	var content *goquery.Selection
	for _, tag := range []string{"main", "article", "body"} {
		sel := doc.Find(tag)
		if sel.Length() > 0 {
			content = sel.First()
			break
		}
	}
	if content == nil {
		return nil, ErrNoText
	}

	if n.format == FormatMarkdown {
		fragment, err := goquery.OuterHtml(content)
		if err != nil {
			return nil, fmt.Errorf("serializing content: %w", err)
		}
		md, err := htmltomarkdown.ConvertString(fragment)
		if err != nil {
			return nil, fmt.Errorf("converting HTML to markdown: %w", err)
		}
		return &Page{Title: title, Text: md}, nil
	}

	return &Page{Title: title, Text: blockText(content)}, nil
}

// blockText joins the text of block elements with newlines so paragraphs
// do not run together.
func blockText(sel *goquery.Selection) string {
	sel.Find("p, div, li, h1, h2, h3, h4, h5, h6, pre, tr, br, section").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	return sel.Text()
}

func isPlainText(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/plain" || mediaType == "text/markdown" || mediaType == "text/x-markdown"
}

// CleanLines trims every line and drops the empty ones.
func CleanLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// Truncate cuts text to at most maxChars runes. maxChars <= 0 means no limit.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	count := 0
	for i := range text {
		if count == maxChars {
			return text[:i]
		}
		count++
	}
	return text
}
