package fetch

import (
	"net/url"
	"path"
	"strings"

	"github.com/gaurav-prasanna/deckpipe/core"
	"mvdan.cc/xurls/v2"
)

// deckExtensions are the URL path suffixes accepted for deck downloads.
var deckExtensions = map[string]core.DeckKind{
	".pdf":  core.KindPDF,
	".pptx": core.KindPPTX,
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(field, rawURL string) error {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return &core.ValidationError{Field: field, Msg: "Invalid URL in " + field + ": " + rawURL}
	}
	return nil
}

// NormalizeURL strips fragments and trailing slashes for deduplication.
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}

	parsed.Fragment = ""
	parsed.Host = strings.ToLower(parsed.Host)

	// Keep root "/".
	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}

	return parsed.String()
}

// ParseURLList splits a textarea with one URL per line. A line holding
// http(s) URLs among other text yields those URLs; any other non-empty line
// is kept as typed so the fetcher can report it as failed. Order is preserved.
func ParseURLList(text string) []string {
	rx := xurls.Strict()

	var urls []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var found []string
		for _, u := range rx.FindAllString(line, -1) {
			if ValidateURL("resource_urls", u) == nil {
				found = append(found, u)
			}
		}
		if len(found) == 0 {
			urls = append(urls, line)
			continue
		}
		urls = append(urls, found...)
	}
	return urls
}

// DeckKindFromURL reports the deck kind implied by the URL path suffix.
func DeckKindFromURL(rawURL string) (core.DeckKind, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	kind, ok := deckExtensions[strings.ToLower(path.Ext(parsed.Path))]
	return kind, ok
}
