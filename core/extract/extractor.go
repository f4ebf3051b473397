// Package extract implements the DeckExtractor interface.
// It pulls plain text out of slide decks:
//  1. PDF decks, page by page
//  2. PPTX decks, slide by slide, with speaker notes appended at the end
//
// Images are detected but never returned; only text reaches the model.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gaurav-prasanna/deckpipe/core"
)

// DeckExtractor dispatches on the declared deck kind.
type DeckExtractor struct{}

// New creates a DeckExtractor.
func New() *DeckExtractor {
	return &DeckExtractor{}
}

// ParseKind maps a file name onto a supported deck kind.
func ParseKind(filename string) (core.DeckKind, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "pdf":
		return core.KindPDF, nil
	case "pptx":
		return core.KindPPTX, nil
	default:
		return "", &core.ValidationError{
			Field: "deck",
			Msg:   "Invalid file type. Only PDF and PPTX files are supported.",
		}
	}
}

// Extract reads the deck at path. Unreadable or corrupt files fail with a
// *core.ExtractionError; a readable deck without text yields empty Text.
func (e *DeckExtractor) Extract(path string, kind core.DeckKind) (*core.DeckContent, error) {
	switch kind {
	case core.KindPDF:
		return extractPDF(path)
	case core.KindPPTX:
		return extractPPTX(path)
	default:
		return nil, &core.ExtractionError{
			Source: filepath.Base(path),
			Reason: fmt.Sprintf("unsupported file type %q", kind),
		}
	}
}
