package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gaurav-prasanna/deckpipe/core"
	"github.com/ledongthuc/pdf"
)

// extractPDF returns the text of every page that has any, framed by page markers.
func extractPDF(path string) (content *core.DeckContent, err error) {
	source := filepath.Base(path)

	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			content = nil
			err = &core.ExtractionError{Source: source, Reason: "corrupt PDF", Err: fmt.Errorf("%v", r)}
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return nil, &core.ExtractionError{Source: source, Reason: "password-protected PDF", Err: err}
		}
		return nil, &core.ExtractionError{Source: source, Reason: "unreadable PDF", Err: err}
	}
	defer f.Close()

	pages := r.NumPage()
	content = &core.DeckContent{Kind: core.KindPDF, Pages: pages}

	var blocks []string
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, &core.ExtractionError{Source: source, Reason: fmt.Sprintf("reading page %d", i), Err: err}
		}
		if strings.TrimSpace(text) != "" {
			blocks = append(blocks, fmt.Sprintf("--- Page %d ---\n%s", i, strings.TrimSpace(text)))
		}

		if hasImageXObject(page) {
			content.HasImages = true
		}
	}

	content.Text = strings.Join(blocks, "\n\n")
	return content, nil
}

// hasImageXObject reports whether the page references any image XObject.
func hasImageXObject(page pdf.Page) bool {
	xobjects := page.Resources().Key("XObject")
	for _, name := range xobjects.Keys() {
		if xobjects.Key(name).Key("Subtype").Name() == "Image" {
			return true
		}
	}
	return false
}
