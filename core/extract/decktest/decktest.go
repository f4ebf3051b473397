// Package decktest builds small but well-formed deck files for tests.
package decktest

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
)

// Slide describes one slide of a generated PPTX.
type Slide struct {
	Body  []string
	Notes string
}

const (
	presentationTpl = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:sldIdLst>%s</p:sldIdLst></p:presentation>`

	slideTpl = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree>%s</p:spTree></p:cSld></p:sld>`

	notesTpl = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:notes xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree>` +
		`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Slide Number"/><p:cNvSpPr/><p:nvPr><p:ph type="sldNum"/></p:nvPr></p:nvSpPr><p:txBody><a:p><a:r><a:t>%d</a:t></a:r></a:p></p:txBody></p:sp>` +
		`<p:sp><p:nvSpPr><p:cNvPr id="3" name="Notes"/><p:cNvSpPr/><p:nvPr><p:ph type="body"/></p:nvPr></p:nvSpPr><p:txBody><a:p><a:r><a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>` +
		`</p:spTree></p:cSld></p:notes>`

	shapeTpl = `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="Text"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:txBody><a:p><a:r><a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>`

	relsTpl = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">%s</Relationships>`

	relTpl = `<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/%s" Target="%s"/>`
)

// WritePPTX writes a minimal PPTX with the given slides into dir.
// The presentation part lists slides in reverse file order so readers must
// honour the declared order rather than file names.
func WritePPTX(t testing.TB, dir, name string, slides []Slide) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	write := func(name, body string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating part %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("writing part %s: %v", name, err)
		}
	}

	var ids, presRels []string
	for i, s := range slides {
		// Slide i is stored as file slide(N-i).xml.
		fileNum := len(slides) - i
		relID := fmt.Sprintf("rId%d", i+1)
		ids = append(ids, fmt.Sprintf(`<p:sldId id="%d" r:id="%s"/>`, 256+i, relID))
		presRels = append(presRels, fmt.Sprintf(relTpl, relID, "slide", fmt.Sprintf("slides/slide%d.xml", fileNum)))

		var shapes strings.Builder
		for j, line := range s.Body {
			fmt.Fprintf(&shapes, shapeTpl, j+2, line)
		}
		write(fmt.Sprintf("ppt/slides/slide%d.xml", fileNum), fmt.Sprintf(slideTpl, shapes.String()))

		if s.Notes != "" {
			write(fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", fileNum), fmt.Sprintf(notesTpl, i+1, s.Notes))
			write(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", fileNum),
				fmt.Sprintf(relsTpl, fmt.Sprintf(relTpl, "rId1", "notesSlide", fmt.Sprintf("../notesSlides/notesSlide%d.xml", fileNum))))
		}
	}

	write("ppt/presentation.xml", fmt.Sprintf(presentationTpl, strings.Join(ids, "")))
	write("ppt/_rels/presentation.xml.rels", fmt.Sprintf(relsTpl, strings.Join(presRels, "")))

	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return path
}

// WritePDF writes an uncompressed PDF with one page per entry into dir.
func WritePDF(t testing.TB, dir, name string, pages []string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetCompression(false)
	for _, text := range pages {
		doc.AddPage()
		doc.SetFont("Helvetica", "", 12)
		doc.Cell(0, 10, text)
	}
	if err := doc.OutputFileAndClose(path); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// WriteGarbage writes bytes that are neither a PDF nor a zip archive.
func WriteGarbage(t testing.TB, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("this is not a deck at all\x00\x01\x02"), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}
