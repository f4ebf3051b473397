package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gaurav-prasanna/deckpipe/core"
)

const (
	nsDrawingML     = "http://schemas.openxmlformats.org/drawingml/2006/main"
	relTypeSlide    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	relTypeNotes    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide"
	maxPartBytes    = 32 << 20
	presentationXML = "ppt/presentation.xml"
)

// oleMagic starts every OLE compound file: encrypted OOXML and legacy .ppt.
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

var slideFileRegex = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// Placeholders that carry layout furniture rather than content.
var skippedPlaceholders = map[string]bool{
	"sldNum": true, "sldImg": true, "dt": true, "ftr": true, "hdr": true,
}

type presentationDoc struct {
	SlideIDs []struct {
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationshipsDoc struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Type   string `xml:"Type,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// extractPPTX returns slide text in presentation order followed by speaker notes.
func extractPPTX(filePath string) (*core.DeckContent, error) {
	source := filepath.Base(filePath)

	if isOLE(filePath) {
		return nil, &core.ExtractionError{Source: source, Reason: "password-protected or legacy format"}
	}

	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, &core.ExtractionError{Source: source, Reason: "unreadable PPTX", Err: err}
	}
	defer zr.Close()

	parts := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		parts[f.Name] = f
	}

	slides, err := slideOrder(parts)
	if err != nil {
		return nil, &core.ExtractionError{Source: source, Reason: "corrupt PPTX", Err: err}
	}
	if len(slides) == 0 {
		return nil, &core.ExtractionError{Source: source, Reason: "no slides found"}
	}

	content := &core.DeckContent{Kind: core.KindPPTX, Pages: len(slides)}
	var blocks, notes []string

	for i, slidePath := range slides {
		num := i + 1

		paragraphs, pictures, err := readPartText(parts, slidePath)
		if err != nil {
			return nil, &core.ExtractionError{Source: source, Reason: fmt.Sprintf("reading slide %d", num), Err: err}
		}
		if pictures {
			content.HasImages = true
		}
		if len(paragraphs) > 0 {
			blocks = append(blocks, fmt.Sprintf("--- Slide %d ---\n%s", num, strings.Join(paragraphs, "\n")))
		}

		notesPath, err := notesFor(parts, slidePath)
		if err != nil {
			return nil, &core.ExtractionError{Source: source, Reason: fmt.Sprintf("reading notes of slide %d", num), Err: err}
		}
		if notesPath == "" {
			continue
		}
		noteParagraphs, _, err := readPartText(parts, notesPath)
		if err != nil {
			return nil, &core.ExtractionError{Source: source, Reason: fmt.Sprintf("reading notes of slide %d", num), Err: err}
		}
		if len(noteParagraphs) > 0 {
			notes = append(notes, fmt.Sprintf("Notes for Slide %d: %s", num, strings.Join(noteParagraphs, "\n")))
		}
	}

	content.Text = strings.Join(blocks, "\n\n")
	if len(notes) > 0 {
		content.Notes = strings.Join(notes, "\n\n")
		if content.Text != "" {
			content.Text += "\n\n"
		}
		content.Text += "SPEAKER NOTES:\n\n" + content.Notes
	}
	return content, nil
}

func isOLE(filePath string) bool {
	f, err := os.Open(filePath)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, len(oleMagic))
	if _, err := io.ReadFull(f, head); err != nil {
		return false
	}
	return bytes.Equal(head, oleMagic)
}

// slideOrder lists slide part names in presentation order. Decks without a
// usable presentation part fall back to numeric file order.
func slideOrder(parts map[string]*zip.File) ([]string, error) {
	if _, ok := parts[presentationXML]; ok {
		var pres presentationDoc
		if err := decodePart(parts, presentationXML, &pres); err != nil {
			return nil, err
		}

		rels, err := relationships(parts, presentationXML)
		if err != nil {
			return nil, err
		}

		var ordered []string
		for _, id := range pres.SlideIDs {
			target, ok := rels[id.RelID]
			if !ok {
				continue
			}
			if _, exists := parts[target]; exists {
				ordered = append(ordered, target)
			}
		}
		if len(ordered) > 0 {
			return ordered, nil
		}
	}

	type numbered struct {
		name string
		num  int
	}
	var found []numbered
	for name := range parts {
		m := slideFileRegex.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		found = append(found, numbered{name: name, num: n})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].num < found[j].num })

	ordered := make([]string, 0, len(found))
	for _, f := range found {
		ordered = append(ordered, f.name)
	}
	return ordered, nil
}

// relationships maps relationship IDs of partName to resolved part names.
// Only slide and notes relationships are kept.
func relationships(parts map[string]*zip.File, partName string) (map[string]string, error) {
	dir, file := path.Split(partName)
	relsName := path.Join(dir, "_rels", file+".rels")
	if _, ok := parts[relsName]; !ok {
		return map[string]string{}, nil
	}

	var doc relationshipsDoc
	if err := decodePart(parts, relsName, &doc); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(doc.Relationships))
	for _, rel := range doc.Relationships {
		if rel.Type != relTypeSlide && rel.Type != relTypeNotes {
			continue
		}
		target := rel.Target
		if strings.HasPrefix(target, "/") {
			target = strings.TrimPrefix(target, "/")
		} else {
			target = path.Join(dir, target)
		}
		out[rel.ID] = target
	}
	return out, nil
}

// notesFor returns the notes part linked from slidePath, or "" if none.
func notesFor(parts map[string]*zip.File, slidePath string) (string, error) {
	dir, file := path.Split(slidePath)
	relsName := path.Join(dir, "_rels", file+".rels")
	if _, ok := parts[relsName]; !ok {
		return "", nil
	}

	var doc relationshipsDoc
	if err := decodePart(parts, relsName, &doc); err != nil {
		return "", err
	}
	for _, rel := range doc.Relationships {
		if rel.Type != relTypeNotes {
			continue
		}
		target := path.Join(dir, rel.Target)
		if _, ok := parts[target]; ok {
			return target, nil
		}
	}
	return "", nil
}

func decodePart(parts map[string]*zip.File, name string, v any) error {
	rc, err := openPart(parts, name)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := xml.NewDecoder(io.LimitReader(rc, maxPartBytes)).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

func openPart(parts map[string]*zip.File, name string) (io.ReadCloser, error) {
	f, ok := parts[name]
	if !ok {
		return nil, fmt.Errorf("missing part %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	return rc, nil
}

// readPartText walks a slide or notes part and returns its non-empty text
// paragraphs in document order. pictures reports any embedded picture shape.
func readPartText(parts map[string]*zip.File, name string) (paragraphs []string, pictures bool, err error) {
	rc, err := openPart(parts, name)
	if err != nil {
		return nil, false, err
	}
	defer rc.Close()

	dec := xml.NewDecoder(io.LimitReader(rc, maxPartBytes))

	var (
		current   strings.Builder
		inPara    bool
		inText    bool
		shapeSkip bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, false, fmt.Errorf("decoding %s: %w", name, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "sp":
				shapeSkip = false
			case t.Name.Local == "ph":
				for _, attr := range t.Attr {
					if attr.Name.Local == "type" && skippedPlaceholders[attr.Value] {
						shapeSkip = true
					}
				}
			case t.Name.Local == "pic":
				pictures = true
			case t.Name.Space == nsDrawingML && t.Name.Local == "p":
				inPara = true
				current.Reset()
			case t.Name.Space == nsDrawingML && t.Name.Local == "t":
				inText = true
			case t.Name.Space == nsDrawingML && t.Name.Local == "br" && inPara:
				current.WriteString("\n")
			}
		case xml.EndElement:
			switch {
			case t.Name.Local == "sp":
				shapeSkip = false
			case t.Name.Space == nsDrawingML && t.Name.Local == "t":
				inText = false
			case t.Name.Space == nsDrawingML && t.Name.Local == "p":
				inPara = false
				if text := strings.TrimSpace(current.String()); text != "" && !shapeSkip {
					paragraphs = append(paragraphs, text)
				}
			}
		case xml.CharData:
			if inText && inPara {
				current.Write(t)
			}
		}
	}

	return paragraphs, pictures, nil
}
