package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gaurav-prasanna/deckpipe/core"
	"github.com/jung-kurt/gofpdf"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	bodyFont     = "Helvetica"
	codeFont     = "Courier"
	bodySize     = 10
	lineHeight   = 5
	listIndent   = 6
	pageMargin   = 15
	quoteIndent  = 8
	maxListDepth = 6
)

// headingSizes maps heading levels to font sizes.
var headingSizes = map[atom.Atom]float64{
	atom.H1: 18, atom.H2: 15, atom.H3: 13, atom.H4: 12, atom.H5: 11, atom.H6: 10,
}

// PDFRenderer lays Markdown out as a PDF. The Markdown is converted to HTML
// first and the HTML tree is walked block by block.
// Images are never rendered.
type PDFRenderer struct {
	html     *HTMLRenderer
	compress bool
}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{html: NewHTMLRenderer(), compress: true}
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

// Render converts Markdown into PDF bytes. Any failure, including a panic
// inside the layout library, is returned as a *core.RenderError.
func (r *PDFRenderer) Render(markdown []byte) (out []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			out = nil
			err = &core.RenderError{Format: "pdf", Err: fmt.Errorf("layout panic: %v", p)}
		}
	}()

	fragment, err := r.html.Render(markdown)
	if err != nil {
		return nil, err
	}
	root, err := html.Parse(bytes.NewReader(fragment))
	if err != nil {
		return nil, &core.RenderError{Format: "pdf", Err: fmt.Errorf("parsing HTML: %w", err)}
	}
	doc := goquery.NewDocumentFromNode(root)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont(bodyFont, "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})
	pdf.AddPage()

	w := &pdfWriter{pdf: pdf, enc: pdf.UnicodeTranslatorFromDescriptor("")}
	doc.Find("body").Each(func(_ int, body *goquery.Selection) {
		for _, n := range body.Nodes {
			w.blocks(n, 0)
		}
	})
	w.lossNote()

	if pdf.Err() {
		return nil, &core.RenderError{Format: "pdf", Err: pdf.Error()}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &core.RenderError{Format: "pdf", Err: err}
	}
	return buf.Bytes(), nil
}

// pdfWriter holds layout state while walking the HTML tree.
type pdfWriter struct {
	pdf  *gofpdf.Fpdf
	enc  func(string) string
	lost int
}

// tr encodes text for the core fonts and counts runes it had to replace.
func (w *pdfWriter) tr(s string) string {
	folded, lost := foldCP1252(s)
	w.lost += lost
	return w.enc(folded)
}

// measure encodes text like tr without counting, for layout passes.
func (w *pdfWriter) measure(s string) string {
	folded, _ := foldCP1252(s)
	return w.enc(folded)
}

// lossNote closes the document with a visible note when some characters
// could not be drawn.
func (w *pdfWriter) lossNote() {
	if w.lost == 0 {
		return
	}
	noun := "characters"
	if w.lost == 1 {
		noun = "character"
	}
	w.pdf.Ln(lineHeight)
	w.setFont("I", 9)
	w.pdf.SetTextColor(128, 128, 128)
	w.pdf.MultiCell(0, lineHeight, fmt.Sprintf(
		"%d %s could not be shown in this PDF and appear as '?'. The Markdown version has the full text.",
		w.lost, noun), "", "L", false)
	w.pdf.SetTextColor(0, 0, 0)
}

func (w *pdfWriter) blocks(parent *html.Node, depth int) {
	for n := parent.FirstChild; n != nil; n = n.NextSibling {
		w.block(n, depth)
	}
}

func (w *pdfWriter) block(n *html.Node, depth int) {
	switch n.Type {
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			w.setFont("", bodySize)
			w.pdf.Write(lineHeight, w.tr(collapseSpace(n.Data)))
			w.pdf.Ln(lineHeight)
		}
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		size := headingSizes[n.DataAtom]
		w.pdf.Ln(4)
		w.setFont("B", size)
		w.pdf.MultiCell(0, size*0.6, w.tr(collapseSpace(textOf(n))), "", "L", false)
		w.pdf.Ln(2)
	case atom.P:
		w.inlines(n, "", bodySize)
		w.pdf.Ln(lineHeight + 1)
	case atom.Ul, atom.Ol:
		w.list(n, depth)
		w.pdf.Ln(1)
	case atom.Pre:
		w.code(textOf(n))
	case atom.Blockquote:
		left, _, _, _ := w.pdf.GetMargins()
		w.pdf.SetLeftMargin(left + quoteIndent)
		w.pdf.SetX(left + quoteIndent)
		w.pdf.SetTextColor(90, 90, 90)
		w.blocks(n, depth)
		w.pdf.SetTextColor(0, 0, 0)
		w.pdf.SetLeftMargin(left)
		w.pdf.SetX(left)
	case atom.Table:
		w.table(n)
	case atom.Hr:
		w.rule()
	case atom.Img, atom.Script, atom.Style:
	default:
		w.blocks(n, depth)
	}
}

// inlines writes flowing text, switching style for emphasis and code spans.
func (w *pdfWriter) inlines(n *html.Node, style string, size float64) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			w.setFont(style, size)
			w.pdf.Write(lineHeight, w.tr(collapseSpace(c.Data)))
		case html.ElementNode:
			switch c.DataAtom {
			case atom.Strong, atom.B:
				w.inlines(c, addStyle(style, "B"), size)
			case atom.Em, atom.I:
				w.inlines(c, addStyle(style, "I"), size)
			case atom.Code:
				w.pdf.SetFont(codeFont, "", size-1)
				w.pdf.Write(lineHeight, w.tr(textOf(c)))
			case atom.Br:
				w.pdf.Ln(lineHeight)
			case atom.A:
				w.setFont(addStyle(style, "U"), size)
				w.pdf.SetTextColor(30, 80, 160)
				w.pdf.WriteLinkString(lineHeight, w.tr(collapseSpace(textOf(c))), attr(c, "href"))
				w.pdf.SetTextColor(0, 0, 0)
			case atom.Img:
			case atom.Ul, atom.Ol, atom.P, atom.Pre, atom.Table, atom.Blockquote:
				// Block content nested in an inline context, such as loose list items.
				w.pdf.Ln(lineHeight)
				w.block(c, 0)
			default:
				w.inlines(c, style, size)
			}
		}
	}
}

func (w *pdfWriter) list(n *html.Node, depth int) {
	if depth >= maxListDepth {
		depth = maxListDepth - 1
	}
	ordered := n.DataAtom == atom.Ol
	left, _, _, _ := w.pdf.GetMargins()
	indent := left + listIndent

	index := 0
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}
		index++

		marker := "\x95 "
		if ordered {
			marker = fmt.Sprintf("%d. ", index)
		}

		w.pdf.SetLeftMargin(indent)
		w.pdf.SetX(indent)
		w.setFont("", bodySize)
		w.pdf.Write(lineHeight, marker)
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.DataAtom == atom.Ul || c.DataAtom == atom.Ol) {
				w.pdf.Ln(lineHeight)
				w.list(c, depth+1)
				continue
			}
			if c.Type == html.ElementNode && c.DataAtom == atom.P {
				w.inlines(c, "", bodySize)
				continue
			}
			w.inlineNode(c)
		}
		w.pdf.Ln(lineHeight)
		w.pdf.SetLeftMargin(left)
		w.pdf.SetX(left)
	}
}

// inlineNode writes a single inline child by wrapping it in a temporary parent.
func (w *pdfWriter) inlineNode(c *html.Node) {
	wrapper := &html.Node{Type: html.ElementNode, Data: "span", DataAtom: atom.Span}
	clone := *c
	clone.Parent, clone.PrevSibling, clone.NextSibling = nil, nil, nil
	wrapper.FirstChild, wrapper.LastChild = &clone, &clone
	w.inlines(wrapper, "", bodySize)
}

func (w *pdfWriter) code(text string) {
	w.pdf.Ln(2)
	w.pdf.SetFont(codeFont, "", 9)
	w.pdf.SetFillColor(245, 245, 245)
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		w.pdf.MultiCell(0, 4.5, w.tr(strings.ReplaceAll(line, "\t", "    ")), "", "L", true)
	}
	w.pdf.Ln(3)
}

func (w *pdfWriter) table(n *html.Node) {
	var rows [][]string
	var header []bool
	goquery.NewDocumentFromNode(n).Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, collapseSpace(cell.Text()))
		})
		rows = append(rows, cells)
		header = append(header, tr.Find("th").Length() > 0)
	})

	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	if cols == 0 {
		return
	}

	pageW, _ := w.pdf.GetPageSize()
	left, _, right, _ := w.pdf.GetMargins()
	colW := (pageW - left - right) / float64(cols)

	w.pdf.Ln(2)
	for i, r := range rows {
		style := ""
		if header[i] {
			style = "B"
		}
		w.setFont(style, 9)

		// Row height follows the tallest wrapped cell.
		lines := 1
		for _, cell := range r {
			lines = max(lines, len(w.pdf.SplitText(w.measure(cell), colW-2)))
		}
		rowH := float64(lines) * 4.5

		if w.pdf.GetY()+rowH > w.pageBottom() {
			w.pdf.AddPage()
		}
		x, y := w.pdf.GetXY()
		for c := 0; c < cols; c++ {
			text := ""
			if c < len(r) {
				text = r[c]
			}
			w.pdf.Rect(x+float64(c)*colW, y, colW, rowH, "D")
			w.pdf.SetXY(x+float64(c)*colW+1, y)
			w.pdf.MultiCell(colW-2, 4.5, w.tr(text), "", "L", false)
		}
		w.pdf.SetXY(x, y+rowH)
	}
	w.pdf.Ln(3)
}

func (w *pdfWriter) rule() {
	left, _, right, _ := w.pdf.GetMargins()
	pageW, _ := w.pdf.GetPageSize()
	w.pdf.Ln(2)
	y := w.pdf.GetY()
	w.pdf.SetDrawColor(180, 180, 180)
	w.pdf.Line(left, y, pageW-right, y)
	w.pdf.SetDrawColor(0, 0, 0)
	w.pdf.Ln(4)
}

func (w *pdfWriter) pageBottom() float64 {
	_, pageH := w.pdf.GetPageSize()
	return pageH - pageMargin
}

func (w *pdfWriter) setFont(style string, size float64) {
	w.pdf.SetFont(bodyFont, style, size)
}

func addStyle(style, add string) string {
	if strings.Contains(style, add) {
		return style
	}
	return style + add
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// collapseSpace folds runs of whitespace into one space, keeping a single
// leading or trailing space so adjacent inline runs stay separated.
func collapseSpace(s string) string {
	if s == "" {
		return s
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return " "
	}
	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}
