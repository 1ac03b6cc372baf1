package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/docbridge/internal/doctree"
	"github.com/dgallion1/docbridge/internal/textlines"
)

const (
	// headingRatio is how much larger than body text a line must be to be
	// read as a heading.
	headingRatio = 1.2
	// headingMaxLen keeps long large-print paragraphs from becoming headings.
	headingMaxLen = 120
	// paragraphGap, in multiples of font size, separates paragraphs.
	paragraphGap = 1.8
)

// PDFParser reads positioned text from each page with ledongthuc/pdf and
// rebuilds lines with the textlines package. Lines set in a clearly larger
// font than the body become headings. With FallbackPdftotext set, pdftotext
// is tried when the Go reader fails or finds no text.
type PDFParser struct {
	Lines             textlines.Options
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	doc := &doctree.Document{Title: titleFromFilename(filename)}

	frags, err := pdfFragments(data)
	if err == nil && len(frags) > 0 {
		doc.Root = pdfTree(textlines.ReconstructLines(frags, p.Lines))
		return doc, nil
	}
	if !p.FallbackPdftotext {
		if err != nil {
			return nil, fmt.Errorf("extract pdf text: %w", err)
		}
		doc.Root = doctree.Doc()
		return doc, nil
	}

	text, ferr := pdftotext(data)
	if ferr != nil {
		if err != nil {
			return nil, fmt.Errorf("extract pdf text: %w (fallback: %v)", err, ferr)
		}
		return nil, fmt.Errorf("extract pdf text: %w", ferr)
	}
	doc.Root = plainTextTree(text)
	return doc, nil
}

// pdfFragments collects the text runs of every page. The pdf reader panics on
// some malformed streams, so panics are turned into errors.
func pdfFragments(data []byte) (frags []textlines.Fragment, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			frags, err = nil, fmt.Errorf("read pdf content: %v", rec)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, t := range page.Content().Text {
			frags = append(frags, textlines.Fragment{
				Text:     t.S,
				FontSize: t.FontSize,
				Y:        t.Y,
				Page:     i,
			})
		}
	}
	return frags, nil
}

// pdfTree turns reconstructed lines into headings and paragraphs.
func pdfTree(lines []textlines.Line) *doctree.Node {
	body := bodyFontSize(lines)
	levels := headingLevels(lines, body)

	root := doctree.Doc()
	var para []string
	flush := func() {
		if len(para) > 0 {
			root.Children = append(root.Children, doctree.Paragraph(doctree.TextRun(strings.Join(para, " "))))
			para = nil
		}
	}

	for i, l := range lines {
		if level, ok := levels[l.FontSize]; ok && len(l.Text) <= headingMaxLen {
			flush()
			root.Children = append(root.Children, doctree.HeadingNode(level, doctree.TextRun(l.Text)))
			continue
		}
		if i > 0 {
			prev := lines[i-1]
			gap := prev.Y - l.Y
			if gap < 0 {
				gap = -gap
			}
			if prev.Page != l.Page || gap > paragraphGap*l.FontSize {
				flush()
			}
		}
		para = append(para, l.Text)
	}
	flush()
	return root
}

// bodyFontSize is the font size carrying the most characters.
func bodyFontSize(lines []textlines.Line) float64 {
	weight := make(map[float64]int)
	for _, l := range lines {
		weight[l.FontSize] += len(l.Text)
	}
	var body float64
	best := -1
	for size, w := range weight {
		if w > best || (w == best && size < body) {
			body, best = size, w
		}
	}
	return body
}

// headingLevels ranks the font sizes larger than body, largest first, as
// heading levels 1 through 6.
func headingLevels(lines []textlines.Line, body float64) map[float64]int {
	seen := make(map[float64]bool)
	var sizes []float64
	for _, l := range lines {
		if body > 0 && l.FontSize >= body*headingRatio && !seen[l.FontSize] {
			seen[l.FontSize] = true
			sizes = append(sizes, l.FontSize)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sizes)))
	levels := make(map[float64]int, len(sizes))
	for i, s := range sizes {
		levels[s] = min(i+1, 6)
	}
	return levels
}

// plainTextTree splits pdftotext output into paragraphs at blank lines and
// form feeds.
func plainTextTree(text string) *doctree.Node {
	root := doctree.Doc()
	for _, page := range strings.Split(text, "\f") {
		for _, block := range strings.Split(strings.ReplaceAll(page, "\r\n", "\n"), "\n\n") {
			var lines []string
			for _, l := range strings.Split(block, "\n") {
				if l = strings.TrimSpace(l); l != "" {
					lines = append(lines, l)
				}
			}
			if len(lines) > 0 {
				root.Children = append(root.Children, doctree.Paragraph(doctree.TextRun(strings.Join(lines, " "))))
			}
		}
	}
	return root
}

func pdftotext(data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "docbridge-pdf-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	out, err := exec.Command("pdftotext", "-layout", tmp.Name(), "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}
