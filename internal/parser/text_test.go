package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/docbridge/internal/doctree"
)

func TestTextParser_BasicParagraphSplitting(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", doc.Title)
	}
	if len(doc.Root.Children) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d", len(doc.Root.Children))
	}

	want := []string{
		"First paragraph line one.\nFirst paragraph line two.",
		"Second paragraph.",
		"Third paragraph.",
	}
	for i, w := range want {
		p := doc.Root.Children[i]
		if p.Kind != doctree.KindParagraph {
			t.Errorf("child[%d]: expected paragraph, got %s", i, p.Kind)
		}
		if got := doctree.PlainText(p); got != w {
			t.Errorf("child[%d]: expected %q, got %q", i, w, got)
		}
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "empty" {
		t.Errorf("expected title %q, got %q", "empty", doc.Title)
	}
	if len(doc.Root.Children) != 0 {
		t.Errorf("expected 0 children for empty input, got %d", len(doc.Root.Children))
	}
}

func TestTextParser_WhitespaceOnlyLinesSeparate(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader("one\n   \n\t\n\n\ntwo\r\n"), "ws.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Root.Children) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(doc.Root.Children))
	}
	if got := doctree.PlainText(doc.Root.Children[1]); got != "two" {
		t.Errorf("expected %q, got %q", "two", got)
	}
}

func TestForFile(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"a.txt", "*parser.TextParser"},
		{"a.MD", "*parser.MarkdownParser"},
		{"a.markdown", "*parser.MarkdownParser"},
		{"a.csv", "*parser.CSVParser"},
		{"a.htm", "*parser.HTMLParser"},
		{"a.pdf", "*parser.PDFParser"},
		{"a.docx", "*parser.DOCXParser"},
	}
	for _, tt := range tests {
		p, err := ForFile(tt.name, Options{})
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
			continue
		}
		if got := typeName(p); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
		if !IsSupportedExtension(tt.name) {
			t.Errorf("%s: expected extension to be supported", tt.name)
		}
	}

	if _, err := ForFile("image.png", Options{}); err == nil || !strings.Contains(err.Error(), ".png") {
		t.Errorf("expected unsupported error naming the extension, got %v", err)
	}
}

func TestForFile_PassesOptions(t *testing.T) {
	p, err := ForFile("scan.pdf", Options{LineGap: 0.8, PDFFallbackPdftotext: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pdf := p.(*PDFParser)
	if pdf.Lines.LineGap != 0.8 || !pdf.FallbackPdftotext {
		t.Errorf("options not applied: %+v", pdf)
	}

	h, _ := ForFile("page.html", Options{Readability: true})
	if !h.(*HTMLParser).Readability {
		t.Error("expected readability to be enabled")
	}
}

func TestTitleFromFilename(t *testing.T) {
	tests := map[string]string{
		"notes.txt":          "notes",
		"dir/sub/report.pdf": "report",
		"archive.tar.gz":     "archive.tar",
		"":                   "",
	}
	for in, want := range tests {
		if got := titleFromFilename(in); got != want {
			t.Errorf("titleFromFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func typeName(p Parser) string {
	switch p.(type) {
	case *TextParser:
		return "*parser.TextParser"
	case *MarkdownParser:
		return "*parser.MarkdownParser"
	case *CSVParser:
		return "*parser.CSVParser"
	case *HTMLParser:
		return "*parser.HTMLParser"
	case *PDFParser:
		return "*parser.PDFParser"
	case *DOCXParser:
		return "*parser.DOCXParser"
	}
	return "unknown"
}
