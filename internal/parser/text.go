package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docbridge/internal/doctree"
)

// TextParser handles plain text (and pasted text). Blank lines separate
// paragraphs; line breaks inside a paragraph are kept.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	root := doctree.Doc()
	var current []string
	flush := func() {
		if len(current) == 0 {
			return
		}
		root.Children = append(root.Children, doctree.Paragraph(doctree.TextRun(strings.Join(current, "\n"))))
		current = current[:0]
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return &doctree.Document{Title: titleFromFilename(filename), Root: root}, nil
}
