// Package render turns stored Markdown into HTML for the section viewer.
package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/dgallion1/docbridge/internal/headings"
)

var engine = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(
		parser.WithASTTransformers(util.Prioritized(anchors{}, 100)),
	),
)

// HTML renders markdown with GFM tables. Level 2-4 headings get the id that
// headings.Extract assigns to the same line, so anchors built from either
// agree.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := engine.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// anchors sets heading ids from the extractor's line scan. Headings the
// extractor does not see (quoted, setext, level 1 or 5+) get no id.
type anchors struct{}

func (anchors) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	src := reader.Source()
	slugs := make(map[int]string)
	for _, l := range headings.Locate(string(src)) {
		slugs[l.Offset] = l.Slug
	}
	if len(slugs) == 0 {
		return
	}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if h.Lines().Len() > 0 {
			start := h.Lines().At(0).Start
			lineStart := bytes.LastIndexByte(src[:start], '\n') + 1
			if s, ok := slugs[lineStart]; ok {
				h.SetAttributeString("id", []byte(s))
			}
		}
		return ast.WalkSkipChildren, nil
	})
}
