// Package headings lists the in-page anchors of a document.
//
// Only levels 2 through 4 are navigable: level 1 titles a section and is
// consumed by the section splitter, and anything deeper than 4 is not
// offered as an anchor.
package headings

import (
	"regexp"
	"strings"

	"github.com/dgallion1/docbridge/internal/doctree"
	"github.com/dgallion1/docbridge/internal/serialize"
	"github.com/dgallion1/docbridge/internal/slug"
)

const (
	MinLevel = 2
	MaxLevel = 4
)

var headingLine = regexp.MustCompile(`^(#{2,4})\s+(.+)$`)

// Extract scans Markdown line by line and returns its level 2-4 headings in
// source order with slugs unique within this call.
func Extract(markdown string) []doctree.Heading {
	out := []doctree.Heading{}
	for _, l := range Locate(markdown) {
		out = append(out, l.Heading)
	}
	return out
}

// Located is an extracted heading with the byte offset of the line it was
// found on.
type Located struct {
	doctree.Heading
	Offset int
}

// Locate is Extract with line offsets, for renderers that need to attach the
// same anchors to their own heading nodes.
func Locate(markdown string) []Located {
	var out []Located
	if markdown == "" {
		return out
	}
	counter := slug.NewCounter()
	offset := 0
	for _, line := range strings.Split(markdown, "\n") {
		if h, ok := match(line, counter); ok {
			out = append(out, Located{Heading: h, Offset: offset})
		}
		offset += len(line) + 1
	}
	return out
}

func match(line string, counter *slug.Counter) (doctree.Heading, bool) {
	m := headingLine.FindStringSubmatch(line)
	if m == nil {
		return doctree.Heading{}, false
	}
	text := CleanText(m[2])
	return doctree.Heading{
		Text:  text,
		Level: len(m[1]),
		Slug:  counter.Next(text),
	}, true
}

// CleanText strips bold markers and backticks from raw heading text.
func CleanText(raw string) string {
	s := strings.ReplaceAll(raw, "**", "")
	s = strings.ReplaceAll(s, "`", "")
	return strings.TrimSpace(s)
}

// FromTree returns the anchors the tree viewer shows for root. It matches
// each heading's serialized line with the same rule as Extract, so a tree and
// its Markdown always agree on anchors. Headings nested in lists, quotes and
// tables do not start a Markdown line and are skipped.
func FromTree(root *doctree.Node) []doctree.Heading {
	out := []doctree.Heading{}
	counter := slug.NewCounter()
	doctree.Walk(root, func(n *doctree.Node) bool {
		switch n.Kind {
		case doctree.KindHeading:
			if n.Level < MinLevel || n.Level > MaxLevel {
				return false
			}
			line, _, _ := strings.Cut(serialize.Inline(n), "\n")
			if h, ok := match(strings.Repeat("#", n.Level)+" "+line, counter); ok {
				out = append(out, h)
			}
			return false
		case doctree.KindBulletList, doctree.KindOrderedList, doctree.KindBlockquote,
			doctree.KindTable, doctree.KindCodeBlock, doctree.KindText:
			return false
		}
		return true
	})
	return out
}
