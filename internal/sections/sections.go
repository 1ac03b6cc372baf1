// Package sections partitions Markdown into titled sections, the unit of
// storage and editing.
package sections

import (
	"regexp"
	"strings"

	"github.com/dgallion1/docbridge/internal/doctree"
)

// DefaultTitle names the single section produced when a document has no
// level-1 or level-2 headings.
const DefaultTitle = "Playbook"

var splitMarkers = []*regexp.Regexp{
	regexp.MustCompile(`^# (.+)$`),
	regexp.MustCompile(`^## (.+)$`),
}

// Split partitions markdown at level-1 headings, or at level-2 headings when
// there is no level-1 heading. Text before the first split heading is
// dropped. Deeper headings stay inside their section's content. Without
// either level the whole input becomes one section titled fallbackTitle
// (DefaultTitle when empty).
func Split(markdown, fallbackTitle string) []doctree.Section {
	if fallbackTitle == "" {
		fallbackTitle = DefaultTitle
	}
	lines := strings.Split(markdown, "\n")
	for _, marker := range splitMarkers {
		if out := splitAt(lines, marker); len(out) > 0 {
			return out
		}
	}
	return []doctree.Section{{
		Title:   fallbackTitle,
		Content: strings.TrimSpace(markdown),
	}}
}

func splitAt(lines []string, marker *regexp.Regexp) []doctree.Section {
	var out []doctree.Section
	var body []string
	open := false

	flush := func() {
		if open {
			out[len(out)-1].Content = strings.TrimSpace(strings.Join(body, "\n"))
		}
		body = body[:0]
	}

	for _, line := range lines {
		m := marker.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			if open {
				body = append(body, line)
			}
			continue
		}
		flush()
		out = append(out, doctree.Section{Title: strings.TrimSpace(m[1])})
		open = true
	}
	flush()
	return out
}
