// Package serialize renders a document tree as Markdown.
//
// The output covers the subset of Markdown the editor produces: paragraphs,
// headings, one level of list nesting per item, fenced code, block quotes,
// pipe tables, rules and bold/italic/code/link marks. Node kinds the package
// does not know are passed through so new editor node types never fail a
// render.
package serialize

import (
	"strconv"
	"strings"

	"github.com/dgallion1/docbridge/internal/doctree"
)

// Markdown serializes root and its descendants. The result carries exactly one
// trailing newline; an empty tree yields "\n".
func Markdown(root *doctree.Node) string {
	var sb strings.Builder
	block(&sb, root)
	out := strings.TrimLeft(sb.String(), "\n")
	return strings.TrimRight(out, " \t\n") + "\n"
}

// Inline renders the inline content of n on a single logical line. Block
// children (for example the paragraphs inside a table cell) are joined with a
// space.
func Inline(n *doctree.Node) string {
	return inline(n, false)
}

func block(sb *strings.Builder, n *doctree.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case doctree.KindParagraph:
		sb.WriteString(Inline(n))
		sb.WriteString("\n\n")
	case doctree.KindHeading:
		sb.WriteString(strings.Repeat("#", clampLevel(n.Level)))
		sb.WriteString(" ")
		sb.WriteString(Inline(n))
		sb.WriteString("\n\n")
	case doctree.KindBulletList, doctree.KindOrderedList:
		sb.WriteString(list(n))
		sb.WriteString("\n\n")
	case doctree.KindCodeBlock:
		codeBlock(sb, n)
	case doctree.KindBlockquote:
		blockquote(sb, n)
	case doctree.KindTable:
		table(sb, n)
	case doctree.KindHorizontalRule:
		sb.WriteString("---\n\n")
	case doctree.KindText, doctree.KindHardBreak:
		sb.WriteString(Inline(n))
		sb.WriteString("\n\n")
	default:
		if len(n.Children) == 0 {
			if n.Text != "" {
				sb.WriteString(n.Text)
				sb.WriteString("\n\n")
			}
			return
		}
		blocks(sb, n.Children)
	}
}

// blocks renders a child sequence. Runs of loose inline nodes are gathered
// into one paragraph.
func blocks(sb *strings.Builder, children []*doctree.Node) {
	var run strings.Builder
	flush := func() {
		if run.Len() == 0 {
			return
		}
		sb.WriteString(run.String())
		sb.WriteString("\n\n")
		run.Reset()
	}
	for _, c := range children {
		if c == nil {
			continue
		}
		if isInline(c) {
			run.WriteString(inline(c, false))
			continue
		}
		flush()
		block(sb, c)
	}
	flush()
}

func isInline(n *doctree.Node) bool {
	switch n.Kind {
	case doctree.KindText, doctree.KindHardBreak:
		return true
	case doctree.KindUnknown:
		return len(n.Children) == 0
	}
	return false
}

func isBlock(n *doctree.Node) bool {
	return !isInline(n)
}

func clampLevel(level int) int {
	switch {
	case level < 1:
		return 1
	case level > 6:
		return 6
	}
	return level
}

func inline(n *doctree.Node, cell bool) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case doctree.KindText:
		return markText(n, cell)
	case doctree.KindHardBreak:
		if cell {
			return " "
		}
		return "\\\n"
	}
	if len(n.Children) == 0 {
		return n.Text
	}
	var sb strings.Builder
	for _, c := range n.Children {
		if c == nil {
			continue
		}
		s := inline(c, cell)
		if s == "" {
			continue
		}
		if isBlock(c) && sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(s)
	}
	return sb.String()
}

// markText wraps the text of n in each of its marks in declaration order, so
// the first mark ends up innermost.
func markText(n *doctree.Node, cell bool) string {
	s := n.Text
	if cell {
		s = strings.ReplaceAll(s, "\n", " ")
		s = strings.ReplaceAll(s, "|", `\|`)
	}
	if s == "" {
		return ""
	}
	for _, m := range n.Marks {
		switch m.Kind {
		case doctree.MarkBold:
			s = "**" + s + "**"
		case doctree.MarkItalic:
			s = "_" + s + "_"
		case doctree.MarkCode:
			s = "`" + s + "`"
		case doctree.MarkLink:
			s = "[" + s + "](" + m.Href + ")"
		}
	}
	return s
}

// list renders a bullet or ordered list without its trailing blank line.
func list(n *doctree.Node) string {
	var lines []string
	pos := 0
	for _, item := range n.Children {
		if item == nil {
			continue
		}
		pos++
		prefix := "- "
		if n.Kind == doctree.KindOrderedList {
			prefix = strconv.Itoa(pos) + ". "
		}
		pad := strings.Repeat(" ", len(prefix))
		for i, line := range strings.Split(listItem(item), "\n") {
			switch {
			case i == 0:
				lines = append(lines, strings.TrimRight(prefix+line, " "))
			case line == "":
				lines = append(lines, "")
			default:
				lines = append(lines, pad+line)
			}
		}
	}
	return strings.Join(lines, "\n")
}

// listItem renders the body of one item unindented. The caller places the
// first line after the marker and indents the rest under it.
func listItem(item *doctree.Node) string {
	if item.Kind != doctree.KindListItem {
		return strings.TrimRight(renderBlock(item), "\n")
	}
	var parts []string
	var prev *doctree.Node
	for _, c := range item.Children {
		if c == nil {
			continue
		}
		var s string
		switch c.Kind {
		case doctree.KindParagraph:
			s = Inline(c)
		case doctree.KindBulletList, doctree.KindOrderedList:
			s = list(c)
		default:
			s = strings.TrimRight(renderBlock(c), "\n")
		}
		if prev != nil {
			sep := "\n\n"
			if c.Kind == doctree.KindBulletList || c.Kind == doctree.KindOrderedList {
				sep = "\n"
			}
			parts = append(parts, sep)
		}
		parts = append(parts, s)
		prev = c
	}
	return strings.Join(parts, "")
}

func renderBlock(n *doctree.Node) string {
	var sb strings.Builder
	block(&sb, n)
	return sb.String()
}

func codeBlock(sb *strings.Builder, n *doctree.Node) {
	var code strings.Builder
	doctree.Walk(n, func(c *doctree.Node) bool {
		switch c.Kind {
		case doctree.KindText:
			code.WriteString(c.Text)
		case doctree.KindHardBreak:
			code.WriteString("\n")
		}
		return true
	})
	sb.WriteString("```")
	sb.WriteString(n.Language)
	sb.WriteString("\n")
	if body := strings.TrimSuffix(code.String(), "\n"); body != "" {
		sb.WriteString(body)
		sb.WriteString("\n")
	}
	sb.WriteString("```\n\n")
}

func blockquote(sb *strings.Builder, n *doctree.Node) {
	var inner strings.Builder
	blocks(&inner, n.Children)
	body := strings.TrimRight(inner.String(), "\n")
	if body == "" {
		sb.WriteString(">\n\n")
		return
	}
	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			sb.WriteString(">\n")
			continue
		}
		sb.WriteString("> ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

// table always emits a well-formed pipe table: a header row, one separator
// row, then the body. Without a header-typed first row the header is blank.
// Rows are padded to the widest row.
func table(sb *strings.Builder, n *doctree.Node) {
	var rows [][]string
	header := false
	for _, r := range n.Children {
		if r == nil {
			continue
		}
		if len(rows) == 0 {
			header = isHeaderRow(r)
		}
		rows = append(rows, rowCells(r))
	}
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	if cols == 0 {
		return
	}

	var head []string
	body := rows
	if header {
		head, body = rows[0], rows[1:]
	}
	writeRow(sb, head, cols)
	sb.WriteString("|" + strings.Repeat("---|", cols) + "\n")
	for _, r := range body {
		writeRow(sb, r, cols)
	}
	sb.WriteString("\n")
}

func isHeaderRow(r *doctree.Node) bool {
	if r.Kind != doctree.KindTableRow {
		return false
	}
	seen := false
	for _, c := range r.Children {
		if c == nil {
			continue
		}
		if c.Kind != doctree.KindTableHeader {
			return false
		}
		seen = true
	}
	return seen
}

// rowCells flattens a row to its cell texts. A child that is not a row is
// treated as a row holding a single cell.
func rowCells(r *doctree.Node) []string {
	if r.Kind != doctree.KindTableRow {
		return []string{strings.TrimSpace(inline(r, true))}
	}
	var cells []string
	for _, c := range r.Children {
		if c == nil {
			continue
		}
		cells = append(cells, strings.TrimSpace(inline(c, true)))
	}
	return cells
}

func writeRow(sb *strings.Builder, cells []string, cols int) {
	sb.WriteString("|")
	for i := 0; i < cols; i++ {
		cell := " "
		if i < len(cells) && cells[i] != "" {
			cell = " " + cells[i] + " "
		}
		sb.WriteString(cell)
		sb.WriteString("|")
	}
	sb.WriteString("\n")
}
