package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/docbridge/internal/doctree"
)

var markdownEngine = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))

// MarkdownParser converts Markdown into an editor tree using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return &doctree.Document{
		Title: titleFromFilename(filename),
		Root:  FromMarkdown(src),
	}, nil
}

// FromMarkdown parses src and converts the goldmark AST into a tree.
func FromMarkdown(src []byte) *doctree.Node {
	doc := markdownEngine.Parser().Parse(text.NewReader(src))
	c := mdConverter{src: src}
	return doctree.Doc(c.blocks(doc)...)
}

type mdConverter struct {
	src []byte
}

func (c mdConverter) blocks(parent ast.Node) []*doctree.Node {
	var out []*doctree.Node
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if b := c.block(n); b != nil {
			out = append(out, b)
		}
	}
	return out
}

func (c mdConverter) block(n ast.Node) *doctree.Node {
	switch node := n.(type) {
	case *ast.Heading:
		return doctree.HeadingNode(node.Level, c.inlines(node, nil)...)
	case *ast.Paragraph, *ast.TextBlock:
		return doctree.Paragraph(c.inlines(node, nil)...)
	case *ast.List:
		items := c.blocks(node)
		if node.IsOrdered() {
			l := doctree.OrderedList(items...)
			l.Start = node.Start
			return l
		}
		return doctree.BulletList(items...)
	case *ast.ListItem:
		return doctree.ListItem(c.blocks(node)...)
	case *ast.FencedCodeBlock:
		return doctree.CodeBlock(string(node.Language(c.src)), c.lines(node))
	case *ast.CodeBlock:
		return doctree.CodeBlock("", c.lines(node))
	case *ast.Blockquote:
		return doctree.Blockquote(c.blocks(node)...)
	case *ast.ThematicBreak:
		return doctree.HorizontalRule()
	case *ast.HTMLBlock:
		raw := strings.TrimSpace(c.lines(node))
		if raw == "" {
			return nil
		}
		return doctree.Paragraph(doctree.TextRun(raw))
	case *east.Table:
		return c.table(node)
	}
	if n.HasChildren() {
		return &doctree.Node{Type: n.Kind().String(), Children: c.blocks(n)}
	}
	return nil
}

func (c mdConverter) table(t *east.Table) *doctree.Node {
	table := doctree.Table()
	for r := t.FirstChild(); r != nil; r = r.NextSibling() {
		_, header := r.(*east.TableHeader)
		row := doctree.TableRow()
		for cell := r.FirstChild(); cell != nil; cell = cell.NextSibling() {
			content := c.inlines(cell, nil)
			if header {
				row.Children = append(row.Children, doctree.HeaderCell(content...))
			} else {
				row.Children = append(row.Children, doctree.Cell(content...))
			}
		}
		table.Children = append(table.Children, row)
	}
	return table
}

func (c mdConverter) lines(n ast.Node) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(c.src))
	}
	return buf.String()
}

// inlines flattens inline children into text runs. Marks are ordered
// innermost first so the serializer nests them the way the source did.
func (c mdConverter) inlines(parent ast.Node, marks []doctree.Mark) []*doctree.Node {
	var out []*doctree.Node
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Text:
			if s := string(node.Segment.Value(c.src)); s != "" {
				out = append(out, run(s, marks))
			}
			switch {
			case node.HardLineBreak():
				out = append(out, doctree.HardBreak())
			case node.SoftLineBreak() && n.NextSibling() != nil:
				out = append(out, run("\n", marks))
			}
		case *ast.String:
			out = append(out, run(string(node.Value), marks))
		case *ast.CodeSpan:
			var buf bytes.Buffer
			for t := node.FirstChild(); t != nil; t = t.NextSibling() {
				switch tn := t.(type) {
				case *ast.Text:
					buf.Write(tn.Segment.Value(c.src))
				case *ast.String:
					buf.Write(tn.Value)
				}
			}
			out = append(out, run(buf.String(), wrap(doctree.Code(), marks)))
		case *ast.Emphasis:
			m := doctree.Italic()
			if node.Level >= 2 {
				m = doctree.Bold()
			}
			out = append(out, c.inlines(node, wrap(m, marks))...)
		case *ast.Link:
			out = append(out, c.inlines(node, wrap(doctree.Link(string(node.Destination)), marks))...)
		case *ast.AutoLink:
			out = append(out, run(string(node.Label(c.src)), wrap(doctree.Link(string(node.URL(c.src))), marks)))
		case *ast.RawHTML:
			continue
		default:
			// images keep their alt text, strikethrough and unknown inlines
			// keep their content
			out = append(out, c.inlines(node, marks)...)
		}
	}
	return out
}

// wrap returns marks with m as the new innermost mark.
func wrap(m doctree.Mark, marks []doctree.Mark) []doctree.Mark {
	return append([]doctree.Mark{m}, marks...)
}

func run(s string, marks []doctree.Mark) *doctree.Node {
	return doctree.TextRun(s, append([]doctree.Mark(nil), marks...)...)
}
