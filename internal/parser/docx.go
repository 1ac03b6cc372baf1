package parser

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/docbridge/internal/doctree"
)

// DOCXParser handles .docx files. Heading styles become headings, bold and
// italic runs become marks, hyperlinks keep their targets, numbered or
// list-styled paragraphs become lists and tables keep their first row as a
// header.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	// go-docx needs a ReaderAt and a size.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	c := docxConverter{links: make(map[string]string)}
	_ = doc.RangeRelationships(func(rel *docx.Relationship) error {
		if strings.HasSuffix(rel.Type, "/hyperlink") || rel.TargetMode == "External" {
			c.links[rel.ID] = rel.Target
		}
		return nil
	})

	out := &doctree.Document{Title: titleFromFilename(filename)}
	out.Root = doctree.Doc(c.blocks(doc.Document.Body.Items)...)
	if c.title != "" {
		out.Title = c.title
	}
	return out, nil
}

type docxConverter struct {
	links map[string]string
	title string
}

func (c *docxConverter) blocks(items []interface{}) []*doctree.Node {
	var (
		out  []*doctree.Node
		list *doctree.Node
	)
	for _, item := range items {
		switch it := item.(type) {
		case *docx.Paragraph:
			style := docxStyle(it)
			if kind, ok := docxListKind(it, style); ok {
				if list == nil || list.Kind != kind {
					list = &doctree.Node{Kind: kind}
					out = append(out, list)
				}
				list.Children = append(list.Children, doctree.ListItem(doctree.Paragraph(c.inlines(it)...)))
				continue
			}
			list = nil
			if n := c.paragraph(it, style); n != nil {
				out = append(out, n)
			}
		case *docx.Table:
			list = nil
			if n := c.table(it); n != nil {
				out = append(out, n)
			}
		}
	}
	return out
}

func (c *docxConverter) paragraph(para *docx.Paragraph, style string) *doctree.Node {
	runs := c.inlines(para)
	if len(runs) == 0 {
		return nil
	}
	if strings.EqualFold(style, "Title") {
		if c.title == "" {
			c.title = strings.TrimSpace(doctree.PlainText(doctree.Paragraph(runs...)))
		}
		return doctree.HeadingNode(1, runs...)
	}
	if level := docxHeadingLevel(style); level > 0 {
		return doctree.HeadingNode(level, runs...)
	}
	return doctree.Paragraph(runs...)
}

func (c *docxConverter) inlines(para *docx.Paragraph) []*doctree.Node {
	var out []*doctree.Node
	for _, child := range para.Children {
		switch ch := child.(type) {
		case *docx.Run:
			out = append(out, c.run(ch, nil)...)
		case *docx.Hyperlink:
			var marks []doctree.Mark
			if href := c.links[ch.ID]; href != "" {
				marks = []doctree.Mark{doctree.Link(href)}
			} else if ch.ID != "" && !strings.HasPrefix(ch.ID, "rId") {
				marks = []doctree.Mark{doctree.Link("#" + ch.ID)}
			}
			out = append(out, c.run(&ch.Run, marks)...)
		}
	}
	return trimRuns(out)
}

// run converts one docx run. Formatting marks sit inside any link mark.
func (c *docxConverter) run(r *docx.Run, outer []doctree.Mark) []*doctree.Node {
	var marks []doctree.Mark
	if rp := r.RunProperties; rp != nil {
		if rp.Bold != nil {
			marks = append(marks, doctree.Bold())
		}
		if rp.Italic != nil {
			marks = append(marks, doctree.Italic())
		}
	}
	marks = append(marks, outer...)

	var (
		out []*doctree.Node
		buf strings.Builder
	)
	flush := func() {
		if buf.Len() > 0 {
			out = append(out, doctree.TextRun(buf.String(), marks...))
			buf.Reset()
		}
	}
	for _, rc := range r.Children {
		switch t := rc.(type) {
		case *docx.Text:
			buf.WriteString(t.Text)
		case *docx.Tab:
			buf.WriteString("\t")
		case *docx.BarterRabbet:
			flush()
			out = append(out, doctree.HardBreak())
		}
	}
	// Hyperlinks written by go-docx carry their text in instrText.
	if buf.Len() == 0 && len(out) == 0 && len(outer) > 0 && r.InstrText != "" {
		buf.WriteString(r.InstrText)
	}
	flush()
	return out
}

func (c *docxConverter) table(t *docx.Table) *doctree.Node {
	table := doctree.Table()
	for i, row := range t.TableRows {
		if row == nil {
			continue
		}
		tr := doctree.TableRow()
		for _, cell := range row.TableCells {
			if cell == nil {
				continue
			}
			var runs []*doctree.Node
			for j, para := range cell.Paragraphs {
				if j > 0 && len(runs) > 0 {
					runs = append(runs, doctree.HardBreak())
				}
				runs = append(runs, c.inlines(para)...)
			}
			if i == 0 {
				tr.Children = append(tr.Children, doctree.HeaderCell(runs...))
			} else {
				tr.Children = append(tr.Children, doctree.Cell(runs...))
			}
		}
		table.Children = append(table.Children, tr)
	}
	if len(table.Children) == 0 {
		return nil
	}
	return table
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

// docxHeadingLevel reads "Heading1" and "heading 1" style names.
func docxHeadingLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if !strings.HasPrefix(s, "heading") {
		return 0
	}
	level, err := strconv.Atoi(strings.TrimPrefix(s, "heading"))
	if err != nil || level < 1 || level > 6 {
		return 0
	}
	return level
}

func docxListKind(para *docx.Paragraph, style string) (doctree.Kind, bool) {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	switch {
	case strings.HasPrefix(s, "listnumber"):
		return doctree.KindOrderedList, true
	case strings.HasPrefix(s, "listbullet"), s == "listparagraph":
		return doctree.KindBulletList, true
	}
	if para.Properties != nil && para.Properties.NumProperties != nil && para.Properties.NumProperties.NumID != nil {
		return doctree.KindBulletList, true
	}
	return 0, false
}
