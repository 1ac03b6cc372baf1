package doctree

// Constructors used by the source converters and tests.

func Doc(children ...*Node) *Node {
	return &Node{Kind: KindDoc, Children: children}
}

func Paragraph(children ...*Node) *Node {
	return &Node{Kind: KindParagraph, Children: children}
}

func HeadingNode(level int, children ...*Node) *Node {
	return &Node{Kind: KindHeading, Level: level, Children: children}
}

func BulletList(items ...*Node) *Node {
	return &Node{Kind: KindBulletList, Children: items}
}

func OrderedList(items ...*Node) *Node {
	return &Node{Kind: KindOrderedList, Children: items}
}

func ListItem(children ...*Node) *Node {
	return &Node{Kind: KindListItem, Children: children}
}

func CodeBlock(language, code string) *Node {
	n := &Node{Kind: KindCodeBlock, Language: language}
	if code != "" {
		n.Children = []*Node{TextRun(code)}
	}
	return n
}

func Blockquote(children ...*Node) *Node {
	return &Node{Kind: KindBlockquote, Children: children}
}

func Table(rows ...*Node) *Node {
	return &Node{Kind: KindTable, Children: rows}
}

func TableRow(cells ...*Node) *Node {
	return &Node{Kind: KindTableRow, Children: cells}
}

// HeaderCell wraps inline content in a paragraph inside a header cell,
// matching the editor's cell shape.
func HeaderCell(children ...*Node) *Node {
	return &Node{Kind: KindTableHeader, Children: []*Node{Paragraph(children...)}}
}

func Cell(children ...*Node) *Node {
	return &Node{Kind: KindTableCell, Children: []*Node{Paragraph(children...)}}
}

func HorizontalRule() *Node {
	return &Node{Kind: KindHorizontalRule}
}

func HardBreak() *Node {
	return &Node{Kind: KindHardBreak}
}

// TextRun returns a text node with marks applied in the given order.
func TextRun(text string, marks ...Mark) *Node {
	return &Node{Kind: KindText, Text: text, Marks: marks}
}

func Bold() Mark            { return Mark{Kind: MarkBold} }
func Italic() Mark          { return Mark{Kind: MarkItalic} }
func Code() Mark            { return Mark{Kind: MarkCode} }
func Link(href string) Mark { return Mark{Kind: MarkLink, Href: href} }
