package doctree

import "strings"

// Document is the root of a converted source document.
type Document struct {
	Title string // Document title (from metadata or filename)
	Root  *Node  // KindDoc node owning the block content
}

// Kind identifies a node type in the editing tree.
type Kind int

const (
	KindUnknown Kind = iota
	KindDoc
	KindParagraph
	KindHeading
	KindBulletList
	KindOrderedList
	KindListItem
	KindCodeBlock
	KindBlockquote
	KindTable
	KindTableRow
	KindTableHeader
	KindTableCell
	KindHorizontalRule
	KindHardBreak
	KindText
)

var kindNames = map[Kind]string{
	KindDoc:            "doc",
	KindParagraph:      "paragraph",
	KindHeading:        "heading",
	KindBulletList:     "bulletList",
	KindOrderedList:    "orderedList",
	KindListItem:       "listItem",
	KindCodeBlock:      "codeBlock",
	KindBlockquote:     "blockquote",
	KindTable:          "table",
	KindTableRow:       "tableRow",
	KindTableHeader:    "tableHeader",
	KindTableCell:      "tableCell",
	KindHorizontalRule: "horizontalRule",
	KindHardBreak:      "hardBreak",
	KindText:           "text",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// String returns the editor's type name for k.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// KindOf maps an editor type name to a Kind. Unrecognized names map to KindUnknown.
func KindOf(name string) Kind {
	return kindsByName[name]
}

// MarkKind identifies an inline mark on a text run.
type MarkKind int

const (
	MarkUnknown MarkKind = iota
	MarkBold
	MarkItalic
	MarkCode
	MarkLink
)

var markNames = map[MarkKind]string{
	MarkBold:   "bold",
	MarkItalic: "italic",
	MarkCode:   "code",
	MarkLink:   "link",
}

func (m MarkKind) String() string {
	if name, ok := markNames[m]; ok {
		return name
	}
	return "unknown"
}

// Mark is a formatting annotation on a text node.
type Mark struct {
	Kind MarkKind
	Type string // original type name, kept for unknown marks
	Href string // link target, only for MarkLink
}

// Node is a single node of the editing tree. Block nodes own their children
// exclusively; text nodes are leaves carrying Text and Marks.
type Node struct {
	Kind     Kind
	Type     string // original type name, kept for unknown kinds
	Level    int    // heading level 1-6
	Language string // code block language tag
	Start    int    // ordered list start number (0 = unset)
	Text     string
	Marks    []Mark
	Children []*Node
}

// TypeName returns the editor type name, preferring the original for unknown kinds.
func (n *Node) TypeName() string {
	if n.Kind == KindUnknown && n.Type != "" {
		return n.Type
	}
	return n.Kind.String()
}

// HasMark reports whether a text node carries a mark of kind k.
func (n *Node) HasMark(k MarkKind) bool {
	for _, m := range n.Marks {
		if m.Kind == k {
			return true
		}
	}
	return false
}

// Walk visits n and its descendants depth-first in document order.
// Returning false from fn skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// PlainText concatenates the text of every text node under n.
func PlainText(n *Node) string {
	var sb strings.Builder
	Walk(n, func(c *Node) bool {
		switch c.Kind {
		case KindText:
			sb.WriteString(c.Text)
		case KindHardBreak:
			sb.WriteString(" ")
		}
		return true
	})
	return sb.String()
}

// Heading is a navigable heading with its anchor slug.
type Heading struct {
	Text  string `json:"text"`
	Level int    `json:"level"`
	Slug  string `json:"slug"`
}

// Section is a titled span of Markdown content.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Chunk is a sized text segment with structural context, ready for retrieval.
type Chunk struct {
	Text       string   `json:"text"`
	Index      int      `json:"index"`
	Breadcrumb []string `json:"breadcrumb"` // e.g. ["Onboarding", "Accounts", "SSO"]
	Section    int      `json:"section"`    // index of the owning section
}
