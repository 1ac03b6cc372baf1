package parser

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/dgallion1/docbridge/internal/doctree"
)

// HTMLParser converts HTML and exported wiki pages into a tree. With
// Readability set, the page's main article is extracted first so navigation
// chrome and sidebars do not end up in the document.
type HTMLParser struct {
	Readability bool
}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}

	var title string
	if p.Readability {
		article, err := readability.FromReader(bytes.NewReader(src), &url.URL{})
		if err == nil && strings.TrimSpace(article.Content) != "" {
			src = []byte(article.Content)
			title = strings.TrimSpace(article.Title)
		}
	}

	root, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if title == "" {
		if t := findElement(root, "title"); t != nil {
			title = strings.TrimSpace(textContent(t))
		}
	}
	if title == "" {
		title = titleFromFilename(filename)
	}

	body := findElement(root, "body")
	if body == nil {
		body = root
	}
	return &doctree.Document{Title: title, Root: doctree.Doc(htmlBlocks(body)...)}, nil
}

var skippedTags = map[string]bool{
	"head": true, "script": true, "style": true, "nav": true, "footer": true,
	"header": true, "noscript": true, "template": true, "iframe": true, "svg": true,
}

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "body": true,
	"dd": true, "details": true, "div": true, "dl": true, "dt": true, "fieldset": true,
	"figcaption": true, "figure": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "hr": true, "html": true, "li": true, "main": true,
	"ol": true, "p": true, "pre": true, "section": true, "summary": true, "table": true,
	"tbody": true, "td": true, "tfoot": true, "th": true, "thead": true, "tr": true, "ul": true,
}

// htmlBlocks converts the children of n. Inline content between blocks is
// collected into paragraphs.
func htmlBlocks(n *html.Node) []*doctree.Node {
	var out, pending []*doctree.Node
	flush := func() {
		if runs := trimRuns(pending); len(runs) > 0 {
			out = append(out, doctree.Paragraph(runs...))
		}
		pending = nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && skippedTags[c.Data] {
			continue
		}
		if c.Type == html.ElementNode && blockTags[c.Data] {
			flush()
			out = append(out, htmlBlock(c)...)
			continue
		}
		pending = append(pending, htmlInlines(c, nil)...)
	}
	flush()
	return out
}

func htmlBlock(n *html.Node) []*doctree.Node {
	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return []*doctree.Node{doctree.HeadingNode(int(n.Data[1]-'0'), trimRuns(htmlInlines(n, nil))...)}
	case "p":
		if runs := trimRuns(htmlInlines(n, nil)); len(runs) > 0 {
			return []*doctree.Node{doctree.Paragraph(runs...)}
		}
		return nil
	case "ul", "ol":
		var items []*doctree.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "li" {
				items = append(items, doctree.ListItem(htmlBlocks(c)...))
			}
		}
		if n.Data == "ol" {
			return []*doctree.Node{doctree.OrderedList(items...)}
		}
		return []*doctree.Node{doctree.BulletList(items...)}
	case "pre":
		return []*doctree.Node{doctree.CodeBlock(codeLanguage(n), strings.TrimPrefix(textContent(n), "\n"))}
	case "blockquote":
		return []*doctree.Node{doctree.Blockquote(htmlBlocks(n)...)}
	case "table":
		return []*doctree.Node{htmlTable(n)}
	case "hr":
		return []*doctree.Node{doctree.HorizontalRule()}
	}
	return htmlBlocks(n)
}

func htmlTable(n *html.Node) *doctree.Node {
	table := doctree.Table()
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "thead", "tbody", "tfoot":
				walk(c)
			case "tr":
				row := doctree.TableRow()
				for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type != html.ElementNode {
						continue
					}
					content := trimRuns(htmlInlines(cell, nil))
					switch cell.Data {
					case "th":
						row.Children = append(row.Children, doctree.HeaderCell(content...))
					case "td":
						row.Children = append(row.Children, doctree.Cell(content...))
					}
				}
				table.Children = append(table.Children, row)
			}
		}
	}
	walk(n)
	return table
}

// htmlInlines converts n into text runs. Marks are ordered innermost first.
func htmlInlines(n *html.Node, marks []doctree.Mark) []*doctree.Node {
	switch n.Type {
	case html.TextNode:
		s := collapseSpace(n.Data)
		if s == "" {
			return nil
		}
		return []*doctree.Node{run(s, marks)}
	case html.ElementNode:
		if skippedTags[n.Data] {
			return nil
		}
		switch n.Data {
		case "br":
			return []*doctree.Node{doctree.HardBreak()}
		case "strong", "b":
			marks = wrap(doctree.Bold(), marks)
		case "em", "i":
			marks = wrap(doctree.Italic(), marks)
		case "code", "kbd", "samp":
			return []*doctree.Node{run(collapseSpace(textContent(n)), wrap(doctree.Code(), marks))}
		case "a":
			if href := attr(n, "href"); href != "" {
				marks = wrap(doctree.Link(href), marks)
			}
		case "img":
			if alt := attr(n, "alt"); alt != "" {
				return []*doctree.Node{run(alt, marks)}
			}
			return nil
		}
	case html.CommentNode:
		return nil
	}

	var out []*doctree.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if len(out) > 0 && c.Type == html.ElementNode && blockTags[c.Data] {
			out = append(out, run(" ", marks))
		}
		out = append(out, htmlInlines(c, marks)...)
	}
	return out
}

// trimRuns drops leading and trailing whitespace from a run sequence and
// merges the doubled spaces left where runs meet.
func trimRuns(runs []*doctree.Node) []*doctree.Node {
	var out []*doctree.Node
	for _, r := range runs {
		if r.Kind == doctree.KindText && len(out) > 0 {
			prev := out[len(out)-1]
			if prev.Kind == doctree.KindText && strings.HasSuffix(prev.Text, " ") {
				r.Text = strings.TrimLeft(r.Text, " ")
				if r.Text == "" {
					continue
				}
			}
		}
		if r.Kind == doctree.KindText && len(out) == 0 {
			r.Text = strings.TrimLeft(r.Text, " ")
			if r.Text == "" {
				continue
			}
		}
		if r.Kind == doctree.KindHardBreak && len(out) > 0 {
			if prev := out[len(out)-1]; prev.Kind == doctree.KindText {
				prev.Text = strings.TrimRight(prev.Text, " ")
			}
		}
		out = append(out, r)
	}
	for len(out) > 0 {
		last := out[len(out)-1]
		if last.Kind == doctree.KindHardBreak {
			out = out[:len(out)-1]
			continue
		}
		if last.Kind == doctree.KindText {
			last.Text = strings.TrimRight(last.Text, " ")
			if last.Text == "" {
				out = out[:len(out)-1]
				continue
			}
		}
		break
	}
	return out
}

func collapseSpace(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			if !space {
				sb.WriteByte(' ')
			}
			space = true
		default:
			sb.WriteRune(r)
			space = false
		}
	}
	return sb.String()
}

func codeLanguage(pre *html.Node) string {
	for _, n := range []*html.Node{findElement(pre, "code"), pre} {
		if n == nil {
			continue
		}
		for _, class := range strings.Fields(attr(n, "class")) {
			if lang, ok := strings.CutPrefix(class, "language-"); ok {
				return lang
			}
		}
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
