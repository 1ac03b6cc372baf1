package doctree

import (
	"encoding/json"
	"fmt"
)

// wireNode is the editor's JSON shape for a node.
type wireNode struct {
	Type    string     `json:"type"`
	Attrs   *wireAttrs `json:"attrs,omitempty"`
	Content []*Node    `json:"content,omitempty"`
	Text    string     `json:"text,omitempty"`
	Marks   []Mark     `json:"marks,omitempty"`
}

type wireAttrs struct {
	Level    int     `json:"level,omitempty"`
	Language *string `json:"language,omitempty"`
	Start    int     `json:"start,omitempty"`
}

type wireMark struct {
	Type  string `json:"type"`
	Attrs *struct {
		Href string `json:"href"`
	} `json:"attrs,omitempty"`
}

// UnmarshalJSON decodes a node from the editor's JSON shape. Unknown node
// types decode to KindUnknown and keep their type name.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode node: %w", err)
	}
	*n = Node{
		Kind:     KindOf(w.Type),
		Text:     w.Text,
		Marks:    w.Marks,
		Children: w.Content,
	}
	if n.Kind == KindUnknown {
		n.Type = w.Type
	}
	if w.Attrs != nil {
		n.Level = w.Attrs.Level
		n.Start = w.Attrs.Start
		if w.Attrs.Language != nil {
			n.Language = *w.Attrs.Language
		}
	}
	return nil
}

// MarshalJSON encodes a node in the editor's JSON shape.
func (n *Node) MarshalJSON() ([]byte, error) {
	w := wireNode{
		Type:    n.TypeName(),
		Content: n.Children,
		Text:    n.Text,
		Marks:   n.Marks,
	}
	switch n.Kind {
	case KindHeading:
		w.Attrs = &wireAttrs{Level: n.Level}
	case KindCodeBlock:
		if n.Language != "" {
			lang := n.Language
			w.Attrs = &wireAttrs{Language: &lang}
		}
	case KindOrderedList:
		if n.Start > 0 {
			w.Attrs = &wireAttrs{Start: n.Start}
		}
	}
	return json.Marshal(w)
}

func (m *Mark) UnmarshalJSON(data []byte) error {
	var w wireMark
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode mark: %w", err)
	}
	*m = Mark{Type: w.Type}
	for k, name := range markNames {
		if name == w.Type {
			m.Kind = k
			break
		}
	}
	if w.Attrs != nil {
		m.Href = w.Attrs.Href
	}
	return nil
}

func (m Mark) MarshalJSON() ([]byte, error) {
	name := m.Kind.String()
	if m.Kind == MarkUnknown && m.Type != "" {
		name = m.Type
	}
	w := wireMark{Type: name}
	if m.Kind == MarkLink {
		w.Attrs = &struct {
			Href string `json:"href"`
		}{Href: m.Href}
	}
	return json.Marshal(w)
}

// Decode parses an editor JSON document. A bare content array is not accepted;
// the root must be an object with a "content" field.
func Decode(data []byte) (*Node, error) {
	var root Node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	return &root, nil
}
